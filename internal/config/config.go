package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/oshokin/light-alarm/internal/capture"
	"github.com/oshokin/light-alarm/internal/domain/alarm"
	"github.com/oshokin/light-alarm/internal/logger"
)

// Config holds every light-alarm setting.
type Config struct {
	// LogLevel is the minimum level written to the log.
	LogLevel string `yaml:"log_level" toml:"log_level"`
	// Threshold configures the threshold control.
	Threshold Threshold `yaml:"threshold" toml:"threshold"`
	// MissingReading is the policy for frames without brightness: skip or zero.
	MissingReading string `yaml:"missing_reading" toml:"missing_reading"`
	// Source configures where frames come from.
	Source Source `yaml:"source" toml:"source"`
	// Sink configures how alerts are played.
	Sink Sink `yaml:"sink" toml:"sink"`
	// AllowMultiple disables the single running instance check.
	AllowMultiple bool `yaml:"allow_multiple" toml:"allow_multiple"`
	// DrainTimeout bounds the wait for an in-flight alert on shutdown.
	DrainTimeout Duration `yaml:"drain_timeout" toml:"drain_timeout"`
}

// Threshold holds the initial threshold and the bounds of the control.
type Threshold struct {
	// Initial is the threshold at startup.
	Initial float64 `yaml:"initial" toml:"initial"`
	// Min is the lowest value the control accepts.
	Min float64 `yaml:"min" toml:"min"`
	// Max is the highest value the control accepts.
	Max float64 `yaml:"max" toml:"max"`
}

// Source selects and configures the capture source.
type Source struct {
	// Type is camera, replay or synthetic.
	Type string `yaml:"type" toml:"type"`
	// FPS is the frame rate. Replay files may set their own.
	FPS float64 `yaml:"fps,omitempty" toml:"fps,omitempty"`
	// Device selects a camera by id or label fragment.
	Device string `yaml:"device,omitempty" toml:"device,omitempty"`
	// Preset is the camera quality: low, medium or high.
	Preset string `yaml:"preset,omitempty" toml:"preset,omitempty"`
	// Replay is the path of the replay file.
	Replay string `yaml:"replay,omitempty" toml:"replay,omitempty"`
	// Loop restarts the replay after its last frame.
	Loop bool `yaml:"loop,omitempty" toml:"loop,omitempty"`
	// Extractor is auto, metadata or luma.
	Extractor string `yaml:"extractor" toml:"extractor"`
	// MetadataPath is the slash separated key path of the brightness value.
	MetadataPath string `yaml:"metadata_path" toml:"metadata_path"`
	// Synthetic configures the generated wave.
	Synthetic Synthetic `yaml:"synthetic" toml:"synthetic"`
}

// Synthetic configures the synthetic source.
type Synthetic struct {
	// Min is the darkest generated brightness.
	Min float64 `yaml:"min" toml:"min"`
	// Max is the brightest generated brightness.
	Max float64 `yaml:"max" toml:"max"`
	// Period is one dark-bright cycle.
	Period Duration `yaml:"period" toml:"period"`
}

// Sink selects and configures the alert sink.
type Sink struct {
	// Type is bell, command or log.
	Type string `yaml:"type" toml:"type"`
	// Command is the player argv for the command sink.
	Command []string `yaml:"command,omitempty" toml:"command,omitempty"`
	// Duration is how long bell and log alerts last.
	Duration Duration `yaml:"duration" toml:"duration"`
}

const (
	// DefaultConfigFilename is the default settings file.
	DefaultConfigFilename = "light-alarm.yaml"

	// SourceCamera reads a local camera.
	SourceCamera = "camera"
	// SourceReplay plays a replay file.
	SourceReplay = "replay"
	// SourceSynthetic generates a brightness wave.
	SourceSynthetic = "synthetic"

	// ExtractorAuto reads metadata first and falls back to pixels.
	ExtractorAuto = "auto"
	// ExtractorMetadata reads the metadata path only.
	ExtractorMetadata = "metadata"
	// ExtractorLuma estimates brightness from pixels only.
	ExtractorLuma = "luma"

	// SinkBell rings the terminal bell.
	SinkBell = "bell"
	// SinkCommand runs an external player.
	SinkCommand = "command"
	// SinkLog only logs.
	SinkLog = "log"

	// DefaultThresholdMin is the lowest default control value.
	DefaultThresholdMin = -5.0
	// DefaultThresholdMax is the highest default control value.
	DefaultThresholdMax = 10.0
	// DefaultMetadataPath is where cameras report brightness.
	DefaultMetadataPath = "{Exif}/BrightnessValue"
	// DefaultDrainTimeout bounds the shutdown wait for an in-flight alert.
	DefaultDrainTimeout = 5 * time.Second
	// DefaultSinkDuration is the length of a bell or log alert.
	DefaultSinkDuration = time.Second
	// DefaultSyntheticPeriod is one cycle of the synthetic wave.
	DefaultSyntheticPeriod = time.Minute

	// DefaultFilePermissions is the mode of written settings files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errInvalidThreshold is returned for inconsistent threshold bounds.
	errInvalidThreshold = errors.New("invalid threshold")
	// errInvalidSource is returned for an incomplete or unknown source.
	errInvalidSource = errors.New("invalid source")
	// errInvalidSink is returned for an incomplete or unknown sink.
	errInvalidSink = errors.New("invalid sink")
	// errInvalidLogLevel is returned for an unknown log level.
	errInvalidLogLevel = errors.New("invalid log level")
)

// Default returns a validated configuration with every default filled in.
func Default() *Config {
	cfg := new(Config)

	// Defaults always validate.
	_ = Validate(cfg)

	return cfg
}

// Load reads configuration from path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if isTOML(path) {
		err = toml.Unmarshal(contents, &cfg)
	} else {
		err = yaml.Unmarshal(contents, &cfg)
	}

	if err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save validates cfg and writes it to path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)

	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}

	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// isTOML reports whether path names a TOML file.
func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Validate fills defaults and checks the settings for consistency.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if _, ok := logger.ParseLogLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("%w: %q", errInvalidLogLevel, cfg.LogLevel)
	}

	if err := validateThreshold(&cfg.Threshold); err != nil {
		return err
	}

	policy, err := alarm.ParseMissingPolicy(cfg.MissingReading)
	if err != nil {
		return err
	}

	cfg.MissingReading = string(policy)

	if err := validateSource(&cfg.Source); err != nil {
		return err
	}

	if err := validateSink(&cfg.Sink); err != nil {
		return err
	}

	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = Duration(DefaultDrainTimeout)
	}

	return nil
}

// validateThreshold defaults unset bounds and keeps Initial inside them.
func validateThreshold(t *Threshold) error {
	if t.Min == 0 && t.Max == 0 {
		t.Min, t.Max = DefaultThresholdMin, DefaultThresholdMax
	}

	for name, v := range map[string]float64{"initial": t.Initial, "min": t.Min, "max": t.Max} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be a finite number, got %v", errInvalidThreshold, name, v)
		}
	}

	if t.Min >= t.Max {
		return fmt.Errorf("%w: min %v must be below max %v", errInvalidThreshold, t.Min, t.Max)
	}

	if t.Initial < t.Min || t.Initial > t.Max {
		return fmt.Errorf("%w: initial %v outside [%v, %v]", errInvalidThreshold, t.Initial, t.Min, t.Max)
	}

	return nil
}

// validateSource defaults the source type and extractor and checks required fields.
func validateSource(s *Source) error {
	if s.Type == "" {
		s.Type = SourceCamera
	}

	if !capture.ValidFPS(s.FPS) {
		return fmt.Errorf("%w: fps %v outside [0, %d]", errInvalidSource, s.FPS, capture.MaxFPS)
	}

	switch s.Type {
	case SourceCamera:
		if !slices.Contains([]string{"", "low", "medium", "high"}, s.Preset) {
			return fmt.Errorf("%w: unknown preset %q", errInvalidSource, s.Preset)
		}
	case SourceReplay:
		if s.Replay == "" {
			return fmt.Errorf("%w: replay file must be provided", errInvalidSource)
		}
	case SourceSynthetic:
		if s.Synthetic.Min == 0 && s.Synthetic.Max == 0 {
			s.Synthetic.Min, s.Synthetic.Max = -3, 6
		}

		if s.Synthetic.Period <= 0 {
			s.Synthetic.Period = Duration(DefaultSyntheticPeriod)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", errInvalidSource, s.Type)
	}

	if s.Extractor == "" {
		s.Extractor = ExtractorAuto
	}

	if !slices.Contains([]string{ExtractorAuto, ExtractorMetadata, ExtractorLuma}, s.Extractor) {
		return fmt.Errorf("%w: unknown extractor %q", errInvalidSource, s.Extractor)
	}

	if s.MetadataPath == "" {
		s.MetadataPath = DefaultMetadataPath
	}

	return nil
}

// validateSink defaults the sink type and duration.
func validateSink(s *Sink) error {
	if s.Type == "" {
		s.Type = SinkBell
	}

	switch s.Type {
	case SinkBell, SinkLog:
	case SinkCommand:
		if len(s.Command) == 0 || s.Command[0] == "" {
			return fmt.Errorf("%w: command must be provided", errInvalidSink)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", errInvalidSink, s.Type)
	}

	if s.Duration <= 0 {
		s.Duration = Duration(DefaultSinkDuration)
	}

	return nil
}
