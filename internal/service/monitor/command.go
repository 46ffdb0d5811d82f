package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/light-alarm/internal/capture"
	"github.com/oshokin/light-alarm/internal/config"
	"github.com/oshokin/light-alarm/internal/domain/alarm"
	"github.com/oshokin/light-alarm/internal/logger"
	"github.com/oshokin/light-alarm/internal/service/instance"
	"github.com/oshokin/light-alarm/internal/sink"
)

// Options controls the monitor process.
type Options struct {
	// ConfigPath is the settings file. A missing default file means built-in defaults.
	ConfigPath string
	// Threshold overrides the configured initial threshold when not nil.
	Threshold *float64
	// SourceType overrides the configured source type.
	SourceType string
	// LogLevel overrides the configured log level.
	LogLevel string
	// Input feeds the threshold control; nil disables it.
	Input io.Reader
	// BellOutput receives the bell character; nil means stdout.
	BellOutput io.Writer
	// Observers are notified of every frame.
	Observers []capture.Observer
	// OnStats receives the final counters when the session ends.
	OnStats func(Stats)
}

// Run loads the settings, starts the capture session and blocks until ctx is
// canceled or the source is exhausted. An alert in flight at that point may
// finish within the configured drain timeout.
//
//nolint:cyclop,funlen // Linear wiring of the session; splitting would scatter it.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "light-alarm")

	cfg, err := loadSettings(opts)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	if !cfg.AllowMultiple {
		if err = instance.EnsureSingle(ctx, ""); err != nil {
			return err
		}
	}

	policy, err := alarm.ParseMissingPolicy(cfg.MissingReading)
	if err != nil {
		return err
	}

	source, err := NewSource(&cfg.Source)
	if err != nil {
		return fmt.Errorf("create source: %w", err)
	}

	extractor := NewExtractor(&cfg.Source)

	alertSink, err := NewSink(&cfg.Sink, opts.BellOutput)
	if err != nil {
		return fmt.Errorf("create sink: %w", err)
	}

	brightnessAlarm := alarm.New(cfg.Threshold.Initial, alarm.WithMissingPolicy(policy))

	control, err := NewControl(brightnessAlarm, cfg.Threshold.Min, cfg.Threshold.Max, func(text string) {
		logger.InfoKV(ctx, "Threshold", "value", text)
	})
	if err != nil {
		return err
	}

	detector := NewDetector(brightnessAlarm, extractor, alertSink)
	for _, o := range opts.Observers {
		detector.Observe(o)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.Input != nil {
		go func() {
			if err := control.Serve(sessionCtx, opts.Input); err != nil {
				logger.WarnKV(ctx, "Threshold input closed", "error", err)
			}
		}()
	}

	logger.InfoKV(ctx, "Capture session started",
		"source", source.Name(),
		"sink", alertSink.Name(),
		"threshold", FormatThreshold(control.Value()),
		"missing_reading", string(brightnessAlarm.MissingPolicy()),
	)

	runErr := source.Run(logger.WithKV(sessionCtx, "source", source.Name()), detector.HandleFrame)

	detector.Stop()
	cancel()

	drainCtx, drainCancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.DrainTimeout.Std())
	defer drainCancel()

	if err := brightnessAlarm.WaitIdle(drainCtx); err != nil {
		logger.WarnKV(ctx, "Alert still playing at shutdown", "drain_timeout", cfg.DrainTimeout.Std().String())
	}

	stats := detector.Stats()
	logger.InfoKV(ctx, "Capture session stopped",
		"frames", stats.Frames,
		"missing", stats.Missing,
		"alerts", stats.Triggers,
	)

	if opts.OnStats != nil {
		opts.OnStats(stats)
	}

	if runErr != nil {
		if errors.Is(runErr, capture.ErrPermissionDenied) {
			logger.ErrorKV(ctx, "Camera access denied, no frames will be analysed")
		}

		return fmt.Errorf("capture: %w", runErr)
	}

	return nil
}

// loadSettings reads the config file and applies option overrides.
// Only the default file may be absent.
func loadSettings(opts *Options) (*config.Config, error) {
	path := opts.ConfigPath
	if path == "" {
		path = config.DefaultConfigFilename
	}

	cfg, err := config.Load(path)

	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && path == config.DefaultConfigFilename:
		cfg = config.Default()
	default:
		return nil, err
	}

	if opts.Threshold != nil {
		cfg.Threshold.Initial = *opts.Threshold
	}

	if opts.SourceType != "" {
		cfg.Source.Type = opts.SourceType
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewSource builds the capture source described by cfg.
//
//nolint:ireturn // Callers only need the Source behaviour.
func NewSource(cfg *config.Source) (capture.Source, error) {
	switch cfg.Type {
	case config.SourceCamera:
		return &capture.CameraSource{
			Device: cfg.Device,
			Preset: capture.Preset(cfg.Preset),
			FPS:    cfg.FPS,
		}, nil
	case config.SourceReplay:
		opts := []capture.ReplayOption{capture.WithReplayFPS(cfg.FPS)}
		if cfg.Loop {
			opts = append(opts, capture.WithReplayLoop(true))
		}

		source, err := capture.NewReplaySource(cfg.Replay, opts...)
		if err != nil {
			return nil, err
		}

		return source, nil
	case config.SourceSynthetic:
		return &capture.SyntheticSource{
			Min:    cfg.Synthetic.Min,
			Max:    cfg.Synthetic.Max,
			Period: cfg.Synthetic.Period.Std(),
			FPS:    cfg.FPS,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", capture.ErrUnknownSource, cfg.Type)
	}
}

// NewExtractor builds the brightness extractor described by cfg.
//
//nolint:ireturn // Extractors are used through the interface only.
func NewExtractor(cfg *config.Source) capture.BrightnessExtractor {
	metadata := &capture.MetadataExtractor{Path: capture.ParseMetadataPath(cfg.MetadataPath)}

	switch cfg.Extractor {
	case config.ExtractorMetadata:
		return metadata
	case config.ExtractorLuma:
		return capture.LumaExtractor{}
	default:
		return capture.Chain{metadata, capture.LumaExtractor{}}
	}
}

// NewSink builds the alert sink described by cfg. bellOutput is used by the bell sink.
//
//nolint:ireturn // Sinks are used through the interface only.
func NewSink(cfg *config.Sink, bellOutput io.Writer) (sink.Sink, error) {
	switch cfg.Type {
	case config.SinkBell:
		return sink.NewBellSink(bellOutput, cfg.Duration.Std()), nil
	case config.SinkLog:
		return &sink.LogSink{Duration: cfg.Duration.Std()}, nil
	case config.SinkCommand:
		s, err := sink.NewCommandSink(cfg.Command)
		if err != nil {
			return nil, err
		}

		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", sink.ErrUnknownSink, cfg.Type)
	}
}
