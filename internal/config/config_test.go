package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/light-alarm/internal/domain/alarm"
)

// TestValidate_Defaults fills every default on an empty config.
func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	cfg := new(Config)
	require.NoError(t, Validate(cfg))

	require.InDelta(t, DefaultThresholdMin, cfg.Threshold.Min, 0)
	require.InDelta(t, DefaultThresholdMax, cfg.Threshold.Max, 0)
	require.Equal(t, string(alarm.MissingSkip), cfg.MissingReading)
	require.Equal(t, SourceCamera, cfg.Source.Type)
	require.Equal(t, ExtractorAuto, cfg.Source.Extractor)
	require.Equal(t, DefaultMetadataPath, cfg.Source.MetadataPath)
	require.Equal(t, SinkBell, cfg.Sink.Type)
	require.Equal(t, DefaultSinkDuration, cfg.Sink.Duration.Std())
	require.Equal(t, DefaultDrainTimeout, cfg.DrainTimeout.Std())

	require.Equal(t, cfg, Default())
}

// TestValidate_Rejects checks the validation errors.
func TestValidate_Rejects(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, Validate(nil), errConfigIsNotSet)

	cases := map[string]struct {
		cfg  Config
		want error
	}{
		"log level":        {Config{LogLevel: "chatty"}, errInvalidLogLevel},
		"inverted bounds":  {Config{Threshold: Threshold{Min: 2, Max: 1}}, errInvalidThreshold},
		"initial outside":  {Config{Threshold: Threshold{Initial: 11}}, errInvalidThreshold},
		"missing policy":   {Config{MissingReading: "guess"}, alarm.ErrUnknownMissingPolicy},
		"source type":      {Config{Source: Source{Type: "scanner"}}, errInvalidSource},
		"replay file":      {Config{Source: Source{Type: SourceReplay}}, errInvalidSource},
		"camera preset":    {Config{Source: Source{Preset: "ultra"}}, errInvalidSource},
		"negative fps":     {Config{Source: Source{FPS: -1}}, errInvalidSource},
		"huge fps":         {Config{Source: Source{FPS: 1e12}}, errInvalidSource},
		"nan fps":          {Config{Source: Source{FPS: math.NaN()}}, errInvalidSource},
		"nan initial":      {Config{Threshold: Threshold{Initial: math.NaN()}}, errInvalidThreshold},
		"nan min":          {Config{Threshold: Threshold{Min: math.NaN(), Max: 10}}, errInvalidThreshold},
		"nan max":          {Config{Threshold: Threshold{Min: -5, Max: math.NaN()}}, errInvalidThreshold},
		"infinite max":     {Config{Threshold: Threshold{Min: -5, Max: math.Inf(1)}}, errInvalidThreshold},
		"extractor":        {Config{Source: Source{Extractor: "magic"}}, errInvalidSource},
		"sink type":        {Config{Sink: Sink{Type: "siren"}}, errInvalidSink},
		"command argv":     {Config{Sink: Sink{Type: SinkCommand}}, errInvalidSink},
		"empty executable": {Config{Sink: Sink{Type: SinkCommand, Command: []string{""}}}, errInvalidSink},
	}

	for name, tc := range cases {
		require.ErrorIs(t, Validate(&tc.cfg), tc.want, name)
	}

	synthetic := &Config{Source: Source{Type: SourceSynthetic}}
	require.NoError(t, Validate(synthetic))
	require.Less(t, synthetic.Source.Synthetic.Min, synthetic.Source.Synthetic.Max)
	require.Equal(t, DefaultSyntheticPeriod, synthetic.Source.Synthetic.Period.Std())
}

// TestSaveLoadRoundtrip persists settings as YAML and TOML and loads them back.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"settings.yaml", "settings.toml"} {
		path := filepath.Join(t.TempDir(), name)

		cfg := &Config{
			LogLevel:       "debug",
			Threshold:      Threshold{Initial: 0.3, Min: -2, Max: 4},
			MissingReading: string(alarm.MissingZero),
			Source: Source{
				Type:   SourceReplay,
				Replay: "frames.yaml",
				FPS:    12,
				Loop:   true,
			},
			Sink: Sink{
				Type:     SinkCommand,
				Command:  []string{"paplay", "bell.oga"},
				Duration: Duration(1500 * time.Millisecond),
			},
			AllowMultiple: true,
			DrainTimeout:  Duration(2 * time.Second),
		}

		require.NoError(t, Save(path, cfg), name)

		_, err := os.Stat(path)
		require.NoError(t, err)

		loaded, err := Load(path)
		require.NoError(t, err, name)
		require.Equal(t, cfg, loaded, name)
	}
}

// TestLoad_TOML reads a hand-written TOML file with text durations.
func TestLoad_TOML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "light-alarm.toml")
	contents := `
log_level = "warn"
drain_timeout = "750ms"

[threshold]
initial = 1.0
min = 0.0
max = 3.0

[source]
type = "synthetic"

[source.synthetic]
min = -1.0
max = 2.0
period = "10s"

[sink]
type = "log"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, 750*time.Millisecond, cfg.DrainTimeout.Std())
	require.Equal(t, 10*time.Second, cfg.Source.Synthetic.Period.Std())
	require.Equal(t, SinkLog, cfg.Sink.Type)
}

// TestLoad_Errors covers missing files, bad durations and nil saves.
func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("drain_timeout: soon\n"), 0o600))

	_, err = Load(bad)
	require.Error(t, err)

	require.ErrorIs(t, Save(filepath.Join(dir, "nil.yaml"), nil), errConfigIsNotSet)
}
