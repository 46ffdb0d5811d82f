package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/light-alarm/internal/config"
	"github.com/oshokin/light-alarm/internal/service/monitor"
	"github.com/oshokin/light-alarm/internal/version"
)

var (
	// configPath stores the path to the configuration file.
	configPath string
	// threshold overrides the initial threshold when the flag is set.
	threshold float64
	// sourceType overrides the configured capture source.
	sourceType string
	// logLevel overrides the configured log level.
	logLevel string
	// noStdin disables threshold input from stdin.
	noStdin bool

	// rootCmd runs the brightness alarm.
	rootCmd = &cobra.Command{
		Use:   "light-alarm",
		Short: "Sound an alert when ambient light drops below a threshold.",
		Long: `Samples ambient brightness from a camera and sounds an alert when it falls below a threshold.

Every frame yields one brightness reading. The first reading strictly below the threshold
starts an alert; further dark frames are ignored until that alert has finished playing.

The threshold can be changed while running by typing a number followed by Enter.
Values are clamped to the bounds from the configuration file.

Sources: camera (default), replay (recorded metadata file), synthetic (generated wave).
Sinks: bell (terminal bell, default), command (external player), log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &monitor.Options{
				ConfigPath: configPath,
				SourceType: sourceType,
				LogLevel:   logLevel,
				BellOutput: cmd.OutOrStdout(),
			}

			if cmd.Flags().Changed("threshold") {
				options.Threshold = &threshold
			}

			if !noStdin {
				options.Input = cmd.InOrStdin()
			}

			return monitor.Run(ctx, options)
		},
	}
)

// Execute runs the light-alarm CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)
	attachConfigCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file (.yaml or .toml)")
	flags.Float64VarP(&threshold, "threshold", "t", 0, "initial brightness threshold")
	flags.StringVarP(&sourceType, "source", "s", "", "capture source: camera, replay or synthetic")
	flags.StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn or error")
	flags.BoolVar(&noStdin, "no-stdin", false, "do not read threshold changes from stdin")
}
