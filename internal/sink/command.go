package sink

import (
	"context"
	"errors"
	"os/exec"

	"github.com/oshokin/light-alarm/internal/logger"
)

// errEmptyCommand is returned when a command sink has nothing to run.
var errEmptyCommand = errors.New("alert command is empty")

// CommandSink runs an external player, e.g. `paplay bell.oga`.
// The alert lasts until the process exits.
type CommandSink struct {
	// name is the executable.
	name string
	// args are passed to the executable.
	args []string
}

// NewCommandSink creates a sink running argv[0] with argv[1:].
func NewCommandSink(argv []string) (*CommandSink, error) {
	if len(argv) == 0 || argv[0] == "" {
		return nil, errEmptyCommand
	}

	return &CommandSink{
		name: argv[0],
		args: append([]string(nil), argv[1:]...),
	}, nil
}

// Name implements Sink.
func (s *CommandSink) Name() string {
	return "command:" + s.name
}

// Play implements Sink. A command that fails to start or exits with an error
// is logged and the alert still completes.
func (s *CommandSink) Play(ctx context.Context, alert Alert, done func()) {
	done = Once(done)
	ctx = detach(ctx)

	cmd := exec.CommandContext(ctx, s.name, s.args...)
	if err := cmd.Start(); err != nil {
		logger.ErrorKV(ctx, "Alert command failed to start", "alert_id", alert.ID, "command", s.name, "error", err)
		go done()

		return
	}

	go func() {
		defer done()

		if err := cmd.Wait(); err != nil {
			logger.WarnKV(ctx, "Alert command failed", "alert_id", alert.ID, "command", s.name, "error", err)

			return
		}

		logger.DebugKV(ctx, "Alert command finished", "alert_id", alert.ID)
	}()
}
