package instance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/light-alarm/internal/logger"
)

// ErrAlreadyRunning is returned when another process with the same executable is alive.
var ErrAlreadyRunning = errors.New("another instance is already running")

// listProcesses is swapped in tests.
//
//nolint:gochecknoglobals // Test seam for the process table.
var listProcesses = ps.Processes

// EnsureSingle fails with ErrAlreadyRunning if another process runs the
// executable name. An empty name means the current executable.
func EnsureSingle(ctx context.Context, name string) error {
	if name == "" {
		executable, err := os.Executable()
		if err != nil {
			return fmt.Errorf("detect executable: %w", err)
		}

		name = filepath.Base(executable)
	}

	processList, err := listProcesses()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if !sameExecutable(process.Executable(), name) {
			continue
		}

		logger.WarnKV(ctx, "Found running instance", "pid", process.Pid(), "executable", name)

		return fmt.Errorf("%w: pid %d", ErrAlreadyRunning, process.Pid())
	}

	return nil
}

// sameExecutable compares executable names, ignoring case and .exe on Windows.
// Linux truncates process names to 15 bytes, so a truncated match counts.
func sameExecutable(found, want string) bool {
	if runtime.GOOS == "windows" {
		found = strings.TrimSuffix(strings.ToLower(found), ".exe")
		want = strings.TrimSuffix(strings.ToLower(want), ".exe")
	}

	if found == want {
		return true
	}

	const linuxCommLength = 15

	return len(found) == linuxCommLength && strings.HasPrefix(want, found)
}
