package capture

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"
)

const replayYAML = `
fps: 10
frames:
  - 1.5
  - {"{Exif}": {BrightnessValue: -2}}
  - {}
  - 3
`

// collect runs source to completion and returns the delivered frames.
func collect(t *testing.T, ctx context.Context, source Source) []*Frame {
	t.Helper()

	var frames []*Frame

	err := source.Run(ctx, func(_ context.Context, frame *Frame) {
		frames = append(frames, frame)
	})
	require.NoError(t, err)

	return frames
}

// TestReplaySource_PlaysInOrder checks order, sequence numbers, pacing and metadata shapes.
func TestReplaySource_PlaysInOrder(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		source, err := ReadReplay(strings.NewReader(replayYAML))
		require.NoError(t, err)
		require.Equal(t, 4, source.Len())

		start := time.Now()
		frames := collect(t, context.Background(), source)

		require.Len(t, frames, 4)
		require.Equal(t, 400*time.Millisecond, time.Since(start))

		e := NewExifExtractor()
		want := []float64{1.5, -2, 0, 3}

		for i, frame := range frames {
			require.Equal(t, uint64(i+1), frame.Seq)

			r := e.Brightness(frame)
			if i == 2 {
				require.False(t, r.Valid)

				continue
			}

			require.InDelta(t, want[i], r.Value, 1e-9)
		}
	})
}

// TestReplaySource_LoopStopsOnCancel ensures a looping replay runs until the context ends.
func TestReplaySource_LoopStopsOnCancel(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		source, err := ReadReplay(strings.NewReader(replayYAML), WithReplayLoop(true), WithReplayFPS(100))
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 105*time.Millisecond)
		defer cancel()

		frames := collect(t, ctx, source)
		require.Len(t, frames, 10)
		require.Equal(t, uint64(10), frames[9].Seq)
	})
}

// TestNewReplaySource_Errors covers missing files, bad YAML and empty replays.
func TestNewReplaySource_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := NewReplaySource(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("frames: [1, 2"), 0o600))

	_, err = NewReplaySource(bad)
	require.Error(t, err)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, []byte("fps: 5\nframes: []\n"), 0o600))

	_, err = NewReplaySource(empty)
	require.ErrorIs(t, err, errEmptyReplay)

	for _, fps := range []string{"-1", "1e12", ".nan"} {
		_, err = ReadReplay(strings.NewReader("fps: " + fps + "\nframes:\n  - {}\n"))
		require.ErrorIs(t, err, errInvalidReplayFPS, fps)
	}

	good := filepath.Join(dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte(replayYAML), 0o600))

	source, err := NewReplaySource(good)
	require.NoError(t, err)
	require.Equal(t, good, source.Name())
}
