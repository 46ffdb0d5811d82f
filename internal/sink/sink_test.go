package sink

import (
	"bytes"
	"context"
	"os/exec"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/light-alarm/internal/domain/alarm"
)

// counter returns a done callback and the number of times it ran.
func counter() (func(), *atomic.Int32) {
	var calls atomic.Int32

	return func() { calls.Add(1) }, &calls
}

// TestOnce runs the wrapped callback a single time and tolerates nil.
func TestOnce(t *testing.T) {
	t.Parallel()

	done, calls := counter()
	once := Once(done)

	once()
	once()
	require.Equal(t, int32(1), calls.Load())

	require.NotPanics(t, Once(nil))
}

// TestNewAlert assigns unique ids and copies trigger details.
func TestNewAlert(t *testing.T) {
	t.Parallel()

	a := NewAlert(3, alarm.NewReading(-1), 0.5, 42)
	b := NewAlert(4, alarm.NewReading(-1), 0.5, 43)

	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, alarm.Token(3), a.Token)
	require.Equal(t, uint64(42), a.FrameSeq)
	require.InDelta(t, 0.5, a.Threshold, 0)
}

// TestBellSink rings once and completes after its duration.
func TestBellSink(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		var out bytes.Buffer

		s := NewBellSink(&out, 2*time.Second)
		done, calls := counter()

		s.Play(context.Background(), NewAlert(1, alarm.NewReading(0), 1, 1), done)
		require.Equal(t, "\a", out.String())

		time.Sleep(time.Second)
		synctest.Wait()
		require.Zero(t, calls.Load())

		time.Sleep(time.Second)
		synctest.Wait()
		require.Equal(t, int32(1), calls.Load())
	})
}

// TestLogSink completes even with a zero duration.
func TestLogSink(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		done, calls := counter()

		(&LogSink{}).Play(context.Background(), NewAlert(1, alarm.NoReading, 1, 1), done)
		synctest.Wait()
		require.Equal(t, int32(1), calls.Load())
	})
}

// TestCommandSink completes on success, on failure and when the command cannot start.
func TestCommandSink(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true(1) is not available")
	}

	_, err := NewCommandSink(nil)
	require.ErrorIs(t, err, errEmptyCommand)

	for _, argv := range [][]string{
		{"true"},
		{"false"},
		{"/nonexistent/light-alarm-player", "--loud"},
	} {
		s, err := NewCommandSink(argv)
		require.NoError(t, err)
		require.Equal(t, "command:"+argv[0], s.Name())

		finished := make(chan struct{})
		s.Play(context.Background(), NewAlert(1, alarm.NewReading(0), 1, 1), func() { close(finished) })

		select {
		case <-finished:
		case <-time.After(5 * time.Second):
			require.FailNow(t, "command sink did not complete", argv[0])
		}
	}
}

// TestCommandSink_NotCancelledWithSession checks that cancelling the caller context does not kill playback.
func TestCommandSink_NotCancelledWithSession(t *testing.T) {
	t.Parallel()

	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep(1) is not available")
	}

	s, err := NewCommandSink([]string{"sleep", "0.2"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	finished := make(chan time.Time, 1)
	start := time.Now()

	s.Play(ctx, NewAlert(1, alarm.NewReading(0), 1, 1), func() { finished <- time.Now() })
	cancel()

	select {
	case at := <-finished:
		require.GreaterOrEqual(t, at.Sub(start), 150*time.Millisecond)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "command sink did not complete")
	}
}
