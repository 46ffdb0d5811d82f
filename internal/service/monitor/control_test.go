package monitor

import (
	"context"
	"io"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/light-alarm/internal/domain/alarm"
)

// TestControl_SetClampsAndLabels keeps values inside bounds and refreshes the label.
func TestControl_SetClampsAndLabels(t *testing.T) {
	t.Parallel()

	var labels []string

	a := alarm.New(20)
	c, err := NewControl(a, -5, 10, func(text string) { labels = append(labels, text) })
	require.NoError(t, err)

	// The initial threshold is clamped on creation.
	require.InDelta(t, 10.0, a.Threshold(), 0)

	require.InDelta(t, 0.25, c.Set(0.25), 0)
	require.InDelta(t, -5.0, c.Set(-9), 0)
	require.InDelta(t, -5.0, c.Value(), 0)

	require.Equal(t, []string{"10", "0.25", "-5"}, labels)

	_, err = NewControl(a, 1, 1, nil)
	require.ErrorIs(t, err, errInvalidBounds)
}

// TestControl_RejectsNaN never lets NaN reach the alarm threshold.
func TestControl_RejectsNaN(t *testing.T) {
	t.Parallel()

	var labels []string

	a := alarm.New(2)
	c, err := NewControl(a, -5, 10, func(text string) { labels = append(labels, text) })
	require.NoError(t, err)

	require.InDelta(t, 2.0, c.Set(math.NaN()), 0)
	require.InDelta(t, 2.0, a.Threshold(), 0)
	require.Equal(t, []string{"2"}, labels)

	for name, bounds := range map[string][2]float64{
		"nan min":      {math.NaN(), 10},
		"nan max":      {-5, math.NaN()},
		"infinite max": {-5, math.Inf(1)},
	} {
		_, err = NewControl(a, bounds[0], bounds[1], nil)
		require.ErrorIs(t, err, errInvalidBounds, name)
	}

	// A NaN starting threshold is reset to the lower bound.
	c, err = NewControl(alarm.New(math.NaN()), -5, 10, nil)
	require.NoError(t, err)
	require.InDelta(t, -5.0, c.Value(), 0)
}

// TestControl_Serve applies valid lines and skips the rest.
func TestControl_Serve(t *testing.T) {
	t.Parallel()

	a := alarm.New(0)
	c, err := NewControl(a, -5, 10, nil)
	require.NoError(t, err)

	input := "1.5\n\n  bright  \n-2\n42\n"
	require.NoError(t, c.Serve(context.Background(), strings.NewReader(input)))
	require.InDelta(t, 10.0, a.Threshold(), 0)

	// NaN parses as a float but is treated like an invalid line.
	require.NoError(t, c.Serve(context.Background(), strings.NewReader("3\nNaN\nnan\n")))
	require.False(t, math.IsNaN(a.Threshold()))
	require.InDelta(t, 3.0, a.Threshold(), 0)
}

// TestControl_ServeStopsOnCancel returns once the context ends even if input blocks.
func TestControl_ServeStopsOnCancel(t *testing.T) {
	t.Parallel()

	c, err := NewControl(alarm.New(0), -1, 1, nil)
	require.NoError(t, err)

	reader, writer := io.Pipe()
	t.Cleanup(func() { _ = writer.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- c.Serve(ctx, reader) }()

	_, err = writer.Write([]byte("0.5\n"))
	require.NoError(t, err)
	require.Eventually(t, func() bool { return c.Value() == 0.5 }, 5*time.Second, time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		require.FailNow(t, "Serve did not return after cancel")
	}
}
