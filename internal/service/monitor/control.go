package monitor

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/oshokin/light-alarm/internal/domain/alarm"
	"github.com/oshokin/light-alarm/internal/logger"
)

// errInvalidBounds is returned when the control bounds are inverted.
var errInvalidBounds = errors.New("threshold control bounds are invalid")

// Control is the threshold slider: a clamped live value shown as a label.
type Control struct {
	// alarm receives every new threshold.
	alarm *alarm.Alarm
	// min and max are the slider bounds.
	min, max float64
	// label receives the human-readable value after every change.
	label func(text string)
}

// NewControl creates a control over a. The alarm threshold is clamped into bounds;
// a NaN threshold is reset to the lower bound.
func NewControl(a *alarm.Alarm, minValue, maxValue float64, label func(text string)) (*Control, error) {
	if !finite(minValue) || !finite(maxValue) || minValue >= maxValue {
		return nil, fmt.Errorf("%w: [%v, %v]", errInvalidBounds, minValue, maxValue)
	}

	if label == nil {
		label = func(string) {}
	}

	c := &Control{
		alarm: a,
		min:   minValue,
		max:   maxValue,
		label: label,
	}

	initial := a.Threshold()
	if math.IsNaN(initial) {
		initial = minValue
	}

	c.Set(initial)

	return c, nil
}

// Value returns the current threshold.
func (c *Control) Value() float64 {
	return c.alarm.Threshold()
}

// Set clamps v into the bounds, applies it and refreshes the label.
// NaN is ignored and the current threshold is returned unchanged.
func (c *Control) Set(v float64) float64 {
	if math.IsNaN(v) {
		return c.alarm.Threshold()
	}

	v = min(max(v, c.min), c.max)

	c.alarm.SetThreshold(v)
	c.label(FormatThreshold(v))

	return v
}

// finite reports whether v is neither NaN nor infinite.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FormatThreshold renders a threshold for display.
func FormatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Serve reads one threshold per line from r until EOF or ctx is done.
// Blank lines are ignored and invalid lines are logged.
// After ctx is done the reader goroutine may stay blocked in Scan until r
// yields or the process exits. With stdin in the CLI that is harmless.
func (c *Control) Serve(ctx context.Context, r io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read threshold input: %w", err)
					}
				default:
				}

				return nil
			}

			c.apply(ctx, line)
		}
	}
}

// apply parses and sets one input line.
func (c *Control) apply(ctx context.Context, line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}

	v, err := strconv.ParseFloat(line, 64)
	if err != nil || math.IsNaN(v) {
		logger.WarnKV(ctx, "Ignoring invalid threshold", "input", line)

		return
	}

	applied := c.Set(v)
	if applied != v {
		logger.InfoKV(ctx, "Threshold clamped", "requested", v, "min", c.min, "max", c.max)
	}
}
