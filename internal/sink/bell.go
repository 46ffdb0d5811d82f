package sink

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/oshokin/light-alarm/internal/logger"
)

// bellCharacter rings the terminal bell.
const bellCharacter = "\a"

// BellSink rings the terminal bell and holds the alert for Duration.
type BellSink struct {
	// Duration is how long the alert lasts.
	Duration time.Duration

	// out receives the bell character.
	out io.Writer
	// mu serializes writes to out.
	mu sync.Mutex
}

// NewBellSink creates a bell sink writing to out, or stdout when out is nil.
func NewBellSink(out io.Writer, duration time.Duration) *BellSink {
	if out == nil {
		out = os.Stdout
	}

	return &BellSink{
		Duration: duration,
		out:      out,
	}
}

// Name implements Sink.
func (*BellSink) Name() string {
	return "bell"
}

// Play implements Sink.
func (s *BellSink) Play(ctx context.Context, alert Alert, done func()) {
	done = Once(done)

	s.mu.Lock()
	_, err := io.WriteString(s.out, bellCharacter)
	s.mu.Unlock()

	if err != nil {
		logger.WarnKV(ctx, "Bell write failed", "alert_id", alert.ID, "error", err)
	}

	hold(s.Duration, done)
}
