package sink

import (
	"context"
	"time"

	"github.com/oshokin/light-alarm/internal/logger"
)

// LogSink only writes the alert to the log. Useful headless and in tests.
type LogSink struct {
	// Duration is how long the alert counts as playing.
	Duration time.Duration
}

// Name implements Sink.
func (*LogSink) Name() string {
	return "log"
}

// Play implements Sink.
func (s *LogSink) Play(ctx context.Context, alert Alert, done func()) {
	logger.WarnKV(ctx, "Too dark",
		"alert_id", alert.ID,
		"brightness", alert.Reading.String(),
		"threshold", alert.Threshold,
		"frame", alert.FrameSeq,
	)

	hold(s.Duration, Once(done))
}
