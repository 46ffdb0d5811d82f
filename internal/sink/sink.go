package sink

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/light-alarm/internal/domain/alarm"
)

// DefaultDuration is how long timed sinks hold an alert.
const DefaultDuration = time.Second

// ErrUnknownSink is returned for an unsupported sink type.
var ErrUnknownSink = errors.New("unknown alert sink")

// Alert describes one triggered alarm.
type Alert struct {
	// ID correlates log lines of one alert.
	ID uuid.UUID
	// Token is the alarm arming this alert belongs to.
	Token alarm.Token
	// Reading is the brightness that triggered the alert.
	Reading alarm.Reading
	// Threshold is the threshold in effect at trigger time.
	Threshold float64
	// FrameSeq is the sequence number of the triggering frame.
	FrameSeq uint64
	// At is when the alert was triggered.
	At time.Time
}

// NewAlert creates an alert with a fresh random id.
func NewAlert(token alarm.Token, reading alarm.Reading, threshold float64, frameSeq uint64) Alert {
	return Alert{
		ID:        uuid.New(),
		Token:     token,
		Reading:   reading,
		Threshold: threshold,
		FrameSeq:  frameSeq,
		At:        time.Now(),
	}
}

// Sink plays alerts.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string
	// Play starts the alert without blocking and calls done once it ends.
	Play(ctx context.Context, alert Alert, done func())
}

// Once wraps done so that only its first call has an effect.
// A nil done becomes a no-op.
func Once(done func()) func() {
	if done == nil {
		return func() {}
	}

	var once sync.Once

	return func() {
		once.Do(done)
	}
}

// detach keeps ctx values such as the logger but drops its cancellation,
// so a session shutdown does not cut an alert short.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// hold calls done after d, or at once when d is not positive.
func hold(d time.Duration, done func()) {
	if d <= 0 {
		go done()

		return
	}

	time.AfterFunc(d, done)
}
