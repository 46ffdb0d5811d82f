package alarm

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
)

// Decision is the result of evaluating one reading.
type Decision int

const (
	// NoTrigger means nothing has to be done for this frame.
	NoTrigger Decision = iota
	// Trigger means the caller must start an alert and report its completion.
	Trigger
)

// String implements fmt.Stringer.
func (d Decision) String() string {
	if d == Trigger {
		return "trigger"
	}

	return "no-trigger"
}

// Token identifies one armed period of a State. Zero is never a valid token.
type Token uint64

// ErrUnknownMissingPolicy is returned for an unsupported missing-reading policy name.
var ErrUnknownMissingPolicy = errors.New("unknown missing reading policy")

// closedIdle is returned by Idle while no alert is in flight.
//
//nolint:gochecknoglobals // Shared closed channel, never sent on.
var closedIdle = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)

	return ch
}()

// State is the single alarm channel.
// It holds zero while idle and the token of the alert in flight otherwise.
// Reads are lock-free; arming and releasing take mu.
// The zero value is an idle state ready for use.
type State struct {
	// current is the token of the alert in flight, zero when idle.
	current atomic.Uint64
	// mu serializes arming and releasing.
	mu sync.Mutex
	// issued is the last token handed out. Guarded by mu.
	issued uint64
	// idle is closed when the alert in flight is released. Guarded by mu.
	idle chan struct{}
}

// Playing reports whether an alert is in flight.
func (s *State) Playing() bool {
	return s.current.Load() != 0
}

// Current returns the token of the alert in flight, or zero.
func (s *State) Current() Token {
	return Token(s.current.Load())
}

// Idle returns a channel closed once no alert is in flight.
func (s *State) Idle() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.idle == nil {
		return closedIdle
	}

	return s.idle
}

// TryArm moves the state from idle to armed.
// It returns the new token, or false if an alert is already in flight.
func (s *State) TryArm() (Token, bool) {
	if s.current.Load() != 0 {
		return 0, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Load() != 0 {
		return 0, false
	}

	s.issued++
	if s.issued == 0 {
		s.issued++
	}

	s.current.Store(s.issued)
	s.idle = make(chan struct{})

	return Token(s.issued), true
}

// Release moves the state back to idle if it is still armed with token.
// A stale or repeated release is ignored and reported as false.
func (s *State) Release(token Token) bool {
	if token == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current.Load() != uint64(token) {
		return false
	}

	s.current.Store(0)
	close(s.idle)
	s.idle = nil

	return true
}

// Evaluate is the bare alarm rule: it arms state and returns Trigger when
// reading is valid, strictly below threshold, and no alert is in flight.
func Evaluate(reading Reading, threshold float64, state *State) (Decision, Token) {
	if !reading.Valid || !(reading.Value < threshold) {
		return NoTrigger, 0
	}

	token, ok := state.TryArm()
	if !ok {
		return NoTrigger, 0
	}

	return Trigger, token
}

// Alarm couples a live threshold with a State.
// Evaluate is called from the frame goroutine; SetThreshold and Complete may be
// called from any goroutine.
type Alarm struct {
	// threshold holds the math.Float64bits of the current threshold.
	threshold atomic.Uint64
	// state is the single alarm channel.
	state State
	// stopped disables new triggers once the capture session is over.
	stopped atomic.Bool
	// missing decides how readings without a value are evaluated.
	missing MissingPolicy
}

// Option configures an Alarm.
type Option func(*Alarm)

// WithMissingPolicy sets how invalid readings are evaluated.
func WithMissingPolicy(p MissingPolicy) Option {
	return func(a *Alarm) {
		if p != "" {
			a.missing = p
		}
	}
}

// New creates an idle alarm with the given initial threshold.
func New(threshold float64, opts ...Option) *Alarm {
	a := &Alarm{
		missing: MissingSkip,
	}

	a.SetThreshold(threshold)

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Threshold returns the current threshold.
func (a *Alarm) Threshold() float64 {
	return math.Float64frombits(a.threshold.Load())
}

// SetThreshold replaces the threshold. The next evaluated frame sees the new value.
func (a *Alarm) SetThreshold(v float64) {
	a.threshold.Store(math.Float64bits(v))
}

// MissingPolicy returns the policy used for invalid readings.
func (a *Alarm) MissingPolicy() MissingPolicy {
	return a.missing
}

// Evaluate decides whether reading starts a new alert.
// On Trigger the returned token must be passed to Complete once the alert ends.
func (a *Alarm) Evaluate(reading Reading) (Decision, Token) {
	if a.stopped.Load() {
		return NoTrigger, 0
	}

	value, ok := a.missing.resolve(reading)
	if !ok {
		return NoTrigger, 0
	}

	return Evaluate(NewReading(value), a.Threshold(), &a.state)
}

// Complete re-arms the alarm after the alert identified by token finished.
// It returns false for a token that is not the one in flight.
func (a *Alarm) Complete(token Token) bool {
	return a.state.Release(token)
}

// Playing reports whether an alert is in flight.
func (a *Alarm) Playing() bool {
	return a.state.Playing()
}

// Stop disables the alarm. An alert already in flight is left to finish.
func (a *Alarm) Stop() {
	a.stopped.Store(true)
}

// Stopped reports whether Stop was called.
func (a *Alarm) Stopped() bool {
	return a.stopped.Load()
}

// WaitIdle blocks until no alert is in flight or ctx is done.
func (a *Alarm) WaitIdle(ctx context.Context) error {
	select {
	case <-a.state.Idle():
		return nil
	case <-ctx.Done():
		if !a.Playing() {
			return nil
		}

		return ctx.Err()
	}
}
