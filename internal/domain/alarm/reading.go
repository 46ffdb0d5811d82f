package alarm

import (
	"fmt"
	"math"
)

// Reading is one brightness value taken from a frame.
// Values are in camera brightness units (APEX-like, negative in low light).
type Reading struct {
	// Value is the brightness. It is meaningless when Valid is false.
	Value float64
	// Valid reports whether the frame carried a usable brightness value.
	Valid bool
}

// NoReading is the reading of a frame without brightness information.
//
//nolint:gochecknoglobals // Zero value sentinel, never mutated.
var NoReading = Reading{}

// NewReading returns a valid reading. NaN and infinities are not valid.
func NewReading(value float64) Reading {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return NoReading
	}

	return Reading{
		Value: value,
		Valid: true,
	}
}

// String implements fmt.Stringer.
func (r Reading) String() string {
	if !r.Valid {
		return "<none>"
	}

	return fmt.Sprintf("%.3f", r.Value)
}

// MissingPolicy decides how an invalid reading is evaluated.
type MissingPolicy string

const (
	// MissingSkip evaluates an invalid reading as NoTrigger.
	MissingSkip MissingPolicy = "skip"
	// MissingZero evaluates an invalid reading as 0.0.
	// With a negative threshold this never triggers, with a positive one it always does.
	MissingZero MissingPolicy = "zero"
)

// ParseMissingPolicy validates a policy name. Empty means MissingSkip.
func ParseMissingPolicy(s string) (MissingPolicy, error) {
	switch MissingPolicy(s) {
	case "", MissingSkip:
		return MissingSkip, nil
	case MissingZero:
		return MissingZero, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMissingPolicy, s)
	}
}

// resolve applies the policy to r. The second result is false when
// the reading must not be evaluated at all.
func (p MissingPolicy) resolve(r Reading) (float64, bool) {
	if r.Valid {
		return r.Value, true
	}

	if p == MissingZero {
		return 0, true
	}

	return 0, false
}
