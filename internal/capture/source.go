package capture

import (
	"context"
	"errors"
	"image"
	"math"
	"time"
)

var (
	// ErrPermissionDenied is returned when the capture device refuses access.
	ErrPermissionDenied = errors.New("capture permission denied")
	// ErrNoDevice is returned when no matching capture device exists.
	ErrNoDevice = errors.New("no capture device found")
	// ErrUnknownSource is returned for an unsupported source type.
	ErrUnknownSource = errors.New("unknown capture source")
)

// Frame is one captured video frame.
type Frame struct {
	// Seq is the capture order, starting at 1.
	Seq uint64
	// Timestamp is when the frame was captured.
	Timestamp time.Time
	// Metadata holds the frame attachments, possibly nested dictionaries.
	Metadata map[string]any
	// Image holds the pixels when the source provides them.
	// It is only valid until the handler returns.
	Image image.Image
}

// Handler processes one frame. Sources never call it concurrently.
type Handler func(ctx context.Context, frame *Frame)

// Source produces frames until its context is done or it runs out.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Run calls handle for every frame in capture order and blocks until
	// ctx is done or the source is exhausted.
	Run(ctx context.Context, handle Handler) error
}

// Observer is notified of every captured frame.
type Observer interface {
	// Captured is called on the source goroutine before the frame is evaluated.
	// The frame must not be retained after it returns.
	Captured(ctx context.Context, frame *Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, frame *Frame)

// Captured implements Observer.
func (f ObserverFunc) Captured(ctx context.Context, frame *Frame) {
	f(ctx, frame)
}

// frameInterval converts a frame rate into a tick period.
// Rates above MaxFPS are capped, so the period is never zero.
func frameInterval(fps float64) time.Duration {
	if !(fps > 0) {
		fps = DefaultFPS
	}

	return time.Duration(float64(time.Second) / min(fps, MaxFPS))
}

// ValidFPS reports whether fps is usable as a frame rate.
// Zero selects DefaultFPS.
func ValidFPS(fps float64) bool {
	return !math.IsNaN(fps) && fps >= 0 && fps <= MaxFPS
}

const (
	// DefaultFPS is used by sources configured without a frame rate.
	DefaultFPS = 15
	// MaxFPS is the highest accepted frame rate.
	MaxFPS = 1000
)
