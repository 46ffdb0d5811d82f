package capture

import (
	"context"
	"math"
	"time"
)

// SyntheticSource generates a sine wave of brightness between Min and Max.
// It stands in for a camera in demos and tests.
type SyntheticSource struct {
	// Min is the darkest brightness produced.
	Min float64
	// Max is the brightest brightness produced.
	Max float64
	// Period is the length of one dark-bright cycle.
	Period time.Duration
	// FPS is the frame rate.
	FPS float64
	// Limit stops the source after that many frames; zero means unlimited.
	Limit uint64
}

// Name implements Source.
func (s *SyntheticSource) Name() string {
	return "synthetic"
}

// BrightnessAt returns the brightness of frame seq (starting at 1).
// The wave starts at Max so the first frames are bright.
func (s *SyntheticSource) BrightnessAt(seq uint64) float64 {
	interval := frameInterval(s.FPS)

	period := s.Period
	if period <= 0 {
		period = time.Minute
	}

	elapsed := time.Duration(seq-1) * interval
	phase := 2 * math.Pi * float64(elapsed) / float64(period)
	mid := (s.Max + s.Min) / 2
	amplitude := (s.Max - s.Min) / 2

	return mid + amplitude*math.Cos(phase)
}

// Run implements Source.
func (s *SyntheticSource) Run(ctx context.Context, handle Handler) error {
	ticker := time.NewTicker(frameInterval(s.FPS))
	defer ticker.Stop()

	for seq := uint64(1); s.Limit == 0 || seq <= s.Limit; seq++ {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			handle(ctx, &Frame{
				Seq:       seq,
				Timestamp: now,
				Metadata:  ExifMetadata(s.BrightnessAt(seq)),
			})
		}
	}

	return nil
}
