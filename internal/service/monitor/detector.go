package monitor

import (
	"context"
	"sync/atomic"

	"github.com/oshokin/light-alarm/internal/capture"
	"github.com/oshokin/light-alarm/internal/domain/alarm"
	"github.com/oshokin/light-alarm/internal/logger"
	"github.com/oshokin/light-alarm/internal/sink"
)

// Stats are the detector counters.
type Stats struct {
	// Frames is the number of frames handled.
	Frames uint64
	// Missing is the number of frames without a brightness reading.
	Missing uint64
	// Triggers is the number of alerts started.
	Triggers uint64
	// Completions is the number of alerts that re-armed the alarm.
	Completions uint64
}

// Detector is the per-frame callback of a capture session.
type Detector struct {
	// alarm decides whether a reading starts an alert.
	alarm *alarm.Alarm
	// extractor reads brightness from frames.
	extractor capture.BrightnessExtractor
	// sink plays alerts.
	sink sink.Sink
	// observers are notified of every frame before evaluation.
	observers []capture.Observer

	frames      atomic.Uint64
	missing     atomic.Uint64
	triggers    atomic.Uint64
	completions atomic.Uint64
}

// NewDetector wires an alarm to an extractor and a sink.
func NewDetector(a *alarm.Alarm, extractor capture.BrightnessExtractor, s sink.Sink) *Detector {
	return &Detector{
		alarm:     a,
		extractor: extractor,
		sink:      s,
	}
}

// Observe registers an observer. Call it before the session starts.
func (d *Detector) Observe(o capture.Observer) {
	d.observers = append(d.observers, o)
}

// HandleFrame implements capture.Handler. It never blocks on the sink.
func (d *Detector) HandleFrame(ctx context.Context, frame *capture.Frame) {
	d.frames.Add(1)

	for _, o := range d.observers {
		o.Captured(ctx, frame)
	}

	reading := d.extractor.Brightness(frame)
	if !reading.Valid {
		d.missing.Add(1)
	}

	logger.DebugKV(ctx, "Brightness", "frame", frame.Seq, "value", reading.String())

	decision, token := d.alarm.Evaluate(reading)
	if decision != alarm.Trigger {
		return
	}

	d.triggers.Add(1)

	alert := sink.NewAlert(token, reading, d.alarm.Threshold(), frame.Seq)
	alertCtx := logger.WithKV(ctx, "alert_id", alert.ID.String())

	logger.InfoKV(alertCtx, "Brightness below threshold, alerting",
		"brightness", reading.String(),
		"threshold", alert.Threshold,
		"frame", frame.Seq,
	)

	d.sink.Play(alertCtx, alert, func() {
		if d.alarm.Complete(token) {
			d.completions.Add(1)
			logger.DebugKV(alertCtx, "Alert finished, alarm re-armed")

			return
		}

		logger.WarnKV(alertCtx, "Ignoring stale alert completion")
	})
}

// Stop disables new alerts. An alert in flight keeps playing.
func (d *Detector) Stop() {
	d.alarm.Stop()
}

// Stats returns a snapshot of the counters.
func (d *Detector) Stats() Stats {
	return Stats{
		Frames:      d.frames.Load(),
		Missing:     d.missing.Load(),
		Triggers:    d.triggers.Load(),
		Completions: d.completions.Load(),
	}
}
