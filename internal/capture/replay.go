package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// errEmptyReplay is returned when a replay file holds no frames.
var errEmptyReplay = errors.New("replay has no frames")

// errInvalidReplayFPS is returned for a negative or unrealistic replay rate.
var errInvalidReplayFPS = errors.New("invalid replay fps")

// replayDocument is the on-disk replay format.
//
//	fps: 10
//	loop: true
//	frames:
//	  - 1.5                              # shorthand for {Exif}/BrightnessValue
//	  - {"{Exif}": {BrightnessValue: -2}} # raw attachments
//	  - {}                               # frame without brightness
type replayDocument struct {
	// FPS is the playback rate.
	FPS float64 `yaml:"fps"`
	// Loop restarts playback after the last frame.
	Loop bool `yaml:"loop"`
	// Frames are metadata dictionaries or bare brightness numbers.
	Frames []any `yaml:"frames"`
}

// ReplaySource plays recorded frame metadata at a fixed rate.
type ReplaySource struct {
	// name is the replay file path, used in logs.
	name string
	// frames holds the metadata of every frame in playback order.
	frames []map[string]any
	// interval is the time between two frames.
	interval time.Duration
	// loop restarts playback after the last frame.
	loop bool
}

// ReplayOption overrides values read from the replay file.
type ReplayOption func(*ReplaySource)

// WithReplayFPS overrides the playback rate.
func WithReplayFPS(fps float64) ReplayOption {
	return func(s *ReplaySource) {
		if fps > 0 {
			s.interval = frameInterval(fps)
		}
	}
}

// WithReplayLoop overrides looping.
func WithReplayLoop(loop bool) ReplayOption {
	return func(s *ReplaySource) {
		s.loop = loop
	}
}

// NewReplaySource loads a replay file.
func NewReplaySource(path string, opts ...ReplayOption) (*ReplaySource, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open replay: %w", err)
	}

	defer func() {
		_ = f.Close()
	}()

	source, err := ReadReplay(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", path, err)
	}

	source.name = path

	return source, nil
}

// ReadReplay decodes a replay document from r.
func ReadReplay(r io.Reader, opts ...ReplayOption) (*ReplaySource, error) {
	var doc replayDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode replay: %w", err)
	}

	if len(doc.Frames) == 0 {
		return nil, errEmptyReplay
	}

	if !ValidFPS(doc.FPS) {
		return nil, fmt.Errorf("%w: %v", errInvalidReplayFPS, doc.FPS)
	}

	source := &ReplaySource{
		name:     "replay",
		frames:   make([]map[string]any, 0, len(doc.Frames)),
		interval: frameInterval(doc.FPS),
		loop:     doc.Loop,
	}

	for _, raw := range doc.Frames {
		source.frames = append(source.frames, replayMetadata(raw))
	}

	for _, opt := range opts {
		opt(source)
	}

	return source, nil
}

// replayMetadata turns one replay entry into frame metadata.
func replayMetadata(raw any) map[string]any {
	if value, ok := asFloat(raw); ok {
		if _, isString := raw.(string); !isString {
			return ExifMetadata(value)
		}
	}

	if dict, ok := asDictionary(raw); ok {
		return dict
	}

	return map[string]any{}
}

// ExifMetadata builds attachments carrying brightness the way cameras report it.
func ExifMetadata(brightness float64) map[string]any {
	return map[string]any{
		ExifDictionaryKey: map[string]any{
			ExifBrightnessKey: brightness,
		},
	}
}

// Name implements Source.
func (s *ReplaySource) Name() string {
	return s.name
}

// Len returns the number of frames in one pass.
func (s *ReplaySource) Len() int {
	return len(s.frames)
}

// Run implements Source.
func (s *ReplaySource) Run(ctx context.Context, handle Handler) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var seq uint64

	for {
		for _, metadata := range s.frames {
			select {
			case <-ctx.Done():
				return nil
			case now := <-ticker.C:
				seq++
				handle(ctx, &Frame{
					Seq:       seq,
					Timestamp: now,
					Metadata:  metadata,
				})
			}
		}

		if !s.loop {
			return nil
		}
	}
}
