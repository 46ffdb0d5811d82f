package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/pion/mediadevices"
	_ "github.com/pion/mediadevices/pkg/driver/camera" // Registers the platform camera driver.
	"github.com/pion/mediadevices/pkg/prop"
)

// Preset is the capture quality. Brightness needs very few pixels,
// so the low preset is the default.
type Preset string

const (
	// PresetLow captures 192x144.
	PresetLow Preset = "low"
	// PresetMedium captures 480x360.
	PresetMedium Preset = "medium"
	// PresetHigh captures 1280x720.
	PresetHigh Preset = "high"
)

// errUnknownPreset is returned for an unsupported preset name.
var errUnknownPreset = errors.New("unknown camera preset")

// Resolution returns the frame size requested for the preset.
func (p Preset) Resolution() (width, height int, err error) {
	switch p {
	case PresetLow, "":
		return 192, 144, nil
	case PresetMedium:
		return 480, 360, nil
	case PresetHigh:
		return 1280, 720, nil
	default:
		return 0, 0, fmt.Errorf("%w: %q", errUnknownPreset, p)
	}
}

// CameraSource reads raw frames from a local camera.
// Frames carry pixels and no exposure metadata, so pair it with LumaExtractor.
type CameraSource struct {
	// Device is a device id or a case-insensitive label fragment; empty picks the first camera.
	Device string
	// Preset selects the capture resolution.
	Preset Preset
	// FPS is the requested frame rate.
	FPS float64
}

// Name implements Source.
func (s *CameraSource) Name() string {
	if s.Device == "" {
		return "camera"
	}

	return "camera:" + s.Device
}

// selectDevice returns the id of the first video input matching s.Device.
func (s *CameraSource) selectDevice(devices []mediadevices.MediaDeviceInfo) (string, error) {
	needle := strings.ToLower(s.Device)

	for _, d := range devices {
		if d.Kind != mediadevices.VideoInput {
			continue
		}

		if needle == "" || d.DeviceID == s.Device || strings.Contains(strings.ToLower(d.Label), needle) {
			return d.DeviceID, nil
		}
	}

	if needle == "" {
		return "", ErrNoDevice
	}

	return "", fmt.Errorf("%w: %q", ErrNoDevice, s.Device)
}

// open starts the capture session and returns its video track.
func (s *CameraSource) open() (*mediadevices.VideoTrack, error) {
	width, height, err := s.Preset.Resolution()
	if err != nil {
		return nil, err
	}

	deviceID, err := s.selectDevice(mediadevices.EnumerateDevices())
	if err != nil {
		return nil, err
	}

	fps := s.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: func(c *mediadevices.MediaTrackConstraints) {
			c.DeviceID = prop.String(deviceID)
			c.Width = prop.Int(width)
			c.Height = prop.Int(height)
			c.FrameRate = prop.Float(fps)
		},
	})
	if err != nil {
		return nil, classifyOpenError(err)
	}

	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		return nil, ErrNoDevice
	}

	track, ok := tracks[0].(*mediadevices.VideoTrack)
	if !ok {
		_ = tracks[0].Close()

		return nil, fmt.Errorf("%w: unexpected track type %T", ErrNoDevice, tracks[0])
	}

	return track, nil
}

// classifyOpenError maps driver errors to the package errors.
func classifyOpenError(err error) error {
	if errors.Is(err, fs.ErrPermission) || strings.Contains(strings.ToLower(err.Error()), "permission denied") {
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}

	return fmt.Errorf("open camera: %w", err)
}

// Run implements Source.
func (s *CameraSource) Run(ctx context.Context, handle Handler) error {
	track, err := s.open()
	if err != nil {
		return err
	}

	stopped := make(chan struct{})
	defer close(stopped)

	// Closing the track unblocks a pending Read.
	go func() {
		select {
		case <-ctx.Done():
		case <-stopped:
		}

		_ = track.Close()
	}()

	reader := track.NewReader(false)

	for seq := uint64(1); ; seq++ {
		img, release, err := reader.Read()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("read frame: %w", err)
		}

		handle(ctx, &Frame{
			Seq:       seq,
			Timestamp: time.Now(),
			Metadata:  map[string]any{},
			Image:     img,
		})

		release()
	}
}
