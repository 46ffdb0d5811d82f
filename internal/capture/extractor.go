package capture

import (
	"image"
	"math"
	"strconv"
	"strings"

	"github.com/oshokin/light-alarm/internal/domain/alarm"
)

const (
	// ExifDictionaryKey is the attachment key of the EXIF dictionary.
	ExifDictionaryKey = "{Exif}"
	// ExifBrightnessKey is the EXIF brightness value key.
	ExifBrightnessKey = "BrightnessValue"

	// middleGrey is the mean luma that maps to brightness 0.
	middleGrey = 0.18
	// lumaSampleGrid is the number of samples per axis taken by LumaExtractor.
	lumaSampleGrid = 32
)

// BrightnessExtractor reads the brightness of a frame.
type BrightnessExtractor interface {
	Brightness(frame *Frame) alarm.Reading
}

// ExtractorFunc adapts a function to BrightnessExtractor.
type ExtractorFunc func(frame *Frame) alarm.Reading

// Brightness implements BrightnessExtractor.
func (f ExtractorFunc) Brightness(frame *Frame) alarm.Reading {
	return f(frame)
}

// MetadataExtractor walks nested metadata dictionaries along Path.
type MetadataExtractor struct {
	// Path lists the keys from the top-level dictionary to the value.
	Path []string
}

// NewExifExtractor returns an extractor for {Exif}/BrightnessValue.
func NewExifExtractor() *MetadataExtractor {
	return &MetadataExtractor{
		Path: []string{ExifDictionaryKey, ExifBrightnessKey},
	}
}

// ParseMetadataPath splits a slash separated key path, e.g. "{Exif}/BrightnessValue".
func ParseMetadataPath(s string) []string {
	var path []string

	for _, key := range strings.Split(s, "/") {
		if key = strings.TrimSpace(key); key != "" {
			path = append(path, key)
		}
	}

	return path
}

// Brightness implements BrightnessExtractor.
func (e *MetadataExtractor) Brightness(frame *Frame) alarm.Reading {
	if frame == nil || len(e.Path) == 0 {
		return alarm.NoReading
	}

	var current any = frame.Metadata

	for _, key := range e.Path {
		dict, ok := asDictionary(current)
		if !ok {
			return alarm.NoReading
		}

		if current, ok = dict[key]; !ok {
			return alarm.NoReading
		}
	}

	value, ok := asFloat(current)
	if !ok {
		return alarm.NoReading
	}

	return alarm.NewReading(value)
}

// asDictionary accepts the map shapes produced by YAML decoding and by sources.
func asDictionary(v any) (map[string]any, bool) {
	switch dict := v.(type) {
	case map[string]any:
		return dict, true
	case map[any]any:
		converted := make(map[string]any, len(dict))

		for k, value := range dict {
			if key, ok := k.(string); ok {
				converted[key] = value
			}
		}

		return converted, true
	default:
		return nil, false
	}
}

// asFloat converts numeric metadata values.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}

		return f, true
	default:
		return 0, false
	}
}

// LumaExtractor estimates brightness from pixels for sources without exposure metadata.
// The result is log2(mean luma / 0.18), so middle grey reads 0 and every halving
// of light subtracts 1, close to the APEX scale cameras report.
type LumaExtractor struct{}

// Brightness implements BrightnessExtractor.
func (LumaExtractor) Brightness(frame *Frame) alarm.Reading {
	if frame == nil || frame.Image == nil {
		return alarm.NoReading
	}

	mean, ok := meanLuma(frame.Image)
	if !ok || mean <= 0 {
		return alarm.NoReading
	}

	return alarm.NewReading(math.Log2(mean / middleGrey))
}

// meanLuma averages Rec.601 luma in [0, 1] over a sample grid.
func meanLuma(img image.Image) (float64, bool) {
	bounds := img.Bounds()
	if bounds.Empty() {
		return 0, false
	}

	stepX := max(bounds.Dx()/lumaSampleGrid, 1)
	stepY := max(bounds.Dy()/lumaSampleGrid, 1)

	var (
		sum   float64
		count int
	)

	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			r, g, b, _ := img.At(x, y).RGBA()
			sum += (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 0xffff
			count++
		}
	}

	return sum / float64(count), true
}

// Chain tries extractors in order and returns the first valid reading.
type Chain []BrightnessExtractor

// Brightness implements BrightnessExtractor.
func (c Chain) Brightness(frame *Frame) alarm.Reading {
	for _, e := range c {
		if r := e.Brightness(frame); r.Valid {
			return r
		}
	}

	return alarm.NoReading
}
