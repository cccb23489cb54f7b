// Package capture turns live video sources into sampled JPEG frames for the
// detection pipeline. A Source is anything that can yield its current image:
// an MJPEG camera stream, the remote camera bridge, or a fixture in tests.
package capture

import (
	"context"
	"errors"
	"image"
	"image/color"
	"time"
)

// ErrNotPlaying means the source has not produced a frame yet. Samplers
// treat it as "no frame available" and skip the cycle.
var ErrNotPlaying = errors.New("source has no frame yet")

type Source interface {
	Snapshot(ctx context.Context) (image.Image, error)
}

// DegradedReporter is implemented by sources that can serve placeholder
// content (e.g. the remote bridge while reconnecting). Frames sampled from
// a degraded source are tagged so detectors can down-weight them.
type DegradedReporter interface {
	Degraded() bool
}

// Frame is one encoded still image plus its sequence index. Seq is
// monotonic per sampler and tags analysis requests so late responses for
// older frames can be rejected.
type Frame struct {
	Seq        uint64
	Data       []byte
	Width      int
	Height     int
	CapturedAt time.Time
	Source     string
	Degraded   bool
}

// SolidImage returns a uniformly filled RGBA image.
func SolidImage(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

// StaticSource serves a fixed image. Used by tests and as the screen-share
// stand-in when no stream is configured.
type StaticSource struct {
	img image.Image
}

func NewStaticSource(img image.Image) *StaticSource {
	return &StaticSource{img: img}
}

func (s *StaticSource) Snapshot(_ context.Context) (image.Image, error) {
	if s.img == nil {
		return nil, ErrNotPlaying
	}
	return s.img, nil
}
