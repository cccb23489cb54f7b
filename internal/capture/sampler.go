package capture

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/image/draw"
)

const frameBuffer = 8

// SamplerConfig controls cadence and encoding of one sampler.
type SamplerConfig struct {
	// Interval between samples in Run. Zero defaults to 3s.
	Interval time.Duration
	// Quality is the JPEG quality (1-100). Zero defaults to 80.
	Quality int
	// MaxWidth scales wider frames down before encoding. Zero disables.
	MaxWidth int
	// Source tags produced frames (domain.SourcePrimary / SourceSecondary).
	Source string
}

// Sampler captures stills from a Source on demand or on a fixed interval.
type Sampler struct {
	src    Source
	cfg    SamplerConfig
	logger *slog.Logger
	seq    atomic.Uint64
	out    chan Frame
	now    func() time.Time
}

func NewSampler(src Source, cfg SamplerConfig, logger *slog.Logger) *Sampler {
	if cfg.Interval == 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.Quality == 0 {
		cfg.Quality = 80
	}

	return &Sampler{
		src:    src,
		cfg:    cfg,
		logger: logger,
		out:    make(chan Frame, frameBuffer),
		now:    time.Now,
	}
}

// Sample captures and encodes one frame. A source that is not yet playing
// (no image, or zero intrinsic dimensions) yields (nil, nil): no frame
// available this cycle, not an error. Encoding failures are returned.
func (s *Sampler) Sample(ctx context.Context) (*Frame, error) {
	img, err := s.src.Snapshot(ctx)
	if err == ErrNotPlaying {
		s.logger.Debug("source not playing, skipping sample", "source", s.cfg.Source)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		s.logger.Debug("source has zero dimensions, skipping sample", "source", s.cfg.Source)
		return nil, nil
	}

	if s.cfg.MaxWidth > 0 && bounds.Dx() > s.cfg.MaxWidth {
		img = scaleToWidth(img, s.cfg.MaxWidth)
		bounds = img.Bounds()
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: s.cfg.Quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	frame := Frame{
		Seq:        s.seq.Add(1),
		Data:       buf.Bytes(),
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		CapturedAt: s.now(),
		Source:     s.cfg.Source,
	}
	if dr, ok := s.src.(DegradedReporter); ok && dr.Degraded() {
		frame.Degraded = true
	}

	return &frame, nil
}

// Run samples on the configured interval until ctx is done, pushing frames
// to Frames(). Slow consumers lose frames rather than stalling capture.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := s.Sample(ctx)
			if err != nil {
				s.logger.Warn("sample failed", "source", s.cfg.Source, "error", err)
				continue
			}
			if frame == nil {
				continue
			}

			select {
			case s.out <- *frame:
			default:
				s.logger.Debug("frame consumer is slow, dropping frame",
					"source", s.cfg.Source, "seq", frame.Seq)
			}
		}
	}
}

func (s *Sampler) Frames() <-chan Frame {
	return s.out
}

func scaleToWidth(img image.Image, width int) image.Image {
	bounds := img.Bounds()
	height := bounds.Dy() * width / bounds.Dx()
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}
