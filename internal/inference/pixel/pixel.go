// Package pixel implements a local frame analyzer that works on raw pixel
// statistics only. It is the fallback when no analysis service is reachable
// and every reading it produces is tagged degraded.
package pixel

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"

	"github.com/examtrace/vigil/internal/inference"
)

const (
	// blackBrightness marks a frame as black below this mean luma
	blackBrightness = 10.0
	// flatVariance marks a frame as uniform (covered lens, solid color)
	flatVariance = 10.0
	// coveredBrightness is the level under which a camera counts as obstructed
	coveredBrightness = 50.0
	// skinRatio is the share of skin-toned pixels that suggests a face
	skinRatio = 0.04
	// sampleStride skips pixels to keep analysis cheap on large frames
	sampleStride = 2
)

// Provider implements inference.Analyzer with pixel heuristics
type Provider struct{}

// NewProvider creates the pixel fallback analyzer
func NewProvider() *Provider {
	return &Provider{}
}

// frameStats holds the aggregate pixel measurements for one frame
type frameStats struct {
	brightness float64
	variance   float64
	skinShare  float64
}

// AnalyzeFrame decodes the frame and derives face presence from brightness
// and skin-tone share. It cannot count faces or follow gaze, so the gaze
// reading is marked invalid and nothing beyond presence is reported.
func (p *Provider) AnalyzeFrame(ctx context.Context, frame []byte) (*inference.FrameInsight, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	stats := measure(img)

	insight := &inference.FrameInsight{
		Gaze:           inference.GazeReading{Valid: false},
		Degraded:       true,
		DegradedReason: "pixel heuristics only",
	}

	if stats.brightness < blackBrightness || stats.variance < flatVariance {
		insight.BlackScreen = true
		insight.Face = &inference.FaceReading{Count: 0, Brightness: stats.brightness}
		return insight, nil
	}

	face := &inference.FaceReading{Brightness: stats.brightness}
	switch {
	case stats.brightness < coveredBrightness:
		// Too dark to trust any detection; treat as an obstructed camera.
		face.Count = 0
	case stats.skinShare >= skinRatio:
		face.Count = 1
		face.Confidence = confidenceFromShare(stats.skinShare)
	default:
		face.Count = 0
	}
	insight.Face = face

	return insight, nil
}

// AnalyzeWorkspace produces a local fallback report for the secondary
// camera. Only black screens are detectable; everything else gets neutral
// scores so it neither raises nor clears workspace violations.
func (p *Provider) AnalyzeWorkspace(ctx context.Context, sessionID string, frame []byte) (*inference.WorkspaceReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	stats := measure(img)

	report := &inference.WorkspaceReport{
		OverallCompliance:   0.5,
		ViolationPrevention: 0.5,
		HandPlacement:       0.5,
		KeyboardVisibility:  0.5,
		Fallback:            true,
		FallbackReason:      "pixel heuristics only",
	}
	if stats.brightness < blackBrightness || stats.variance < flatVariance {
		report.BlackScreen = true
	}

	return report, nil
}

// HealthCheck always succeeds; there is no external dependency
func (p *Provider) HealthCheck(ctx context.Context) error {
	return nil
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "pixel"
}

// measure walks the frame with a stride and aggregates luma and skin stats
func measure(img image.Image) frameStats {
	bounds := img.Bounds()

	var sum, sumSq float64
	var skin, total int

	for y := bounds.Min.Y; y < bounds.Max.Y; y += sampleStride {
		for x := bounds.Min.X; x < bounds.Max.X; x += sampleStride {
			r, g, b, _ := img.At(x, y).RGBA()
			r8 := float64(r >> 8)
			g8 := float64(g >> 8)
			b8 := float64(b >> 8)

			luma := 0.299*r8 + 0.587*g8 + 0.114*b8
			sum += luma
			sumSq += luma * luma
			total++

			if isSkinTone(r8, g8, b8) {
				skin++
			}
		}
	}

	if total == 0 {
		return frameStats{}
	}

	mean := sum / float64(total)
	variance := sumSq/float64(total) - mean*mean

	return frameStats{
		brightness: mean,
		variance:   variance,
		skinShare:  float64(skin) / float64(total),
	}
}

// isSkinTone applies a coarse RGB rule for skin-colored pixels
func isSkinTone(r, g, b float64) bool {
	return r > 95 && g > 40 && b > 20 &&
		r > g && r > b &&
		r-g > 15
}

// confidenceFromShare scales skin share into a bounded confidence
func confidenceFromShare(share float64) float64 {
	confidence := 0.3 + share*4
	if confidence > 0.8 {
		confidence = 0.8
	}
	return confidence
}

// Ensure Provider implements inference.Analyzer
var _ inference.Analyzer = (*Provider)(nil)
