package detector

import (
	"fmt"
	"time"

	"github.com/examtrace/vigil/internal/domain"
	"github.com/examtrace/vigil/internal/inference"
)

const (
	defaultGazeThreshold = 0.5
	defaultGazeSustained = 3
)

var gazeKinds = []string{domain.KindGazeViolation}

// GazeDetector fires only after the attention score stays below the
// threshold for a sustained run of measurements. A single dip is normal
// reading behavior and never fires.
type GazeDetector struct {
	source    string
	threshold float64
	sustained int

	below int
}

// NewGazeDetector creates a gaze detector for one camera source
func NewGazeDetector(source string, threshold float64, sustained int) *GazeDetector {
	if threshold <= 0 {
		threshold = defaultGazeThreshold
	}
	if sustained <= 0 {
		sustained = defaultGazeSustained
	}
	return &GazeDetector{source: source, threshold: threshold, sustained: sustained}
}

// Evaluate advances the sustained-low counter. Invalid measurements leave
// both the counter and any prior state alone.
func (d *GazeDetector) Evaluate(insight *inference.FrameInsight, at time.Time) ([]domain.Violation, []string) {
	if !insight.Gaze.Valid {
		return nil, nil
	}

	if insight.Gaze.Score >= d.threshold {
		d.below = 0
		return nil, gazeKinds
	}

	d.below++
	if d.below < d.sustained {
		return nil, gazeKinds
	}

	confidence := 1 - insight.Gaze.Score
	if confidence > 1 {
		confidence = 1
	}
	msg := "attention away from screen"
	if insight.Gaze.Direction != "" && insight.Gaze.Direction != "center" {
		msg = fmt.Sprintf("attention away from screen (looking %s)", insight.Gaze.Direction)
	}

	v := domain.NewViolation(domain.KindGazeViolation, domain.SeverityMedium, confidence, msg, d.source, at)
	return []domain.Violation{v}, gazeKinds
}
