// Package integrity derives the session integrity score. Scoring is a
// pure function of its inputs so the session can recompute it at any
// cadence; time-based behavior lives in the aggregator, never here.
package integrity

import (
	"math"

	"github.com/examtrace/vigil/internal/domain"
)

const (
	startScore = 100

	perViolationPenalty = 5
	cameraPenalty       = 20
	microphonePenalty   = 10

	// gazeWeight scales the continuous penalty for looking away
	gazeWeight = 15
)

// Flags capture device liveness at scoring time
type Flags struct {
	CameraActive     bool
	MicrophoneActive bool
}

// Score computes session integrity from the recorded violations, the
// device flags and the latest gaze score in [0,1].
func Score(violations []domain.Violation, flags Flags, gazeScore float64) domain.SessionIntegrity {
	score := startScore

	score -= perViolationPenalty * len(violations)

	if !flags.CameraActive {
		score -= cameraPenalty
	}
	if !flags.MicrophoneActive {
		score -= microphonePenalty
	}

	score -= int(math.Round(gazeWeight * (1 - clamp01(gazeScore))))

	if score < 0 {
		score = 0
	}
	if score > startScore {
		score = startScore
	}

	return domain.SessionIntegrity{
		Score: score,
		Level: Level(score),
	}
}

// Level classifies a score into the traffic-light band shown to proctors.
func Level(score int) string {
	switch {
	case score >= 70:
		return domain.IntegrityGood
	case score >= 30:
		return domain.IntegrityWarning
	default:
		return domain.IntegrityDanger
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
