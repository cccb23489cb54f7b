package detector

import (
	"fmt"
	"time"

	"github.com/examtrace/vigil/internal/domain"
	"github.com/examtrace/vigil/internal/inference"
)

const (
	// coveredCameraLuma is the mean frame brightness (0-255) under which
	// the lens is assumed covered rather than the room merely dark
	coveredCameraLuma = 50.0

	// presenceConfidence is used for derived presence violations, where
	// the provider gives no confidence of its own
	presenceConfidence = 0.9
)

// faceKinds are the kinds the face detector owns
var faceKinds = []string{domain.KindNoFace, domain.KindMultipleFaces}

// FaceDetector fiscaliza a presença do candidato na câmera principal.
type FaceDetector struct {
	source string
}

// NewFaceDetector creates a face presence detector for one camera source
func NewFaceDetector(source string) *FaceDetector {
	return &FaceDetector{source: source}
}

// Evaluate prefers provider findings when present; otherwise it derives
// presence violations from the raw face reading.
func (d *FaceDetector) Evaluate(insight *inference.FrameInsight, at time.Time) ([]domain.Violation, []string) {
	if insight.Findings != nil {
		return fromFindings(insight, faceKinds, d.source, at)
	}
	if insight.Face == nil {
		return nil, nil
	}

	switch {
	case insight.Face.Count == 0:
		msg := "no face detected"
		if insight.BlackScreen {
			msg = "camera feed is black"
		} else if insight.Face.Brightness > 0 && insight.Face.Brightness < coveredCameraLuma {
			msg = "camera appears covered or too dark"
		}
		v := domain.NewViolation(domain.KindNoFace, domain.SeverityHigh, presenceConfidence, msg, d.source, at)
		return []domain.Violation{v}, faceKinds

	case insight.Face.Count > 1:
		confidence := insight.Face.Confidence
		if confidence == 0 {
			confidence = presenceConfidence
		}
		msg := fmt.Sprintf("%d faces in frame", insight.Face.Count)
		v := domain.NewViolation(domain.KindMultipleFaces, domain.SeverityCritical, confidence, msg, d.source, at)
		return []domain.Violation{v}, faceKinds

	default:
		return nil, faceKinds
	}
}
