package detector

import (
	"time"

	"github.com/examtrace/vigil/internal/domain"
	"github.com/examtrace/vigil/internal/inference"
)

const (
	handThreshold     = 0.5
	keyboardThreshold = 0.5
)

// workspaceKinds are the kinds derived from the secondary camera analysis
var workspaceKinds = []string{domain.KindBlackScreen, domain.KindHandsNotVisible, domain.KindKeyboardNotVisible}

// WorkspaceDetector checks the secondary camera's view of the desk: the
// frame must not be black and both hands and keyboard must stay visible.
type WorkspaceDetector struct {
	source string
}

// NewWorkspaceDetector creates a workspace detector for one camera source
func NewWorkspaceDetector(source string) *WorkspaceDetector {
	return &WorkspaceDetector{source: source}
}

// Evaluate turns a workspace report into violations. A black frame makes
// the hand and keyboard scores meaningless, so those checks are skipped
// and their prior state survives. Fallback reports carry neutral scores
// and may only decide the black-screen question.
func (d *WorkspaceDetector) Evaluate(report *inference.WorkspaceReport, at time.Time) ([]domain.Violation, []string) {
	if report.BlackScreen {
		v := domain.NewViolation(
			domain.KindBlackScreen,
			domain.SeverityHigh,
			0.95,
			"secondary camera shows a black frame",
			d.source,
			at,
		)
		return []domain.Violation{v}, []string{domain.KindBlackScreen}
	}

	if report.Fallback {
		return nil, []string{domain.KindBlackScreen}
	}

	var violations []domain.Violation
	if report.HandPlacement < handThreshold {
		violations = append(violations, domain.NewViolation(
			domain.KindHandsNotVisible,
			domain.SeverityHigh,
			1-report.HandPlacement,
			"hands not visible in workspace view",
			d.source,
			at,
		))
	}
	if report.KeyboardVisibility < keyboardThreshold {
		violations = append(violations, domain.NewViolation(
			domain.KindKeyboardNotVisible,
			domain.SeverityMedium,
			1-report.KeyboardVisibility,
			"keyboard not visible in workspace view",
			d.source,
			at,
		))
	}

	return violations, workspaceKinds
}
