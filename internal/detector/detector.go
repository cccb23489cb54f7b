// Package detector turns analyzed frames into violation reports. Each
// camera source runs its own pipeline with its own detector instances;
// detectors keep state between frames and must not be shared.
package detector

import (
	"context"
	"time"

	"github.com/examtrace/vigil/internal/domain"
	"github.com/examtrace/vigil/internal/inference"
)

// Report is one detector pass over one frame for a single camera source.
type Report struct {
	Source string

	// Seq orders frame-driven reports per source. Event-driven reports
	// carry zero and are never ordered against frames.
	Seq uint64

	Violations []domain.Violation

	// Checked lists the kinds this pass evaluated. A checked kind with no
	// violation in the report releases any active state for it.
	Checked []string

	Degraded bool
	At       time.Time
}

// Sink receives reports for aggregation
type Sink interface {
	Submit(ctx context.Context, report Report) error
}

// Detector examines analyzed frames for one camera source
type Detector interface {
	Evaluate(insight *inference.FrameInsight, at time.Time) (violations []domain.Violation, checked []string)
}

// fromFindings maps provider findings for the given kinds into violations.
// Kinds the provider lists as ongoing are left out of checked so their
// state survives a frame with no fresh evidence.
func fromFindings(insight *inference.FrameInsight, kinds []string, source string, at time.Time) ([]domain.Violation, []string) {
	owned := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		owned[k] = true
	}

	var violations []domain.Violation
	for _, f := range insight.Findings {
		if !owned[f.Kind] {
			continue
		}
		severity := f.Severity
		if !domain.ValidSeverity(severity) {
			severity = domain.SeverityMedium
		}
		violations = append(violations, domain.NewViolation(f.Kind, severity, f.Confidence, f.Message, source, at))
	}

	ongoing := make(map[string]bool, len(insight.Ongoing))
	for _, k := range insight.Ongoing {
		ongoing[k] = true
	}
	reported := make(map[string]bool, len(violations))
	for _, v := range violations {
		reported[v.Kind] = true
	}

	checked := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if ongoing[k] && !reported[k] {
			continue
		}
		checked = append(checked, k)
	}

	return violations, checked
}
