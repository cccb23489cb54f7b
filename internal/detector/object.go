package detector

import (
	"fmt"
	"sort"
	"time"

	"github.com/examtrace/vigil/internal/domain"
	"github.com/examtrace/vigil/internal/inference"
)

// objectRule pairs the severity of a prohibited object with the minimum
// detection confidence required to report it
type objectRule struct {
	severity      string
	minConfidence float64
}

// objectRules is the prohibited-object watchlist for the candidate camera
var objectRules = map[string]objectRule{
	"cell phone": {severity: domain.SeverityCritical, minConfidence: 0.5},
	"laptop":     {severity: domain.SeverityCritical, minConfidence: 0.5},
	"tablet":     {severity: domain.SeverityCritical, minConfidence: 0.5},
	"book":       {severity: domain.SeverityHigh, minConfidence: 0.4},
	"remote":     {severity: domain.SeverityHigh, minConfidence: 0.4},
	"keyboard":   {severity: domain.SeverityHigh, minConfidence: 0.4},
	"mouse":      {severity: domain.SeverityHigh, minConfidence: 0.4},
	"headphones": {severity: domain.SeverityHigh, minConfidence: 0.4},
	"tv":         {severity: domain.SeverityMedium, minConfidence: 0.4},
	"monitor":    {severity: domain.SeverityMedium, minConfidence: 0.4},
}

var objectKinds = []string{domain.KindProhibitedObject}

// ObjectDetector varre o frame procurando objetos da lista proibida.
type ObjectDetector struct {
	source string
}

// NewObjectDetector creates a prohibited-object detector for one camera source
func NewObjectDetector(source string) *ObjectDetector {
	return &ObjectDetector{source: source}
}

// Evaluate reports one violation per offending object, worst first so
// throttling admits the most severe one.
func (d *ObjectDetector) Evaluate(insight *inference.FrameInsight, at time.Time) ([]domain.Violation, []string) {
	if insight.Findings != nil {
		return fromFindings(insight, objectKinds, d.source, at)
	}
	if insight.Objects == nil {
		// The provider cannot see objects; leave prior state alone.
		return nil, nil
	}

	var violations []domain.Violation
	for _, obj := range insight.Objects {
		rule, ok := objectRules[obj.Label]
		if !ok || obj.Confidence < rule.minConfidence {
			continue
		}
		violations = append(violations, domain.NewViolation(
			domain.KindProhibitedObject,
			rule.severity,
			obj.Confidence,
			fmt.Sprintf("prohibited object in frame: %s", obj.Label),
			d.source,
			at,
		))
	}

	sort.SliceStable(violations, func(i, j int) bool {
		ri, rj := domain.SeverityRank(violations[i].Severity), domain.SeverityRank(violations[j].Severity)
		if ri != rj {
			return ri > rj
		}
		if violations[i].Confidence != violations[j].Confidence {
			return violations[i].Confidence > violations[j].Confidence
		}
		return violations[i].Message < violations[j].Message
	})

	return violations, objectKinds
}
