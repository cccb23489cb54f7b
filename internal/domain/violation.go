package domain

import (
	"time"

	"github.com/google/uuid"
)

// Violation kinds
const (
	KindNoFace             = "no_face"
	KindMultipleFaces      = "multiple_faces"
	KindGazeViolation      = "gaze_violation"
	KindProhibitedObject   = "prohibited_object"
	KindTabSwitch          = "tab_switch"
	KindWindowBlur         = "window_blur"
	KindHandsNotVisible    = "hands_not_visible"
	KindKeyboardNotVisible = "keyboard_not_visible"
	KindBlackScreen        = "black_screen_detected"
	KindAnalysisFailed     = "analysis_failed"
)

// Severity levels, ordered
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Camera sources
const (
	SourcePrimary   = "primary"
	SourceSecondary = "secondary"
)

var (
	validKinds = map[string]bool{
		KindNoFace:             true,
		KindMultipleFaces:      true,
		KindGazeViolation:      true,
		KindProhibitedObject:   true,
		KindTabSwitch:          true,
		KindWindowBlur:         true,
		KindHandsNotVisible:    true,
		KindKeyboardNotVisible: true,
		KindBlackScreen:        true,
		KindAnalysisFailed:     true,
	}

	severityRank = map[string]int{
		SeverityLow:      0,
		SeverityMedium:   1,
		SeverityHigh:     2,
		SeverityCritical: 3,
	}

	validSources = map[string]bool{
		SourcePrimary:   true,
		SourceSecondary: true,
	}
)

// ValidKind reports whether kind is a known violation kind.
func ValidKind(kind string) bool {
	return validKinds[kind]
}

// ValidSeverity reports whether severity is a known level.
func ValidSeverity(severity string) bool {
	_, ok := severityRank[severity]
	return ok
}

// ValidSource reports whether source is a known camera source.
func ValidSource(source string) bool {
	return validSources[source]
}

// SeverityRank returns the ordering rank of a severity (low=0 .. critical=3).
// Unknown severities rank below low.
func SeverityRank(severity string) int {
	rank, ok := severityRank[severity]
	if !ok {
		return -1
	}
	return rank
}

// SeverityAtMost returns severity capped at max, preserving the lower level.
func SeverityAtMost(severity, max string) string {
	if SeverityRank(severity) > SeverityRank(max) {
		return max
	}
	return severity
}

// Violation representa uma ocorrência de integridade detectada na sessão
type Violation struct {
	ID         uuid.UUID `json:"id"`
	Kind       string    `json:"kind"`
	Severity   string    `json:"severity"`
	Confidence float64   `json:"confidence"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
	Source     string    `json:"source"`
	Degraded   bool      `json:"degraded,omitempty"`
}

// NewViolation builds an immutable violation instance. The aggregator only
// ever replaces set membership; it never mutates an existing instance.
func NewViolation(kind, severity string, confidence float64, message, source string, at time.Time) Violation {
	return Violation{
		ID:         uuid.New(),
		Kind:       kind,
		Severity:   severity,
		Confidence: confidence,
		Message:    message,
		Timestamp:  at,
		Source:     source,
	}
}
