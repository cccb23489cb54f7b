package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examtrace/vigil/internal/domain"
	"github.com/examtrace/vigil/internal/inference"
)

func TestObjectDetector_Derived(t *testing.T) {
	d := NewObjectDetector(domain.SourcePrimary)

	tests := []struct {
		name    string
		objects []inference.ObjectDetection
		wantSev []string
	}{
		{
			name:    "phone above threshold is critical",
			objects: []inference.ObjectDetection{{Label: "cell phone", Confidence: 0.87}},
			wantSev: []string{domain.SeverityCritical},
		},
		{
			name:    "phone below threshold is ignored",
			objects: []inference.ObjectDetection{{Label: "cell phone", Confidence: 0.45}},
			wantSev: nil,
		},
		{
			name:    "book above its threshold is high",
			objects: []inference.ObjectDetection{{Label: "book", Confidence: 0.41}},
			wantSev: []string{domain.SeverityHigh},
		},
		{
			name:    "tv is medium",
			objects: []inference.ObjectDetection{{Label: "tv", Confidence: 0.6}},
			wantSev: []string{domain.SeverityMedium},
		},
		{
			name:    "unknown label is ignored",
			objects: []inference.ObjectDetection{{Label: "coffee mug", Confidence: 0.99}},
			wantSev: nil,
		},
		{
			name: "worst object comes first",
			objects: []inference.ObjectDetection{
				{Label: "book", Confidence: 0.5},
				{Label: "cell phone", Confidence: 0.9},
				{Label: "monitor", Confidence: 0.8},
			},
			wantSev: []string{domain.SeverityCritical, domain.SeverityHigh, domain.SeverityMedium},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			insight := &inference.FrameInsight{Objects: tt.objects}
			violations, checked := d.Evaluate(insight, evalTime)

			assert.Equal(t, objectKinds, checked)
			require.Len(t, violations, len(tt.wantSev))
			for i, sev := range tt.wantSev {
				assert.Equal(t, domain.KindProhibitedObject, violations[i].Kind)
				assert.Equal(t, sev, violations[i].Severity)
			}
		})
	}
}

func TestObjectDetector_EmptyVsNil(t *testing.T) {
	d := NewObjectDetector(domain.SourcePrimary)

	t.Run("empty slice means checked and clean", func(t *testing.T) {
		insight := &inference.FrameInsight{Objects: []inference.ObjectDetection{}}
		violations, checked := d.Evaluate(insight, evalTime)

		assert.Empty(t, violations)
		assert.Equal(t, objectKinds, checked)
	})

	t.Run("nil slice means the provider cannot see objects", func(t *testing.T) {
		insight := &inference.FrameInsight{}
		violations, checked := d.Evaluate(insight, evalTime)

		assert.Nil(t, violations)
		assert.Nil(t, checked)
	})
}

func TestObjectDetector_Findings(t *testing.T) {
	d := NewObjectDetector(domain.SourcePrimary)

	insight := &inference.FrameInsight{
		Findings: []inference.Finding{
			{Kind: domain.KindProhibitedObject, Severity: domain.SeverityCritical, Confidence: 0.9, Message: "cell phone detected"},
			{Kind: domain.KindNoFace, Severity: domain.SeverityHigh}, // not ours
		},
		Objects: []inference.ObjectDetection{{Label: "cell phone", Confidence: 0.9}},
	}

	violations, checked := d.Evaluate(insight, evalTime)

	require.Len(t, violations, 1)
	assert.Equal(t, domain.KindProhibitedObject, violations[0].Kind)
	assert.Equal(t, "cell phone detected", violations[0].Message)
	assert.Equal(t, []string{domain.KindProhibitedObject}, checked)
}

func TestObjectDetector_MessageNamesObject(t *testing.T) {
	d := NewObjectDetector(domain.SourceSecondary)

	insight := &inference.FrameInsight{
		Objects: []inference.ObjectDetection{{Label: "tablet", Confidence: 0.7}},
	}
	violations, _ := d.Evaluate(insight, evalTime)

	require.Len(t, violations, 1)
	assert.Equal(t, "prohibited object in frame: tablet", violations[0].Message)
	assert.Equal(t, domain.SourceSecondary, violations[0].Source)
}
