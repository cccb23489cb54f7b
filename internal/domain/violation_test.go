package domain

import (
	"testing"
	"time"
)

func TestSeverityRank(t *testing.T) {
	tests := []struct {
		severity string
		rank     int
	}{
		{SeverityLow, 0},
		{SeverityMedium, 1},
		{SeverityHigh, 2},
		{SeverityCritical, 3},
		{"unknown", -1},
	}

	for _, tt := range tests {
		t.Run(tt.severity, func(t *testing.T) {
			if got := SeverityRank(tt.severity); got != tt.rank {
				t.Errorf("SeverityRank(%q) = %d, want %d", tt.severity, got, tt.rank)
			}
		})
	}
}

func TestSeverityAtMost(t *testing.T) {
	tests := []struct {
		name     string
		severity string
		max      string
		want     string
	}{
		{"critical capped to high", SeverityCritical, SeverityHigh, SeverityHigh},
		{"high within cap", SeverityHigh, SeverityHigh, SeverityHigh},
		{"low untouched", SeverityLow, SeverityHigh, SeverityLow},
		{"medium capped to low", SeverityMedium, SeverityLow, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SeverityAtMost(tt.severity, tt.max); got != tt.want {
				t.Errorf("SeverityAtMost(%q, %q) = %q, want %q", tt.severity, tt.max, got, tt.want)
			}
		})
	}
}

func TestValidKind(t *testing.T) {
	for _, kind := range []string{
		KindNoFace, KindMultipleFaces, KindGazeViolation, KindProhibitedObject,
		KindTabSwitch, KindWindowBlur, KindHandsNotVisible, KindKeyboardNotVisible,
		KindBlackScreen, KindAnalysisFailed,
	} {
		if !ValidKind(kind) {
			t.Errorf("ValidKind(%q) = false, want true", kind)
		}
	}

	if ValidKind("looking_away") {
		t.Errorf("ValidKind should reject unknown kinds")
	}
}

func TestNewViolation(t *testing.T) {
	at := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	v := NewViolation(KindNoFace, SeverityHigh, 0.8, "No face detected", SourcePrimary, at)

	if v.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Errorf("NewViolation should assign an id")
	}
	if v.Kind != KindNoFace || v.Severity != SeverityHigh {
		t.Errorf("unexpected kind/severity: %s/%s", v.Kind, v.Severity)
	}
	if !v.Timestamp.Equal(at) {
		t.Errorf("Timestamp = %v, want %v", v.Timestamp, at)
	}
	if v.Degraded {
		t.Errorf("violations are not degraded by default")
	}
}

func TestRemoteCameraStatus_Live(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	recency := 15 * time.Second

	base := RemoteCameraStatus{
		SessionID:   "abc",
		FrameCount:  3,
		LastUpdated: now.Add(-2 * time.Second),
		Verified:    true,
		Connected:   true,
	}

	tests := []struct {
		name   string
		mutate func(s RemoteCameraStatus) RemoteCameraStatus
		want   bool
	}{
		{"all signals hold", func(s RemoteCameraStatus) RemoteCameraStatus { return s }, true},
		{"zero frames", func(s RemoteCameraStatus) RemoteCameraStatus { s.FrameCount = 0; return s }, false},
		{"stale update", func(s RemoteCameraStatus) RemoteCameraStatus { s.LastUpdated = now.Add(-20 * time.Second); return s }, false},
		{"zero timestamp", func(s RemoteCameraStatus) RemoteCameraStatus { s.LastUpdated = time.Time{}; return s }, false},
		{"server not connected", func(s RemoteCameraStatus) RemoteCameraStatus { s.Connected = false; return s }, false},
		{"not verified", func(s RemoteCameraStatus) RemoteCameraStatus { s.Verified = false; return s }, false},
		{"forced flag alone is not enough", func(s RemoteCameraStatus) RemoteCameraStatus {
			s.Verified = false
			s.Forced = true
			return s
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.mutate(base).Live(now, recency); got != tt.want {
				t.Errorf("Live() = %v, want %v", got, tt.want)
			}
		})
	}
}
