package domain

import (
	"time"
)

// Integrity levels
const (
	IntegrityGood    = "good"
	IntegrityWarning = "warning"
	IntegrityDanger  = "danger"
)

// SessionIntegrity é derivado do estado atual da sessão, nunca persistido.
// Always reconstructable from the active violation set, device flags and
// the current gaze score.
type SessionIntegrity struct {
	Score int    `json:"score"`
	Level string `json:"level"`
}

// Overlay presentation modes. The corrective instructions differ between a
// primary-camera problem (face/device removal) and a secondary-camera one
// (camera repositioning), so the mode is part of the state.
const (
	OverlayModePrimary   = "primary"
	OverlayModeSecondary = "secondary"
	OverlayModeBoth      = "both"
)

// OverlayState describes the blocking overlay. At most one overlay is ever
// visible; it aggregates both camera sources. Once dismissed it stays hidden
// for the cool-down window unless a new violation kind appears.
type OverlayState struct {
	Visible     bool      `json:"visible"`
	Mode        string    `json:"mode,omitempty"`
	Kinds       []string  `json:"kinds,omitempty"`
	DismissedAt time.Time `json:"dismissed_at,omitempty"`
}

// RemoteCameraStatus is the pairing/liveness state of a secondary camera
// session as last reported by the relay.
type RemoteCameraStatus struct {
	SessionID   string    `json:"session_id"`
	FrameCount  int       `json:"frame_count"`
	LastUpdated time.Time `json:"last_updated"`
	Verified    bool      `json:"verified"`
	Connected   bool      `json:"connected"`
	Forced      bool      `json:"forced,omitempty"`
}

// Live reports whether the secondary camera counts as connected. All four
// signals must hold at once: at least one frame uploaded, a recent update,
// and the server reporting both connected and verified. A forced connection
// flag never satisfies the gate on its own.
func (s RemoteCameraStatus) Live(now time.Time, recency time.Duration) bool {
	if s.FrameCount < 1 {
		return false
	}
	if s.LastUpdated.IsZero() || now.Sub(s.LastUpdated) > recency {
		return false
	}
	return s.Connected && s.Verified
}
