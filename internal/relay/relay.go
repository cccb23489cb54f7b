// Package relay holds the server-side state of phone-camera pairing
// sessions: who is paired, how fresh their uploads are and the latest
// frame itself. Two stores implement the same contract, a Redis one for
// real deployments and an in-memory one for single-node use and tests.
package relay

import (
	"context"
	"time"
)

const (
	// DefaultSessionTTL is how long an idle pairing session survives.
	DefaultSessionTTL = 10 * time.Minute

	// DefaultSweepInterval is the cadence of the idle-session sweeper.
	DefaultSweepInterval = time.Minute

	// DefaultFrameRecency is the upload-freshness window of the
	// server-side connected gate.
	DefaultFrameRecency = 15 * time.Second

	// DefaultMaxFrameBytes caps a single decoded frame upload.
	DefaultMaxFrameBytes = 2 << 20
)

// Session is one phone-camera pairing session as the relay tracks it.
type Session struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	LastUpload    time.Time `json:"last_upload,omitempty"`
	LastHeartbeat time.Time `json:"last_heartbeat,omitempty"`
	FrameCount    int       `json:"frame_count"`
	Verified      bool      `json:"verified"`
	Forced        bool      `json:"forced,omitempty"`
}

// Connected is the server-side liveness gate: at least one frame uploaded
// and the last upload inside the recency window. The forced flag is
// echoed to clients but never enters this gate.
func (s Session) Connected(now time.Time, recency time.Duration) bool {
	if s.FrameCount < 1 || s.LastUpload.IsZero() {
		return false
	}
	return now.Sub(s.LastUpload) <= recency
}

// FrameRecord is the latest uploaded frame of one session. Only the most
// recent frame is kept; the relay is a live mirror, not an archive.
type FrameRecord struct {
	Data        []byte    `json:"data"`
	Seq         int       `json:"seq"`
	UploadedAt  time.Time `json:"uploaded_at"`
	Placeholder bool      `json:"placeholder,omitempty"`
}

// Store persists pairing sessions and their latest frame. Implementations
// must be safe for concurrent use. Lookups of unknown sessions return
// domain.ErrSessionNotFound; a session without an upload yet returns
// domain.ErrNoFrameAvailable from GetFrame.
type Store interface {
	// CreateSession registers a pairing session. Re-creating an existing
	// id resets its counters and drops its frame.
	CreateSession(ctx context.Context, id string) (Session, error)

	GetSession(ctx context.Context, id string) (Session, error)

	// RecordUpload bumps the frame counter and the upload timestamp in
	// one step and returns the new counter value.
	RecordUpload(ctx context.Context, id string, at time.Time) (int, error)

	RecordHeartbeat(ctx context.Context, id string, at time.Time) error

	SetVerified(ctx context.Context, id string) error

	PutFrame(ctx context.Context, id string, frame FrameRecord) error

	GetFrame(ctx context.Context, id string) (FrameRecord, error)

	DeleteSession(ctx context.Context, id string) error

	// Sweep removes sessions with no activity since the cutoff and
	// returns how many were removed.
	Sweep(ctx context.Context, olderThan time.Time) (int, error)
}
