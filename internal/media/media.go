// Package media abstracts device tracks the way a browser media stream
// hands them out: acquire, toggle, stop, watch for unexpected ends.
package media

import (
	"context"
	"time"

	"github.com/examtrace/vigil/internal/capture"
)

// Track kinds
const (
	KindVideo  = "video"
	KindAudio  = "audio"
	KindScreen = "screen"
)

// Track is one acquired device stream
type Track interface {
	ID() string
	Kind() string

	// Enabled toggling mutes or unmutes the track without releasing the
	// device.
	Enabled() bool
	SetEnabled(enabled bool)

	// Stop releases the device. It never fires Ended.
	Stop()

	// Ended closes when the track dies on its own: device unplugged,
	// permission revoked, stream gone silent.
	Ended() <-chan struct{}
}

// VideoTrack also serves frames
type VideoTrack interface {
	Track
	capture.Source
}

// Provider acquires device tracks. Refusals map onto the device error
// taxonomy so the session can surface them untouched.
type Provider interface {
	AcquireVideo(ctx context.Context) (VideoTrack, error)
	AcquireAudio(ctx context.Context) (Track, error)
	AcquireScreen(ctx context.Context) (VideoTrack, error)
}

const (
	defaultProbeTimeout = 5 * time.Second
	defaultEndedAfter   = 30 * time.Second
)

// Config points the HTTP provider at its camera streams
type Config struct {
	VideoURL  string
	ScreenURL string

	// ProbeTimeout bounds the acquisition reachability check.
	ProbeTimeout time.Duration

	// EndedAfter is how long a stream may stay silent before its track
	// is declared dead.
	EndedAfter time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	if out.ProbeTimeout <= 0 {
		out.ProbeTimeout = defaultProbeTimeout
	}
	if out.EndedAfter <= 0 {
		out.EndedAfter = defaultEndedAfter
	}
	return out
}
