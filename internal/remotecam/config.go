package remotecam

import "time"

const (
	defaultTimeout           = 5 * time.Second
	defaultPollInterval      = 150 * time.Millisecond
	defaultHeartbeatInterval = 5 * time.Second
	defaultAnalysisEvery     = 12
	defaultFailureThreshold  = 3
	defaultFrameRecency      = 15 * time.Second
)

// Config holds the relay endpoint and polling cadence
type Config struct {
	BaseURL string

	// Timeout bounds every relay call. Frame polls are not retried; the
	// next tick is the retry.
	Timeout time.Duration

	// PollInterval is the latest-frame cadence.
	PollInterval time.Duration

	// HeartbeatInterval is the pairing-status cadence, independent of
	// frame polling so a frame outage never forces re-pairing.
	HeartbeatInterval time.Duration

	// AnalysisEvery forwards every Nth fresh frame to analysis.
	AnalysisEvery int

	// FailureThreshold is the consecutive failure count after which the
	// bridge serves the reconnecting placeholder.
	FailureThreshold int

	// FrameRecency is how recent the last upload must be for the
	// connection gate.
	FrameRecency time.Duration
}

// DefaultConfig returns the bridge defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:           "http://localhost:8000",
		Timeout:           defaultTimeout,
		PollInterval:      defaultPollInterval,
		HeartbeatInterval: defaultHeartbeatInterval,
		AnalysisEvery:     defaultAnalysisEvery,
		FailureThreshold:  defaultFailureThreshold,
		FrameRecency:      defaultFrameRecency,
	}
}

func (c Config) withDefaults() Config {
	out := c
	if out.Timeout <= 0 {
		out.Timeout = defaultTimeout
	}
	if out.PollInterval <= 0 {
		out.PollInterval = defaultPollInterval
	}
	if out.HeartbeatInterval <= 0 {
		out.HeartbeatInterval = defaultHeartbeatInterval
	}
	if out.AnalysisEvery <= 0 {
		out.AnalysisEvery = defaultAnalysisEvery
	}
	if out.FailureThreshold <= 0 {
		out.FailureThreshold = defaultFailureThreshold
	}
	if out.FrameRecency <= 0 {
		out.FrameRecency = defaultFrameRecency
	}
	return out
}
