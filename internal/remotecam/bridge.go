package remotecam

import (
	"bytes"
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	_ "image/jpeg"
	_ "image/png"

	"github.com/examtrace/vigil/internal/capture"
	"github.com/examtrace/vigil/internal/domain"
)

const (
	frameBuffer        = 4
	placeholderMessage = "RECONNECTING CAMERA..."
)

// Bridge poll o relay e entrega a câmera do celular como uma fonte local.
// A bridge serves one session id for its whole life; pair a new phone by
// creating a new bridge.
type Bridge struct {
	client    *Client
	sessionID string
	config    Config
	logger    *slog.Logger

	frames chan capture.Frame

	mu              sync.RWMutex
	latest          image.Image
	status          domain.RemoteCameraStatus
	degraded        bool
	failures        int
	localCount      uint64
	lastServerCount int
	seq             uint64

	now func() time.Time
}

var (
	_ capture.Source           = (*Bridge)(nil)
	_ capture.DegradedReporter = (*Bridge)(nil)
)

// NewBridge creates a bridge for one pairing session
func NewBridge(client *Client, sessionID string, config Config, logger *slog.Logger) *Bridge {
	return &Bridge{
		client:    client,
		sessionID: sessionID,
		config:    config.withDefaults(),
		logger:    logger,
		frames:    make(chan capture.Frame, frameBuffer),
		now:       time.Now,
	}
}

// Frames delivers every Nth fresh frame for analysis. Slow consumers drop
// frames, never block polling.
func (b *Bridge) Frames() <-chan capture.Frame {
	return b.frames
}

// Run polls frames and pairing status until ctx is cancelled. The two
// tickers are independent: a frame outage never interrupts heartbeats, so
// a transient failure does not force re-pairing.
func (b *Bridge) Run(ctx context.Context) error {
	b.checkCamera(ctx, true)

	frameTicker := time.NewTicker(b.config.PollInterval)
	defer frameTicker.Stop()
	heartbeatTicker := time.NewTicker(b.config.HeartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-frameTicker.C:
			b.pollFrame(ctx)
		case <-heartbeatTicker.C:
			b.checkCamera(ctx, true)
		}
	}
}

// Snapshot returns the newest remote frame, or the reconnecting
// placeholder when the feed is interrupted.
func (b *Bridge) Snapshot(_ context.Context) (image.Image, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.latest == nil {
		return nil, capture.ErrNotPlaying
	}
	return b.latest, nil
}

// Degraded reports whether the bridge is serving placeholder content.
func (b *Bridge) Degraded() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.degraded
}

// Status returns the last pairing status delivered by the relay.
func (b *Bridge) Status() domain.RemoteCameraStatus {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status
}

// Connected applies the liveness gate to the stored status at call time.
// The gate is never cached: a stale upload timestamp fails it even if the
// relay said connected on the last poll, and a forced flag alone never
// passes.
func (b *Bridge) Connected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.status.Live(b.now(), b.config.FrameRecency)
}

func (b *Bridge) pollFrame(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	frame, err := b.client.GetFrame(callCtx, b.sessionID)
	if err != nil {
		b.frameFailure(err)
		return
	}

	img, _, err := image.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		b.frameFailure(err)
		return
	}

	b.frameSuccess(img, frame)
}

func (b *Bridge) frameFailure(err error) {
	b.mu.Lock()
	b.failures++
	tripped := b.failures > b.config.FailureThreshold && !b.degraded
	if tripped {
		b.degraded = true
		b.latest = placeholderImage(placeholderMessage)
	}
	failures := b.failures
	b.mu.Unlock()

	if tripped {
		b.logger.Warn("remote camera feed interrupted, serving placeholder",
			"session_id", b.sessionID,
			"failures", failures,
			"error", err,
		)
		return
	}
	if !errors.Is(err, context.Canceled) {
		b.logger.Debug("frame poll failed",
			"session_id", b.sessionID,
			"failures", failures,
			"error", err,
		)
	}
}

func (b *Bridge) frameSuccess(img image.Image, frame *RemoteFrame) {
	b.mu.Lock()
	b.failures = 0
	recovered := b.degraded && !frame.Placeholder
	b.degraded = frame.Placeholder
	b.latest = img

	var forward *capture.Frame
	if !frame.Placeholder && frame.FrameCount != b.lastServerCount {
		b.lastServerCount = frame.FrameCount
		b.localCount++
		if b.localCount%uint64(b.config.AnalysisEvery) == 0 {
			b.seq++
			bounds := img.Bounds()
			forward = &capture.Frame{
				Seq:        b.seq,
				Data:       frame.Data,
				Width:      bounds.Dx(),
				Height:     bounds.Dy(),
				CapturedAt: b.now(),
				Source:     domain.SourceSecondary,
			}
		}
	}
	b.mu.Unlock()

	if recovered {
		b.logger.Info("remote camera feed recovered", "session_id", b.sessionID)
	}
	if forward == nil {
		return
	}

	select {
	case b.frames <- *forward:
	default:
		b.logger.Debug("analysis consumer busy, dropping frame",
			"session_id", b.sessionID,
			"seq", forward.Seq,
		)
	}
}

func (b *Bridge) checkCamera(ctx context.Context, heartbeat bool) {
	callCtx, cancel := context.WithTimeout(ctx, b.config.Timeout)
	defer cancel()

	status, err := b.client.CheckCamera(callCtx, b.sessionID, heartbeat)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			b.logger.Debug("camera status check failed",
				"session_id", b.sessionID,
				"error", err,
			)
		}
		return
	}

	b.mu.Lock()
	b.status = status
	b.mu.Unlock()
}
