package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"sync"
	"time"
)

const (
	mjpegReconnectBase = time.Second
	mjpegReconnectMax  = 5 * time.Second
)

// MJPEGSource reads a multipart MJPEG stream (the usual webcam/IP camera
// feed) and keeps the most recently decoded frame. It is the agent's
// stand-in for a playing video element.
type MJPEGSource struct {
	url    string
	client *http.Client
	logger *slog.Logger

	mu       sync.RWMutex
	latest   image.Image
	latestAt time.Time
}

func NewMJPEGSource(url string, logger *slog.Logger) *MJPEGSource {
	return &MJPEGSource{
		url: url,
		client: &http.Client{
			// Streaming connection: no overall timeout, dial-level limits only.
			Transport: &http.Transport{
				ResponseHeaderTimeout: 10 * time.Second,
			},
		},
		logger: logger,
	}
}

// Run consumes the stream until ctx is done, reconnecting with backoff on
// stream errors.
func (m *MJPEGSource) Run(ctx context.Context) {
	backoff := mjpegReconnectBase

	for {
		if ctx.Err() != nil {
			return
		}

		err := m.consume(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			m.logger.Warn("mjpeg stream interrupted", "url", m.url, "error", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > mjpegReconnectMax {
			backoff = mjpegReconnectMax
		}
	}
}

func (m *MJPEGSource) consume(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("connect stream: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stream returned status %d", resp.StatusCode)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || params["boundary"] == "" {
		return fmt.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
	if mediaType != "multipart/x-mixed-replace" {
		return fmt.Errorf("not an mjpeg stream: %s", mediaType)
	}

	reader := multipart.NewReader(resp.Body, params["boundary"])
	for {
		part, err := reader.NextPart()
		if err != nil {
			return fmt.Errorf("read part: %w", err)
		}

		img, _, err := image.Decode(part)
		_ = part.Close()
		if err != nil {
			m.logger.Debug("skipping undecodable part", "error", err)
			continue
		}

		m.mu.Lock()
		m.latest = img
		m.latestAt = time.Now()
		m.mu.Unlock()
	}
}

// LastFrameAt reports when the stream last produced a frame. Zero until
// the first frame arrives. Watchdogs use it to tell a reconnecting stream
// from a dead one.
func (m *MJPEGSource) LastFrameAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latestAt
}

func (m *MJPEGSource) Snapshot(_ context.Context) (image.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.latest == nil {
		return nil, ErrNotPlaying
	}
	return m.latest, nil
}
