// Package remotecam bridges a phone camera paired through the frame relay
// into the local pipeline. The phone uploads frames out-of-band; the
// bridge polls the newest one plus the pairing status and serves the
// result as a capture source.
package remotecam

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/examtrace/vigil/internal/domain"
)

// Client chama o relay de frames por HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a relay client
func NewClient(config Config) *Client {
	config = config.withDefaults()

	return &Client{
		httpClient: &http.Client{Timeout: config.Timeout},
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
	}
}

// CreateSession registers a pairing session before the phone joins.
func (c *Client) CreateSession(ctx context.Context, sessionID string) error {
	body, err := json.Marshal(sessionRequest{SessionID: sessionID})
	if err != nil {
		return fmt.Errorf("marshal session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/session", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRelayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("relay returned status %d creating session", resp.StatusCode)
	}
	return nil
}

// GetFrame fetches the newest frame the phone uploaded for the session.
func (c *Client) GetFrame(ctx context.Context, sessionID string) (*RemoteFrame, error) {
	endpoint := fmt.Sprintf("%s/frame?sessionId=%s", c.baseURL, url.QueryEscape(sessionID))

	var payload frameResponse
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return nil, err
	}

	data, err := decodeFrameData(payload.FrameData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return &RemoteFrame{
		Data:        data,
		FrameCount:  payload.FrameCount,
		Placeholder: payload.IsPlaceholder,
	}, nil
}

// CheckCamera reports the pairing status. With heartbeat set the relay
// also refreshes the session's liveness timestamp.
func (c *Client) CheckCamera(ctx context.Context, sessionID string, heartbeat bool) (domain.RemoteCameraStatus, error) {
	endpoint := fmt.Sprintf("%s/check-camera?sessionId=%s", c.baseURL, url.QueryEscape(sessionID))
	if heartbeat {
		endpoint += "&heartbeat=true"
	}

	var payload cameraStatusResponse
	if err := c.get(ctx, endpoint, &payload); err != nil {
		return domain.RemoteCameraStatus{}, err
	}

	status := domain.RemoteCameraStatus{
		SessionID:  sessionID,
		FrameCount: payload.FrameCount,
		Verified:   payload.Verified,
		Connected:  payload.Connected,
		Forced:     payload.ForcedConnection,
	}
	if payload.LastUpdated > 0 {
		status.LastUpdated = time.UnixMilli(payload.LastUpdated)
	}
	return status, nil
}

func (c *Client) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRelayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNoFrame
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrRelayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("relay returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// decodeFrameData accepts raw base64 or a canvas-style data URL.
func decodeFrameData(data string) ([]byte, error) {
	if strings.HasPrefix(data, "data:") {
		idx := strings.IndexByte(data, ',')
		if idx < 0 {
			return nil, fmt.Errorf("malformed data url")
		}
		data = data[idx+1:]
	}
	return base64.StdEncoding.DecodeString(data)
}
