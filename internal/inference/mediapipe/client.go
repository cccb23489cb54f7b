package mediapipe

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/examtrace/vigil/internal/inference"
)

// Client is the HTTP client for the analysis service
type Client struct {
	httpClient *http.Client
	config     Config
}

// NewClient creates a new analysis service client
func NewClient(config Config) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// AnalyzeWorkspace calls POST /camera-analysis for a secondary camera frame.
// A fallback response is returned as a report, not an error; the caller
// decides how much weight degraded results carry.
func (c *Client) AnalyzeWorkspace(ctx context.Context, sessionID string, frame []byte) (*inference.WorkspaceReport, error) {
	req := workspaceRequest{
		SessionID: sessionID,
		FrameData: base64.StdEncoding.EncodeToString(frame),
	}

	var resp workspaceResponse
	if err := c.doRequestWithRetry(ctx, "POST", "/camera-analysis", req, &resp); err != nil {
		return nil, err
	}

	if !resp.Success && !resp.Fallback {
		return nil, fmt.Errorf("%w: analysis did not succeed", ErrInvalidResponse)
	}

	return &inference.WorkspaceReport{
		OverallCompliance:   resp.Analysis.OverallCompliance,
		ViolationPrevention: resp.Analysis.ViolationPrevention,
		HandPlacement:       resp.Analysis.HandPlacement,
		KeyboardVisibility:  resp.Analysis.KeyboardVisibility,
		BlackScreen:         resp.Analysis.BlackScreen,
		Recommendations:     resp.Analysis.Recommendations,
		Fallback:            resp.Fallback,
		FallbackReason:      resp.FallbackReason,
	}, nil
}

// ValidatePosition calls POST /camera-validation to activate a secondary
// camera once its framing has been checked server-side.
func (c *Client) ValidatePosition(ctx context.Context, sessionID string, frame []byte) (bool, error) {
	req := validationRequest{
		SessionID: sessionID,
		FrameData: base64.StdEncoding.EncodeToString(frame),
	}

	var resp validationResponse
	if err := c.doRequestWithRetry(ctx, "POST", "/camera-validation", req, &resp); err != nil {
		return false, err
	}

	return resp.PositionValid, nil
}

// HealthCheck verifies the analysis service is reachable
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.doRequest(ctx, "GET", "/health", nil, nil)
}

// maxBackoff is the maximum backoff duration for retries
const maxBackoff = 30 * time.Second

// calculateBackoff calculates exponential backoff duration for a given attempt
// Returns 1s, 2s, 4s, 8s, etc. up to maxBackoff
func calculateBackoff(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	// Calculate 2^(attempt-1) seconds safely
	seconds := 1
	for i := 1; i < attempt && i < 6; i++ {
		seconds *= 2
	}
	return time.Duration(seconds) * time.Second
}

// doRequestWithRetry executes HTTP request with retry logic
func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s, capped at maxBackoff
			backoff := calculateBackoff(attempt)
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		lastErr = c.doRequest(ctx, method, path, body, result)
		if lastErr == nil {
			return nil
		}

		// Don't retry on context errors
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Don't retry on client errors (4xx) - only retry on server errors (5xx)
		if isClientError(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %v", ErrServiceUnavailable, lastErr)
}

// isClientError checks if the error is a 4xx client error
func isClientError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// Check for status 4xx patterns
	for status := 400; status < 500; status++ {
		if strings.Contains(errStr, fmt.Sprintf("status %d", status)) {
			return true
		}
	}
	return false
}

// doRequest executes a single HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	url := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("analysis service returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}

	return nil
}
