// Package report delivers admitted violations to the persistence
// endpoint. Delivery is fire-and-forget: the pipeline never waits on the
// network, and a full queue drops work instead of blocking.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/examtrace/vigil/internal/domain"
)

const (
	defaultQueueSize   = 128
	defaultMaxAttempts = 3
	defaultTimeout     = 10 * time.Second
	defaultRate        = 5
	defaultBurst       = 10
)

// errRejected marks a 4xx answer; retrying will not change it.
var errRejected = errors.New("report rejected")

// Config controls delivery
type Config struct {
	ViolationsURL string
	TestID        string

	// QueueSize bounds pending deliveries.
	QueueSize int

	// MaxAttempts per violation, first try included.
	MaxAttempts int

	// Timeout bounds each POST.
	Timeout time.Duration

	// RatePerSecond and Burst pace deliveries so a violation storm does
	// not flood the endpoint.
	RatePerSecond float64
	Burst         int
}

// DefaultConfig returns the delivery defaults
func DefaultConfig() Config {
	return Config{
		QueueSize:     defaultQueueSize,
		MaxAttempts:   defaultMaxAttempts,
		Timeout:       defaultTimeout,
		RatePerSecond: defaultRate,
		Burst:         defaultBurst,
	}
}

type violationPayload struct {
	Type         string    `json:"type"`
	Severity     string    `json:"severity"`
	Description  string    `json:"description"`
	Timestamp    time.Time `json:"timestamp"`
	CameraSource string    `json:"cameraSource"`
	Confidence   float64   `json:"confidence,omitempty"`
	Degraded     bool      `json:"degraded,omitempty"`
}

type reportRequest struct {
	TestID    string           `json:"testId"`
	Violation violationPayload `json:"violation"`
}

// Reporter envia violações admitidas para o endpoint de persistência.
type Reporter struct {
	config  Config
	client  *http.Client
	limiter *rate.Limiter
	queue   chan domain.Violation
	logger  *slog.Logger

	backoff func(attempt int) time.Duration
}

// NewReporter creates a reporter. Zero config fields fall back to
// defaults.
func NewReporter(config Config, logger *slog.Logger) *Reporter {
	if config.QueueSize <= 0 {
		config.QueueSize = defaultQueueSize
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaultMaxAttempts
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}
	if config.RatePerSecond <= 0 {
		config.RatePerSecond = defaultRate
	}
	if config.Burst <= 0 {
		config.Burst = defaultBurst
	}

	return &Reporter{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		limiter: rate.NewLimiter(rate.Limit(config.RatePerSecond), config.Burst),
		queue:   make(chan domain.Violation, config.QueueSize),
		logger:  logger,
		backoff: exponentialBackoff,
	}
}

// Enqueue accepts a violation for delivery. It never blocks; when the
// queue is full the violation is dropped and logged.
func (r *Reporter) Enqueue(v domain.Violation) {
	select {
	case r.queue <- v:
	default:
		r.logger.Warn("report queue full, dropping violation",
			"kind", v.Kind,
			"source", v.Source,
		)
	}
}

// Run delivers queued violations until ctx is cancelled.
func (r *Reporter) Run(ctx context.Context) error {
	r.logger.Info("violation reporter started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("violation reporter stopped")
			return ctx.Err()
		case v := <-r.queue:
			if err := r.limiter.Wait(ctx); err != nil {
				r.logger.Info("violation reporter stopped")
				return err
			}
			r.deliver(ctx, v)
		}
	}
}

func (r *Reporter) deliver(ctx context.Context, v domain.Violation) {
	payload := reportRequest{
		TestID: r.config.TestID,
		Violation: violationPayload{
			Type:         v.Kind,
			Severity:     v.Severity,
			Description:  v.Message,
			Timestamp:    v.Timestamp,
			CameraSource: v.Source,
			Confidence:   v.Confidence,
			Degraded:     v.Degraded,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error("failed to marshal violation report", "error", err)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(r.backoff(attempt - 1)):
			}
		}

		err := r.post(ctx, body)
		if err == nil {
			return
		}
		if errors.Is(err, errRejected) {
			r.logger.Error("violation report rejected",
				"kind", v.Kind,
				"source", v.Source,
				"error", err,
			)
			return
		}
		lastErr = err
	}

	r.logger.Error("violation report dropped after retries",
		"kind", v.Kind,
		"source", v.Source,
		"attempts", r.config.MaxAttempts,
		"error", lastErr,
	)
}

func (r *Reporter) post(ctx context.Context, body []byte) error {
	callCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, r.config.ViolationsURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("post violation: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return fmt.Errorf("%w: status %d", errRejected, resp.StatusCode)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt-1)) * time.Second
}
