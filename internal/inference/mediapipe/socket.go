package mediapipe

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/examtrace/vigil/internal/domain"
	"github.com/examtrace/vigil/internal/inference"
)

// Socket envia frames pelo websocket do serviço de análise. Each Analyze
// call opens a fresh connection, sends one frame and waits for the matching
// analysis before closing. The service drops idle sockets, so holding one
// open between samples buys nothing.
type Socket struct {
	url    string
	dialer *websocket.Dialer
	config Config
}

// NewSocket creates a socket analyzer for the given config
func NewSocket(config Config) *Socket {
	return &Socket{
		url: config.SocketURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.Timeout,
		},
		config: config,
	}
}

// Analyze sends one JPEG frame and returns the service's reading for it.
func (s *Socket) Analyze(ctx context.Context, frame []byte) (*inference.FrameInsight, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %v", ErrServiceUnavailable, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() {
		_ = conn.Close()
	}()

	deadline := time.Now().Add(s.config.Timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := conn.SetWriteDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set write deadline: %w", err)
	}
	msg := videoMessage{
		Type: "video",
		Data: base64.StdEncoding.EncodeToString(frame),
	}
	if err := conn.WriteJSON(msg); err != nil {
		return nil, fmt.Errorf("%w: send frame: %v", ErrServiceUnavailable, err)
	}

	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	var analysis analysisMessage
	if err := conn.ReadJSON(&analysis); err != nil {
		if isTimeout(err) {
			return nil, ErrSocketTimeout
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	return toInsight(&analysis), nil
}

// toInsight converts a socket analysis message into provider readings.
// Findings stays non-nil even when empty: an empty answer means the
// service checked the frame and found nothing, which releases prior
// violations downstream.
func toInsight(msg *analysisMessage) *inference.FrameInsight {
	findings := make([]inference.Finding, 0, len(msg.Violations))
	for _, v := range msg.Violations {
		if !domain.ValidKind(v.Type) {
			continue
		}
		findings = append(findings, inference.Finding{
			Kind:       v.Type,
			Severity:   v.Severity,
			Confidence: v.Confidence,
			Message:    v.Message,
		})
	}

	objects := make([]inference.ObjectDetection, 0, len(msg.Metrics.ObjectsDetected))
	for _, o := range msg.Metrics.ObjectsDetected {
		objects = append(objects, inference.ObjectDetection{
			Label:      o.Label,
			Confidence: o.Confidence,
		})
	}

	var ongoing []string
	for _, kind := range msg.ActiveViolations {
		if domain.ValidKind(kind) {
			ongoing = append(ongoing, kind)
		}
	}

	return &inference.FrameInsight{
		Face: &inference.FaceReading{
			Count:      faceCount(findings),
			Confidence: msg.Metrics.FaceConfidence,
		},
		Gaze: inference.GazeReading{
			Score: msg.Metrics.GazeScore,
			Valid: true,
		},
		Objects:  objects,
		Findings: findings,
		Ongoing:  ongoing,
	}
}

// faceCount back-fills the face counter from the service's findings
func faceCount(findings []inference.Finding) int {
	for _, f := range findings {
		switch f.Kind {
		case domain.KindNoFace:
			return 0
		case domain.KindMultipleFaces:
			return 2
		}
	}
	return 1
}

// isTimeout reports whether a socket error was a missed deadline
func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
