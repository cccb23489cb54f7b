package mediapipe

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examtrace/vigil/internal/domain"
)

// startAnalysisService runs a websocket endpoint that answers every video
// message with the given handler. Returns the ws:// URL to dial.
func startAnalysisService(t *testing.T, handler func(*websocket.Conn)) string {
	t.Helper()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/analysis", websocket.New(handler))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	go func() {
		_ = app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = app.Shutdown()
	})

	return "ws://" + ln.Addr().String() + "/ws/analysis"
}

func TestSocket_Analyze(t *testing.T) {
	url := startAnalysisService(t, func(conn *websocket.Conn) {
		var msg videoMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type != "video" || msg.Data == "" {
			return
		}
		_ = conn.WriteJSON(analysisMessage{
			Metrics: socketMetrics{
				FaceConfidence: 0.92,
				GazeScore:      0.3,
				ObjectsDetected: []socketObject{
					{Label: "cell phone", Confidence: 0.87},
				},
			},
			Violations: []socketViolation{
				{Type: domain.KindNoFace, Severity: domain.SeverityHigh, Confidence: 0.9, Message: "no face detected"},
			},
			ActiveViolations: []string{domain.KindProhibitedObject},
		})
	})

	config := DefaultConfig()
	config.SocketURL = url

	socket := NewSocket(config)
	insight, err := socket.Analyze(context.Background(), []byte("frame"))

	require.NoError(t, err)
	require.NotNil(t, insight)

	require.NotNil(t, insight.Face)
	assert.Equal(t, 0, insight.Face.Count)
	assert.Equal(t, 0.92, insight.Face.Confidence)

	assert.Equal(t, 0.3, insight.Gaze.Score)
	assert.True(t, insight.Gaze.Valid)

	require.Len(t, insight.Objects, 1)
	assert.Equal(t, "cell phone", insight.Objects[0].Label)

	require.Len(t, insight.Findings, 1)
	assert.Equal(t, domain.KindNoFace, insight.Findings[0].Kind)
	assert.Equal(t, domain.SeverityHigh, insight.Findings[0].Severity)

	assert.Equal(t, []string{domain.KindProhibitedObject}, insight.Ongoing)
}

func TestSocket_Analyze_CleanFrame(t *testing.T) {
	url := startAnalysisService(t, func(conn *websocket.Conn) {
		var msg videoMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.WriteJSON(analysisMessage{
			Metrics: socketMetrics{FaceConfidence: 0.95, GazeScore: 0.9},
		})
	})

	config := DefaultConfig()
	config.SocketURL = url

	socket := NewSocket(config)
	insight, err := socket.Analyze(context.Background(), []byte("frame"))

	require.NoError(t, err)
	require.NotNil(t, insight)

	// An empty answer still means the service checked the frame.
	require.NotNil(t, insight.Findings)
	assert.Len(t, insight.Findings, 0)
	assert.Empty(t, insight.Ongoing)

	require.NotNil(t, insight.Face)
	assert.Equal(t, 1, insight.Face.Count)
}

func TestSocket_Analyze_FiltersUnknownKinds(t *testing.T) {
	url := startAnalysisService(t, func(conn *websocket.Conn) {
		var msg videoMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		_ = conn.WriteJSON(analysisMessage{
			Violations: []socketViolation{
				{Type: "quantum_entanglement", Severity: domain.SeverityHigh},
				{Type: domain.KindMultipleFaces, Severity: domain.SeverityCritical, Confidence: 0.8},
			},
			ActiveViolations: []string{"quantum_entanglement"},
		})
	})

	config := DefaultConfig()
	config.SocketURL = url

	socket := NewSocket(config)
	insight, err := socket.Analyze(context.Background(), []byte("frame"))

	require.NoError(t, err)
	require.Len(t, insight.Findings, 1)
	assert.Equal(t, domain.KindMultipleFaces, insight.Findings[0].Kind)
	assert.Equal(t, 2, insight.Face.Count)
	assert.Empty(t, insight.Ongoing)
}

func TestSocket_Analyze_DialFailure(t *testing.T) {
	config := DefaultConfig()
	config.SocketURL = "ws://127.0.0.1:1/ws/analysis"
	config.Timeout = 500 * time.Millisecond

	socket := NewSocket(config)
	_, err := socket.Analyze(context.Background(), []byte("frame"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestSocket_Analyze_ReplyTimeout(t *testing.T) {
	url := startAnalysisService(t, func(conn *websocket.Conn) {
		var msg videoMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		// Never reply; the client read deadline has to fire.
		time.Sleep(2 * time.Second)
	})

	config := DefaultConfig()
	config.SocketURL = url
	config.Timeout = 300 * time.Millisecond

	socket := NewSocket(config)
	_, err := socket.Analyze(context.Background(), []byte("frame"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSocketTimeout)
}
