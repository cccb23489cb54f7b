package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/examtrace/vigil/internal/domain"
	"github.com/examtrace/vigil/internal/observe"
	"github.com/examtrace/vigil/internal/relay"
	"github.com/examtrace/vigil/internal/ws"
)

const (
	// Base64 inflates the payload by a third, plus some JSON wrapper.
	uploadBodySlack = 1024

	placeholderMessage = "Waiting for camera..."
)

// PositionValidator proxies the pairing position check to the AI service.
type PositionValidator interface {
	ValidatePosition(ctx context.Context, sessionID string, frame []byte) (bool, error)
}

// Broadcaster pushes events to websocket subscribers.
type Broadcaster interface {
	Broadcast(topic string, eventType ws.EventType, data interface{})
}

// RelayConfig tunes the frame relay endpoints.
type RelayConfig struct {
	MaxFrameBytes  int
	FrameRecency   time.Duration
	ForceConnected bool
}

// RelayHandler serves the phone-camera pairing flow: session creation,
// frame uploads from the phone and frame polling by the agent.
type RelayHandler struct {
	store     relay.Store
	validator PositionValidator
	hub       Broadcaster
	metrics   *observe.Metrics
	logger    *slog.Logger
	config    RelayConfig

	// Wire-ready placeholder, rendered once.
	placeholder string

	mu            sync.Mutex
	connected     map[string]bool
	placeholderAt map[string]time.Time

	now func() time.Time
}

func NewRelayHandler(
	store relay.Store,
	validator PositionValidator,
	hub Broadcaster,
	metrics *observe.Metrics,
	logger *slog.Logger,
	config RelayConfig,
) *RelayHandler {
	if config.MaxFrameBytes <= 0 {
		config.MaxFrameBytes = relay.DefaultMaxFrameBytes
	}
	if config.FrameRecency <= 0 {
		config.FrameRecency = relay.DefaultFrameRecency
	}

	placeholder := ""
	if data, err := relay.PlaceholderJPEG(placeholderMessage); err == nil {
		placeholder = relay.EncodeFrameData(data)
	} else {
		logger.Warn("failed to render placeholder frame", "error", err)
	}

	return &RelayHandler{
		store:         store,
		validator:     validator,
		hub:           hub,
		metrics:       metrics,
		logger:        logger,
		config:        config,
		placeholder:   placeholder,
		connected:     make(map[string]bool),
		placeholderAt: make(map[string]time.Time),
		now:           time.Now,
	}
}

type createSessionRequest struct {
	SessionID string `json:"sessionId"`
}

type createSessionResponse struct {
	SessionID string `json:"sessionId"`
}

type uploadFrameRequest struct {
	SessionID string `json:"sessionId"`
	FrameData string `json:"frameData"`
}

type uploadFrameResponse struct {
	FrameCount int `json:"frameCount"`
}

type frameResponse struct {
	FrameData     string `json:"frameData"`
	FrameCount    int    `json:"frameCount"`
	IsPlaceholder bool   `json:"isPlaceholder,omitempty"`
}

type cameraStatusResponse struct {
	Connected        bool  `json:"connected"`
	Verified         bool  `json:"verified"`
	FrameCount       int   `json:"frameCount"`
	LastUpdated      int64 `json:"lastUpdated"`
	ForcedConnection bool  `json:"forcedConnection,omitempty"`
}

type cameraValidationRequest struct {
	SessionID string `json:"sessionId"`
	FrameData string `json:"frameData"`
}

type cameraValidationResponse struct {
	PositionValid bool `json:"position_valid"`
}

// CreateSession POST /session - register a pairing session
// @Summary Create relay session
// @Description Registers a pairing session; generates an id when the body has none
// @Tags relay
// @Accept json
// @Produce json
// @Success 201 {object} createSessionResponse
// @Router /session [post]
func (h *RelayHandler) CreateSession(c *fiber.Ctx) error {
	var req createSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return domain.ErrInvalidPayload.WithError(err)
		}
	}

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	if _, err := h.store.CreateSession(c.Context(), sessionID); err != nil {
		return err
	}

	h.metrics.RecordSessionCreated()
	h.logger.Info("relay session created", "session_id", sessionID)

	return c.Status(fiber.StatusCreated).JSON(createSessionResponse{SessionID: sessionID})
}

// UploadFrame POST /frame - phone pushes its newest frame
// @Summary Upload camera frame
// @Description Stores the newest frame for the session, replacing the previous one
// @Tags relay
// @Accept json
// @Produce json
// @Success 200 {object} uploadFrameResponse
// @Failure 404 {object} domain.AppError
// @Failure 413 {object} domain.AppError
// @Router /frame [post]
func (h *RelayHandler) UploadFrame(c *fiber.Ctx) error {
	maxBody := (h.config.MaxFrameBytes/3)*4 + uploadBodySlack
	if len(c.Body()) > maxBody {
		return domain.ErrFrameTooLarge
	}

	var req uploadFrameRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrInvalidPayload.WithError(err)
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return domain.ErrMissingSessionID
	}
	if req.FrameData == "" {
		return domain.ErrInvalidPayload.WithError(errors.New("frameData is required"))
	}

	data, err := relay.DecodeFrameData(req.FrameData)
	if err != nil {
		return domain.ErrInvalidPayload.WithError(err)
	}
	if len(data) > h.config.MaxFrameBytes {
		return domain.ErrFrameTooLarge
	}

	now := h.now()
	count, err := h.store.RecordUpload(c.Context(), req.SessionID, now)
	if err != nil {
		return err
	}

	if err := h.store.PutFrame(c.Context(), req.SessionID, relay.FrameRecord{
		Data:       data,
		Seq:        count,
		UploadedAt: now,
	}); err != nil {
		return err
	}

	h.metrics.RecordUpload(len(data))

	return c.JSON(uploadFrameResponse{FrameCount: count})
}

// GetFrame GET /frame - agent polls the newest frame
// @Summary Fetch newest frame
// @Description Returns the newest upload, or a placeholder when the feed is stale
// @Tags relay
// @Produce json
// @Param sessionId query string true "Session id"
// @Success 200 {object} frameResponse
// @Failure 404 {object} domain.AppError
// @Router /frame [get]
func (h *RelayHandler) GetFrame(c *fiber.Ctx) error {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		return domain.ErrMissingSessionID
	}

	sess, err := h.store.GetSession(c.Context(), sessionID)
	if err != nil {
		h.forget(sessionID)
		return err
	}

	now := h.now()
	frame, err := h.store.GetFrame(c.Context(), sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrNoFrameAvailable) {
			return h.servePlaceholder(c, sessionID, sess.FrameCount, now)
		}
		return err
	}
	if now.Sub(frame.UploadedAt) > h.config.FrameRecency {
		return h.servePlaceholder(c, sessionID, sess.FrameCount, now)
	}

	h.metrics.RecordFrameServed(false)

	return c.JSON(frameResponse{
		FrameData:  relay.EncodeFrameData(frame.Data),
		FrameCount: frame.Seq,
	})
}

// CheckCamera GET /check-camera - pairing status poll
// @Summary Check camera status
// @Description Reports pairing status; with heartbeat set it also refreshes session liveness
// @Tags relay
// @Produce json
// @Param sessionId query string true "Session id"
// @Param heartbeat query bool false "Refresh session liveness"
// @Success 200 {object} cameraStatusResponse
// @Failure 404 {object} domain.AppError
// @Router /check-camera [get]
func (h *RelayHandler) CheckCamera(c *fiber.Ctx) error {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		return domain.ErrMissingSessionID
	}

	now := h.now()
	if c.Query("heartbeat") == "true" {
		if err := h.store.RecordHeartbeat(c.Context(), sessionID, now); err != nil {
			return err
		}
	}

	sess, err := h.store.GetSession(c.Context(), sessionID)
	if err != nil {
		h.forget(sessionID)
		return err
	}

	connected := sess.Connected(now, h.config.FrameRecency)
	h.announceTransition(sessionID, connected, sess.FrameCount)

	payload := cameraStatusResponse{
		Connected:        connected || h.config.ForceConnected,
		Verified:         sess.Verified,
		FrameCount:       sess.FrameCount,
		ForcedConnection: h.config.ForceConnected,
	}
	if !sess.LastUpload.IsZero() {
		payload.LastUpdated = sess.LastUpload.UnixMilli()
	}

	return c.JSON(payload)
}

// ValidateCamera POST /camera-validation - secondary camera framing check
// @Summary Validate camera position
// @Description Proxies the workspace framing check; success marks the session verified
// @Tags relay
// @Accept json
// @Produce json
// @Success 200 {object} cameraValidationResponse
// @Failure 404 {object} domain.AppError
// @Router /camera-validation [post]
func (h *RelayHandler) ValidateCamera(c *fiber.Ctx) error {
	var req cameraValidationRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrInvalidPayload.WithError(err)
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return domain.ErrMissingSessionID
	}

	if _, err := h.store.GetSession(c.Context(), req.SessionID); err != nil {
		return err
	}

	data, err := relay.DecodeFrameData(req.FrameData)
	if err != nil {
		return domain.ErrInvalidPayload.WithError(err)
	}

	valid := true
	if h.validator != nil {
		valid, err = h.validator.ValidatePosition(c.Context(), req.SessionID, data)
		if err != nil {
			// Pairing must not block on the AI service being down.
			h.logger.Warn("camera validation unavailable",
				"error", err,
				"session_id", req.SessionID,
			)
			valid = true
		}
	}

	if valid {
		if err := h.store.SetVerified(c.Context(), req.SessionID); err != nil {
			return err
		}
		h.broadcast(req.SessionID, ws.EventSessionVerified, fiber.Map{
			"sessionId": req.SessionID,
		})
	}

	return c.JSON(cameraValidationResponse{PositionValid: valid})
}

func (h *RelayHandler) servePlaceholder(c *fiber.Ctx, sessionID string, frameCount int, now time.Time) error {
	h.maybeAnnouncePlaceholder(sessionID, now)
	h.metrics.RecordFrameServed(true)

	return c.JSON(frameResponse{
		FrameData:     h.placeholder,
		FrameCount:    frameCount,
		IsPlaceholder: true,
	})
}

// announceTransition emits camera.connected / camera.disconnected only
// when the gate flips, polls arrive several times a second.
func (h *RelayHandler) announceTransition(sessionID string, connected bool, frameCount int) {
	h.mu.Lock()
	prev, seen := h.connected[sessionID]
	h.connected[sessionID] = connected
	h.mu.Unlock()

	if seen && connected == prev {
		return
	}
	if connected {
		h.broadcast(sessionID, ws.EventCameraConnected, fiber.Map{
			"sessionId":  sessionID,
			"frameCount": frameCount,
		})
	} else if seen {
		h.broadcast(sessionID, ws.EventCameraDisconnected, fiber.Map{
			"sessionId": sessionID,
		})
	}
}

// maybeAnnouncePlaceholder emits frame.placeholder at most once per
// recency window per session.
func (h *RelayHandler) maybeAnnouncePlaceholder(sessionID string, now time.Time) {
	h.mu.Lock()
	last, ok := h.placeholderAt[sessionID]
	if ok && now.Sub(last) < h.config.FrameRecency {
		h.mu.Unlock()
		return
	}
	h.placeholderAt[sessionID] = now
	h.mu.Unlock()

	h.broadcast(sessionID, ws.EventFramePlaceholder, fiber.Map{
		"sessionId": sessionID,
	})
}

func (h *RelayHandler) forget(sessionID string) {
	h.mu.Lock()
	delete(h.connected, sessionID)
	delete(h.placeholderAt, sessionID)
	h.mu.Unlock()
}

func (h *RelayHandler) broadcast(topic string, eventType ws.EventType, data interface{}) {
	if h.hub != nil {
		h.hub.Broadcast(topic, eventType, data)
	}
}
