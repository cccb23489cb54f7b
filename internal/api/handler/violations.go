package handler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/examtrace/vigil/internal/domain"
	"github.com/examtrace/vigil/internal/observe"
	"github.com/examtrace/vigil/internal/ws"
)

// ViolationArchive is the slice of the repository these endpoints need.
type ViolationArchive interface {
	Create(ctx context.Context, record *domain.ViolationRecord) error
	ListByTest(ctx context.Context, testID string, limit int) ([]domain.ViolationRecord, error)
	CountBySeverity(ctx context.Context, testID string) (map[string]int, error)
}

// ViolationsHandler archives violations reported by agents and serves
// them back to proctor dashboards.
type ViolationsHandler struct {
	archive ViolationArchive
	hub     Broadcaster
	metrics *observe.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

func NewViolationsHandler(
	archive ViolationArchive,
	hub Broadcaster,
	metrics *observe.Metrics,
	logger *slog.Logger,
) *ViolationsHandler {
	return &ViolationsHandler{
		archive: archive,
		hub:     hub,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// reportedViolation matches the agent reporter's wire shape.
type reportedViolation struct {
	Type         string    `json:"type"`
	Severity     string    `json:"severity"`
	Description  string    `json:"description"`
	Timestamp    time.Time `json:"timestamp"`
	CameraSource string    `json:"cameraSource"`
	Confidence   float64   `json:"confidence"`
	Degraded     bool      `json:"degraded"`
}

type recordViolationRequest struct {
	TestID    string            `json:"testId"`
	Violation reportedViolation `json:"violation"`
}

type recordViolationResponse struct {
	ID string `json:"id"`
}

type listViolationsResponse struct {
	Violations []domain.ViolationRecord `json:"violations"`
	Counts     map[string]int           `json:"counts,omitempty"`
}

// Record POST /violations - archive a reported violation
// @Summary Record violation
// @Description Archives a violation and notifies dashboard subscribers
// @Tags violations
// @Accept json
// @Produce json
// @Success 201 {object} recordViolationResponse
// @Failure 422 {object} domain.AppError
// @Router /violations [post]
func (h *ViolationsHandler) Record(c *fiber.Ctx) error {
	var req recordViolationRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.ErrValidationFailed.WithError(err)
	}

	testID := strings.TrimSpace(req.TestID)
	if testID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("testId is required"))
	}
	if strings.TrimSpace(req.Violation.Type) == "" {
		return domain.ErrValidationFailed.WithError(errors.New("violation.type is required"))
	}

	severity := req.Violation.Severity
	if severity == "" {
		severity = domain.SeverityMedium
	}
	source := req.Violation.CameraSource
	if source == "" {
		source = domain.SourcePrimary
	}
	occurredAt := req.Violation.Timestamp
	if occurredAt.IsZero() {
		occurredAt = h.now()
	}

	record := &domain.ViolationRecord{
		TestID:     testID,
		Kind:       req.Violation.Type,
		Severity:   severity,
		Confidence: req.Violation.Confidence,
		Message:    req.Violation.Description,
		Source:     source,
		Degraded:   req.Violation.Degraded,
		OccurredAt: occurredAt,
	}

	if err := h.archive.Create(c.Context(), record); err != nil {
		return err
	}

	h.metrics.RecordViolation(record.Kind, record.Severity, record.Source)
	if h.hub != nil {
		h.hub.Broadcast(testID, ws.EventViolationRecorded, record)
	}

	h.logger.Info("violation archived",
		"test_id", testID,
		"kind", record.Kind,
		"severity", record.Severity,
	)

	return c.Status(fiber.StatusCreated).JSON(recordViolationResponse{
		ID: record.ID.String(),
	})
}

// List GET /violations - recent archive rows for a test
// @Summary List violations
// @Description Returns the newest archived violations for a test
// @Tags violations
// @Produce json
// @Param testId query string true "Test id"
// @Param limit query int false "Max rows"
// @Success 200 {object} listViolationsResponse
// @Router /violations [get]
func (h *ViolationsHandler) List(c *fiber.Ctx) error {
	testID := c.Query("testId")
	if testID == "" {
		return domain.ErrValidationFailed.WithError(errors.New("testId is required"))
	}

	rows, err := h.archive.ListByTest(c.Context(), testID, c.QueryInt("limit"))
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []domain.ViolationRecord{}
	}

	counts, err := h.archive.CountBySeverity(c.Context(), testID)
	if err != nil {
		return err
	}

	return c.JSON(listViolationsResponse{
		Violations: rows,
		Counts:     counts,
	})
}
