package docs

import (
	"github.com/go-swagno/swagno"
	"github.com/go-swagno/swagno/components/endpoint"
	"github.com/go-swagno/swagno/components/http/response"
	"github.com/go-swagno/swagno/components/mime"
	"github.com/go-swagno/swagno/components/parameter"
)

// CreateSessionRequest represents the request to open a pairing session
type CreateSessionRequest struct {
	SessionID string `json:"sessionId" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// CreateSessionResponse represents a freshly opened pairing session
type CreateSessionResponse struct {
	SessionID string `json:"sessionId" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// UploadFrameRequest represents one frame pushed by the phone camera
type UploadFrameRequest struct {
	SessionID string `json:"sessionId" example:"550e8400-e29b-41d4-a716-446655440000"`
	FrameData string `json:"frameData" example:"data:image/jpeg;base64,/9j/4AAQ..."`
}

// UploadFrameResponse acknowledges an accepted frame
type UploadFrameResponse struct {
	FrameCount int `json:"frameCount" example:"42"`
}

// FrameResponse carries the latest frame back to the polling agent
type FrameResponse struct {
	FrameData     string `json:"frameData" example:"data:image/jpeg;base64,/9j/4AAQ..."`
	FrameCount    int    `json:"frameCount" example:"42"`
	IsPlaceholder bool   `json:"isPlaceholder,omitempty" example:"false"`
}

// CameraStatusResponse reports the connectivity of a pairing session
type CameraStatusResponse struct {
	Connected        bool  `json:"connected" example:"true"`
	Verified         bool  `json:"verified" example:"true"`
	FrameCount       int   `json:"frameCount" example:"42"`
	LastUpdated      int64 `json:"lastUpdated,omitempty" example:"1719500000000"`
	ForcedConnection bool  `json:"forcedConnection,omitempty" example:"false"`
}

// CameraValidationRequest asks whether the phone camera sees the workspace
type CameraValidationRequest struct {
	SessionID string `json:"sessionId" example:"550e8400-e29b-41d4-a716-446655440000"`
	FrameData string `json:"frameData" example:"data:image/jpeg;base64,/9j/4AAQ..."`
}

// CameraValidationResponse carries the position verdict
type CameraValidationResponse struct {
	PositionValid bool `json:"position_valid" example:"true"`
}

// ReportedViolation is one violation as the agent reports it
type ReportedViolation struct {
	Type         string  `json:"type" example:"gaze_away"`
	Severity     string  `json:"severity" example:"medium"`
	Description  string  `json:"description" example:"Looking away from screen"`
	Timestamp    string  `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	CameraSource string  `json:"cameraSource" example:"primary"`
	Confidence   float64 `json:"confidence" example:"0.82"`
	Degraded     bool    `json:"degraded" example:"false"`
}

// RecordViolationRequest represents the agent's violation report
type RecordViolationRequest struct {
	TestID    string            `json:"testId" example:"exam-2024-final"`
	Violation ReportedViolation `json:"violation"`
}

// RecordViolationResponse acknowledges an archived violation
type RecordViolationResponse struct {
	ID string `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// ViolationRecord is one archived violation
type ViolationRecord struct {
	ID         string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	TestID     string  `json:"test_id" example:"exam-2024-final"`
	Kind       string  `json:"kind" example:"gaze_away"`
	Severity   string  `json:"severity" example:"medium"`
	Confidence float64 `json:"confidence" example:"0.82"`
	Message    string  `json:"message" example:"Looking away from screen"`
	Source     string  `json:"source" example:"primary"`
	Degraded   bool    `json:"degraded" example:"false"`
	OccurredAt string  `json:"occurred_at" example:"2024-01-01T00:00:00Z"`
	CreatedAt  string  `json:"created_at" example:"2024-01-01T00:00:01Z"`
}

// ListViolationsResponse carries archived violations plus severity totals
type ListViolationsResponse struct {
	Violations []ViolationRecord `json:"violations"`
	Counts     map[string]int    `json:"counts,omitempty"`
}

// ErrorResponse represents a standard error envelope
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the error code and message
type ErrorBody struct {
	Code    string `json:"code" example:"SESSION_NOT_FOUND"`
	Message string `json:"message" example:"Camera session not found"`
}

func NewSwagger() *swagno.Swagger {
	sw := swagno.New(swagno.Config{
		Title:       "Vigil Relay API",
		Version:     "v0.1.0",
		Description: "Frame relay pairing a candidate's phone camera with the proctoring agent, plus the violation archive for proctor dashboards",
		Host:        "localhost:3000",
		Path:        "/",
	})

	endpoints := []*endpoint.EndPoint{
		// POST /session - Create Pairing Session
		endpoint.New(
			endpoint.POST,
			"/session",
			endpoint.WithTags("Pairing"),
			endpoint.WithSummary("Open a phone-camera pairing session"),
			endpoint.WithDescription("Registers a pairing session for the given sessionId. A missing sessionId gets a generated one. Re-creating an existing id resets its counters."),
			endpoint.WithBody(CreateSessionRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CreateSessionResponse{}, "201", "Session created"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{}, "422", "Malformed payload"),
				response.New(ErrorResponse{}, "500", "Internal Server Error"),
			}),
		),

		// POST /frame - Upload Frame
		endpoint.New(
			endpoint.POST,
			"/frame",
			endpoint.WithTags("Pairing"),
			endpoint.WithSummary("Upload a frame from the phone camera"),
			endpoint.WithDescription("Stores the latest frame of the session and bumps its upload counter. Only the most recent frame is kept."),
			endpoint.WithBody(UploadFrameRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(UploadFrameResponse{}, "200", "Frame accepted"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{}, "400", "Missing sessionId"),
				response.New(ErrorResponse{}, "404", "Session not found"),
				response.New(ErrorResponse{}, "413", "Frame exceeds the size cap"),
				response.New(ErrorResponse{}, "422", "Malformed payload"),
				response.New(ErrorResponse{}, "429", "Too many uploads"),
				response.New(ErrorResponse{}, "500", "Internal Server Error"),
			}),
		),

		// GET /frame - Poll Latest Frame
		endpoint.New(
			endpoint.GET,
			"/frame",
			endpoint.WithTags("Pairing"),
			endpoint.WithSummary("Fetch the latest frame of a session"),
			endpoint.WithDescription("Returns the most recent upload, or a generated placeholder card when the session exists but has no fresh frame."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("sessionId", parameter.Query, parameter.WithDescription("Pairing session identifier")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(FrameResponse{}, "200", "Latest frame or placeholder"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{}, "400", "Missing sessionId"),
				response.New(ErrorResponse{}, "404", "Session not found"),
				response.New(ErrorResponse{}, "500", "Internal Server Error"),
			}),
		),

		// GET /check-camera - Camera Status
		endpoint.New(
			endpoint.GET,
			"/check-camera",
			endpoint.WithTags("Pairing"),
			endpoint.WithSummary("Check the connectivity of a pairing session"),
			endpoint.WithDescription("Reports whether the phone is actively uploading. With heartbeat=true the call also records agent liveness."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("sessionId", parameter.Query, parameter.WithDescription("Pairing session identifier")),
				parameter.StrParam("heartbeat", parameter.Query, parameter.WithDescription("Set to true to record an agent heartbeat")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CameraStatusResponse{}, "200", "Current session status"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{}, "400", "Missing sessionId"),
				response.New(ErrorResponse{}, "404", "Session not found"),
				response.New(ErrorResponse{}, "500", "Internal Server Error"),
			}),
		),

		// POST /camera-validation - Validate Camera Position
		endpoint.New(
			endpoint.POST,
			"/camera-validation",
			endpoint.WithTags("Pairing"),
			endpoint.WithSummary("Validate the phone camera position"),
			endpoint.WithDescription("Asks the analysis service whether the frame shows a usable workspace view. Marks the session verified on success. Falls open when the analysis service is unreachable."),
			endpoint.WithBody(CameraValidationRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(CameraValidationResponse{}, "200", "Validation verdict"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{}, "400", "Missing sessionId"),
				response.New(ErrorResponse{}, "404", "Session not found"),
				response.New(ErrorResponse{}, "422", "Malformed payload"),
				response.New(ErrorResponse{}, "500", "Internal Server Error"),
			}),
		),

		// POST /violations - Record Violation
		endpoint.New(
			endpoint.POST,
			"/violations",
			endpoint.WithTags("Violations"),
			endpoint.WithSummary("Archive a violation reported by an agent"),
			endpoint.WithDescription("Persists the violation and pushes it to dashboard subscribers of the test's topic."),
			endpoint.WithBody(RecordViolationRequest{}),
			endpoint.WithConsume([]mime.MIME{mime.JSON}),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(RecordViolationResponse{}, "201", "Violation archived"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{}, "422", "Missing testId or violation type"),
				response.New(ErrorResponse{}, "500", "Internal Server Error"),
			}),
		),

		// GET /violations - List Violations
		endpoint.New(
			endpoint.GET,
			"/violations",
			endpoint.WithTags("Violations"),
			endpoint.WithSummary("List archived violations for a test"),
			endpoint.WithDescription("Returns the newest violations of the test plus per-severity totals."),
			endpoint.WithProduce([]mime.MIME{mime.JSON}),
			endpoint.WithParams(
				parameter.StrParam("testId", parameter.Query, parameter.WithDescription("Test identifier")),
				parameter.IntParam("limit", parameter.Query, parameter.WithDescription("Maximum number of records (default: 50, max: 500)")),
			),
			endpoint.WithSuccessfulReturns([]response.Response{
				response.New(ListViolationsResponse{}, "200", "Violations retrieved"),
			}),
			endpoint.WithErrors([]response.Response{
				response.New(ErrorResponse{}, "400", "Missing testId"),
				response.New(ErrorResponse{}, "500", "Internal Server Error"),
			}),
		),
	}

	sw.AddEndpoints(endpoints)
	return sw
}
