package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	// Device errors: fatal to session start, surfaced with a user-actionable
	// message, never retried beyond the bounded re-acquisition policy.
	ErrPermissionDenied = &AppError{
		Code:       "PERMISSION_DENIED",
		Message:    "Camera or microphone permission was denied",
		StatusCode: 403,
	}

	ErrDeviceUnavailable = &AppError{
		Code:       "DEVICE_UNAVAILABLE",
		Message:    "No usable camera or microphone device found",
		StatusCode: 503,
	}

	ErrDeviceBusy = &AppError{
		Code:       "DEVICE_BUSY",
		Message:    "Device is already in use by another application",
		StatusCode: 409,
	}

	ErrTrackEnded = &AppError{
		Code:       "TRACK_ENDED",
		Message:    "Device track ended and could not be re-acquired",
		StatusCode: 503,
	}

	ErrScreenUnsupported = &AppError{
		Code:       "SCREEN_UNSUPPORTED",
		Message:    "No screen capture source is configured",
		StatusCode: 422,
	}

	// Transient network errors: the affected cycle is skipped and the
	// failure counter advances; these never crash the session.
	ErrAnalysisTimeout = &AppError{
		Code:       "ANALYSIS_TIMEOUT",
		Message:    "Analysis request timed out",
		StatusCode: 504,
	}

	ErrAnalysisUnavailable = &AppError{
		Code:       "ANALYSIS_UNAVAILABLE",
		Message:    "Analysis service is unavailable",
		StatusCode: 503,
	}

	// Degraded analysis: not a failure, but must stay distinguishable from
	// a genuine detection in the violation stream.
	ErrAnalysisDegraded = &AppError{
		Code:       "ANALYSIS_DEGRADED",
		Message:    "Analysis service returned fallback results",
		StatusCode: 200,
	}

	ErrBlackFrame = &AppError{
		Code:       "BLACK_FRAME",
		Message:    "Frame is black or too dark to analyze",
		StatusCode: 422,
	}

	// State inconsistencies are discarded silently, never applied to the
	// live aggregator state.
	ErrStaleAnalysis = &AppError{
		Code:       "STALE_ANALYSIS",
		Message:    "Analysis result is older than the last applied frame",
		StatusCode: 409,
	}

	ErrSessionMismatch = &AppError{
		Code:       "SESSION_MISMATCH",
		Message:    "Result belongs to a session that is no longer active",
		StatusCode: 409,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	// Relay errors
	ErrSessionNotFound = &AppError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "Camera session not found",
		StatusCode: 404,
	}

	ErrSessionExpired = &AppError{
		Code:       "SESSION_EXPIRED",
		Message:    "Camera session has expired",
		StatusCode: 410,
	}

	ErrMissingSessionID = &AppError{
		Code:       "MISSING_SESSION_ID",
		Message:    "sessionId is required",
		StatusCode: 400,
	}

	ErrInvalidPayload = &AppError{
		Code:       "INVALID_PAYLOAD",
		Message:    "Request payload is malformed",
		StatusCode: 422,
	}

	ErrFrameTooLarge = &AppError{
		Code:       "FRAME_TOO_LARGE",
		Message:    "Frame exceeds the maximum allowed size",
		StatusCode: 413,
	}

	ErrNoFrameAvailable = &AppError{
		Code:       "NO_FRAME_AVAILABLE",
		Message:    "No frame has been uploaded for this session yet",
		StatusCode: 404,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}
)
