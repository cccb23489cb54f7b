package domain

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "error without wrapped error",
			appErr:   ErrSessionNotFound,
			expected: "Camera session not found",
		},
		{
			name: "error with wrapped error",
			appErr: &AppError{
				Code:       "TEST_ERROR",
				Message:    "Test message",
				StatusCode: 500,
				Err:        errors.New("underlying error"),
			},
			expected: "Test message: underlying error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	appErr := &AppError{
		Code:       "TEST",
		Message:    "test",
		StatusCode: 500,
		Err:        underlying,
	}

	if got := appErr.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	// Test with nil error
	appErrNoWrap := ErrSessionNotFound
	if got := appErrNoWrap.Unwrap(); got != nil {
		t.Errorf("Unwrap() = %v, want nil", got)
	}
}

func TestAppError_WithError(t *testing.T) {
	underlying := errors.New("connection refused")
	newErr := ErrAnalysisUnavailable.WithError(underlying)

	if newErr.Code != ErrAnalysisUnavailable.Code {
		t.Errorf("Code = %v, want %v", newErr.Code, ErrAnalysisUnavailable.Code)
	}

	if newErr.StatusCode != ErrAnalysisUnavailable.StatusCode {
		t.Errorf("StatusCode = %v, want %v", newErr.StatusCode, ErrAnalysisUnavailable.StatusCode)
	}

	if newErr.Err != underlying {
		t.Errorf("Err = %v, want %v", newErr.Err, underlying)
	}

	// Check errors.Is still works
	if !errors.Is(newErr, underlying) {
		t.Errorf("errors.Is should return true for wrapped error")
	}
}

func TestErrorsAs(t *testing.T) {
	err := ErrPermissionDenied.WithError(errors.New("user rejected prompt"))

	var appErr *AppError
	if !errors.As(err, &appErr) {
		t.Errorf("errors.As should match AppError")
	}

	if appErr.Code != "PERMISSION_DENIED" {
		t.Errorf("Code = %v, want PERMISSION_DENIED", appErr.Code)
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err        *AppError
		code       string
		statusCode int
	}{
		{ErrInternal, "INTERNAL_ERROR", 500},
		{ErrBadRequest, "BAD_REQUEST", 400},
		{ErrNotFound, "NOT_FOUND", 404},
		{ErrPermissionDenied, "PERMISSION_DENIED", 403},
		{ErrDeviceUnavailable, "DEVICE_UNAVAILABLE", 503},
		{ErrDeviceBusy, "DEVICE_BUSY", 409},
		{ErrTrackEnded, "TRACK_ENDED", 503},
		{ErrAnalysisTimeout, "ANALYSIS_TIMEOUT", 504},
		{ErrAnalysisUnavailable, "ANALYSIS_UNAVAILABLE", 503},
		{ErrStaleAnalysis, "STALE_ANALYSIS", 409},
		{ErrInvalidImage, "INVALID_IMAGE", 422},
		{ErrSessionNotFound, "SESSION_NOT_FOUND", 404},
		{ErrSessionExpired, "SESSION_EXPIRED", 410},
		{ErrMissingSessionID, "MISSING_SESSION_ID", 400},
		{ErrFrameTooLarge, "FRAME_TOO_LARGE", 413},
		{ErrNoFrameAvailable, "NO_FRAME_AVAILABLE", 404},
		{ErrRateLimitExceeded, "RATE_LIMIT_EXCEEDED", 429},
		{ErrValidationFailed, "VALIDATION_FAILED", 422},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if tt.err.StatusCode != tt.statusCode {
				t.Errorf("StatusCode = %v, want %v", tt.err.StatusCode, tt.statusCode)
			}
		})
	}
}
