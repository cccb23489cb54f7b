package mediapipe

import "errors"

var (
	ErrServiceUnavailable = errors.New("analysis service unavailable")
	ErrSocketTimeout      = errors.New("analysis socket timed out")
	ErrInvalidResponse    = errors.New("invalid response from analysis service")
)
