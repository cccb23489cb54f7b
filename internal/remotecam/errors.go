package remotecam

import "errors"

var (
	// ErrNoFrame means the phone has not uploaded a frame for the
	// session yet.
	ErrNoFrame = errors.New("no frame available for session")

	// ErrRelayUnavailable indicates the relay could not be reached or
	// answered with a server error.
	ErrRelayUnavailable = errors.New("camera relay unavailable")

	// ErrInvalidResponse indicates the relay answered with an
	// unparseable payload.
	ErrInvalidResponse = errors.New("invalid relay response")
)
