package remotecam

// RemoteFrame is one decoded frame pulled from the relay
type RemoteFrame struct {
	// Data is the decoded image payload, normally JPEG.
	Data []byte

	// FrameCount is the relay's upload counter for the session.
	FrameCount int

	// Placeholder marks relay-generated filler served before the phone
	// uploads anything real.
	Placeholder bool
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
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
