package mediapipe

// Wire types for the analysis service API.

type workspaceRequest struct {
	SessionID string `json:"sessionId"`
	FrameData string `json:"frameData"`
}

type workspaceAnalysis struct {
	OverallCompliance   float64  `json:"overall_compliance"`
	ViolationPrevention float64  `json:"violation_prevention"`
	HandPlacement       float64  `json:"hand_placement"`
	KeyboardVisibility  float64  `json:"keyboard_visibility"`
	BlackScreen         bool     `json:"black_screen,omitempty"`
	Recommendations     []string `json:"recommendations,omitempty"`
}

type workspaceResponse struct {
	Success        bool              `json:"success"`
	Analysis       workspaceAnalysis `json:"analysis"`
	Fallback       bool              `json:"fallback,omitempty"`
	FallbackReason string            `json:"fallback_reason,omitempty"`
}

type validationRequest struct {
	SessionID string `json:"sessionId"`
	FrameData string `json:"frameData"`
}

type validationResponse struct {
	PositionValid bool `json:"position_valid"`
}

// Duplex socket protocol: one video message out, one analysis message back.

type videoMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
}

type socketMetrics struct {
	FaceConfidence  float64        `json:"face_confidence"`
	GazeScore       float64        `json:"gaze_score"`
	ObjectsDetected []socketObject `json:"objects_detected"`
}

type socketObject struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type socketViolation struct {
	Type       string  `json:"type"`
	Severity   string  `json:"severity"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
}

type analysisMessage struct {
	Metrics          socketMetrics     `json:"metrics"`
	Violations       []socketViolation `json:"violations"`
	ActiveViolations []string          `json:"active_violations"`
}
