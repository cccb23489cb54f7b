package inference

import "context"

// Analyzer define a interface para provedores de análise de frames
type Analyzer interface {
	// AnalyzeFrame analisa um frame JPEG e retorna as leituras do provider
	AnalyzeFrame(ctx context.Context, image []byte) (*FrameInsight, error)

	// HealthCheck verifies the provider is reachable and usable
	HealthCheck(ctx context.Context) error

	// Name returns the provider identifier for logs and config
	Name() string
}

// FrameInsight is everything a provider learned from one frame. Providers
// that compute violations themselves (the analysis service) fill Findings;
// providers that only produce raw readings (Rekognition, the pixel
// fallback) leave Findings nil and detectors derive from Face/Objects.
//
// Nil and empty slices mean different things here: a nil Findings or
// Objects slice says the provider never ran that check, an empty one says
// it ran and found nothing.
type FrameInsight struct {
	Face     *FaceReading      `json:"face,omitempty"`
	Gaze     GazeReading       `json:"gaze"`
	Objects  []ObjectDetection `json:"objects,omitempty"`
	Findings []Finding         `json:"findings,omitempty"`

	// Ongoing lists violation kinds the provider says are still in effect
	// without new evidence this frame. Detectors keep those alive instead
	// of clearing them.
	Ongoing []string `json:"ongoing,omitempty"`

	BlackScreen    bool   `json:"black_screen,omitempty"`
	Degraded       bool   `json:"degraded,omitempty"`
	DegradedReason string `json:"degraded_reason,omitempty"`
}

// FaceReading holds raw face-presence measurements for one frame.
type FaceReading struct {
	Count      int     `json:"count"`
	Confidence float64 `json:"confidence"`
	Brightness float64 `json:"brightness"`
	EyesOpen   *bool   `json:"eyes_open,omitempty"`
	Pose       *Pose   `json:"pose,omitempty"`
}

// Pose represents face orientation angles
type Pose struct {
	Pitch float64 `json:"pitch"` // up/down rotation
	Roll  float64 `json:"roll"`  // tilted rotation
	Yaw   float64 `json:"yaw"`   // left/right rotation
}

// GazeReading is the continuous attention estimate for one frame.
// Score is in [0,1]; Valid is false when the provider could not measure it.
type GazeReading struct {
	Score     float64 `json:"score"`
	Direction string  `json:"direction,omitempty"`
	Valid     bool    `json:"valid"`
}

// ObjectDetection is one labeled object seen in the frame.
type ObjectDetection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Finding is a provider-computed violation hint.
type Finding struct {
	Kind       string  `json:"type"`
	Severity   string  `json:"severity"`
	Confidence float64 `json:"confidence"`
	Message    string  `json:"message"`
}

// WorkspaceReport is the parsed secondary-camera analysis: whether hands
// and keyboard are visible in the workspace view. Fallback reports come
// from the service's degraded path and carry reduced weight downstream.
type WorkspaceReport struct {
	OverallCompliance   float64  `json:"overall_compliance"`
	ViolationPrevention float64  `json:"violation_prevention"`
	HandPlacement       float64  `json:"hand_placement"`
	KeyboardVisibility  float64  `json:"keyboard_visibility"`
	Recommendations     []string `json:"recommendations,omitempty"`

	BlackScreen    bool   `json:"black_screen,omitempty"`
	Fallback       bool   `json:"fallback,omitempty"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}
