package rekognition

import (
	"context"
	"fmt"
	"math"

	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/examtrace/vigil/internal/inference"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
	// minImageSize is the minimum image size for valid processing
	minImageSize = 100

	// minFaceConfidence drops low-confidence background detections so they
	// do not inflate the face count
	minFaceConfidence = 80.0

	// yawLimit and pitchLimit are the head angles beyond which the
	// candidate cannot plausibly be looking at the screen
	yawLimit   = 45.0
	pitchLimit = 30.0
)

// labelAliases maps Rekognition label names onto the canonical object names
// the detectors watch for. Labels outside the list are scene noise.
var labelAliases = map[string]string{
	"Mobile Phone":      "cell phone",
	"Cell Phone":        "cell phone",
	"Phone":             "cell phone",
	"Laptop":            "laptop",
	"Tablet Computer":   "tablet",
	"Book":              "book",
	"Remote Control":    "remote",
	"Computer Keyboard": "keyboard",
	"Mouse":             "mouse",
	"TV":                "tv",
	"Television":        "tv",
	"Monitor":           "monitor",
	"Screen":            "monitor",
	"Headphones":        "headphones",
}

// Provider implementa inference.Analyzer usando AWS Rekognition
type Provider struct {
	client *Client
}

// Ensure Provider implements inference.Analyzer at compile time
var _ inference.Analyzer = (*Provider)(nil)

// NewProvider creates a new Rekognition frame analyzer
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	client, err := NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}

	return &Provider{client: client}, nil
}

// validateImage checks if image data is valid for Rekognition processing
func validateImage(image []byte) error {
	if len(image) == 0 {
		return ErrInvalidImage
	}
	if len(image) < minImageSize {
		return fmt.Errorf("%w: image too small (%d bytes, minimum %d)", ErrInvalidImage, len(image), minImageSize)
	}
	if len(image) > maxImageSize {
		return fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, len(image), maxImageSize)
	}
	return nil
}

// AnalyzeFrame runs face and label detection on one frame. Rekognition
// computes no violations itself, so Findings stays nil and the detectors
// derive everything from the raw readings.
func (p *Provider) AnalyzeFrame(ctx context.Context, image []byte) (*inference.FrameInsight, error) {
	if err := validateImage(image); err != nil {
		return nil, err
	}

	details, err := p.client.DetectFaces(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("analyze frame: %w", err)
	}

	labels, err := p.client.DetectLabels(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("analyze frame: %w", err)
	}

	return &inference.FrameInsight{
		Face:    faceReading(details),
		Gaze:    gazeReading(details),
		Objects: objectDetections(labels),
	}, nil
}

// HealthCheck verifies AWS credentials can be resolved
func (p *Provider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.creds.Retrieve(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}
	return nil
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "rekognition"
}

// confidentFaces filters out detections below minFaceConfidence
func confidentFaces(details []types.FaceDetail) []types.FaceDetail {
	faces := make([]types.FaceDetail, 0, len(details))
	for _, detail := range details {
		if detail.Confidence != nil && float64(*detail.Confidence) >= minFaceConfidence {
			faces = append(faces, detail)
		}
	}
	return faces
}

// bestFace returns the most confident detection, or nil when there is none
func bestFace(details []types.FaceDetail) *types.FaceDetail {
	var best *types.FaceDetail
	for i := range details {
		detail := &details[i]
		if detail.Confidence == nil {
			continue
		}
		if best == nil || *detail.Confidence > *best.Confidence {
			best = detail
		}
	}
	return best
}

// faceReading condenses the face details into one reading. The most
// confident face drives the quality fields.
func faceReading(details []types.FaceDetail) *inference.FaceReading {
	faces := confidentFaces(details)
	reading := &inference.FaceReading{Count: len(faces)}

	best := bestFace(faces)
	if best == nil {
		return reading
	}

	reading.Confidence = float64(*best.Confidence) / 100

	if best.Quality != nil && best.Quality.Brightness != nil {
		// Rekognition reports 0-100; downstream thresholds use 0-255 luma.
		reading.Brightness = float64(*best.Quality.Brightness) * 2.55
	}
	if best.EyesOpen != nil {
		open := best.EyesOpen.Value
		reading.EyesOpen = &open
	}
	if best.Pose != nil {
		reading.Pose = &inference.Pose{
			Pitch: float64(deref(best.Pose.Pitch)),
			Roll:  float64(deref(best.Pose.Roll)),
			Yaw:   float64(deref(best.Pose.Yaw)),
		}
	}

	return reading
}

// gazeReading estimates attention from the head pose of the best face.
// A face turned past the yaw or pitch limit scores zero.
func gazeReading(details []types.FaceDetail) inference.GazeReading {
	best := bestFace(confidentFaces(details))
	if best == nil || best.Pose == nil {
		return inference.GazeReading{Valid: false}
	}

	yaw := float64(deref(best.Pose.Yaw))
	pitch := float64(deref(best.Pose.Pitch))

	away := math.Max(math.Abs(yaw)/yawLimit, math.Abs(pitch)/pitchLimit)
	if away > 1 {
		away = 1
	}

	return inference.GazeReading{
		Score:     1 - away,
		Direction: direction(yaw, pitch),
		Valid:     true,
	}
}

// direction names where the head is turned
func direction(yaw, pitch float64) string {
	switch {
	case yaw < -15:
		return "left"
	case yaw > 15:
		return "right"
	case pitch > 15:
		return "up"
	case pitch < -15:
		return "down"
	default:
		return "center"
	}
}

// objectDetections maps watchlisted labels into object detections. The
// result is non-nil even when empty: the check ran and found nothing.
func objectDetections(labels []types.Label) []inference.ObjectDetection {
	objects := make([]inference.ObjectDetection, 0, len(labels))
	for _, label := range labels {
		if label.Name == nil {
			continue
		}
		name, ok := labelAliases[*label.Name]
		if !ok {
			continue
		}
		confidence := 0.0
		if label.Confidence != nil {
			confidence = float64(*label.Confidence) / 100
		}
		objects = append(objects, inference.ObjectDetection{
			Label:      name,
			Confidence: confidence,
		})
	}
	return objects
}

func deref(f *float32) float32 {
	if f == nil {
		return 0
	}
	return *f
}
