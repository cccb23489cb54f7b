package mock

import (
	"context"
	"crypto/sha256"

	"github.com/examtrace/vigil/internal/domain"
	"github.com/examtrace/vigil/internal/inference"
)

// minFrameBytes rejects payloads too small to be a real JPEG frame
const minFrameBytes = 1000

// Provider implementa inference.Analyzer para testes e desenvolvimento
type Provider struct{}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{}
}

// AnalyzeFrame simula a análise de um frame: uma face atenta, sem objetos
// proibidos. As leituras são determinísticas por frame, derivadas do hash
// do conteúdo, então o mesmo frame sempre produz o mesmo resultado.
func (p *Provider) AnalyzeFrame(ctx context.Context, frame []byte) (*inference.FrameInsight, error) {
	if len(frame) < minFrameBytes {
		return nil, domain.ErrInvalidPayload
	}

	hash := sha256.Sum256(frame)
	eyesOpen := true

	return &inference.FrameInsight{
		Face: &inference.FaceReading{
			Count:      1,
			Confidence: scale(hash[0], 0.90, 0.99),
			Brightness: scale(hash[1], 120, 180),
			EyesOpen:   &eyesOpen,
			Pose: &inference.Pose{
				Pitch: scale(hash[2], -5, 5),
				Roll:  scale(hash[3], -3, 3),
				Yaw:   scale(hash[4], -8, 8),
			},
		},
		Gaze: inference.GazeReading{
			Score:     scale(hash[5], 0.75, 1.0),
			Direction: "center",
			Valid:     true,
		},
		Objects: []inference.ObjectDetection{},
	}, nil
}

// AnalyzeWorkspace simula a análise da câmera secundária: ambiente de
// trabalho em conformidade, mãos e teclado visíveis
func (p *Provider) AnalyzeWorkspace(ctx context.Context, sessionID string, frame []byte) (*inference.WorkspaceReport, error) {
	if len(frame) < minFrameBytes {
		return nil, domain.ErrInvalidPayload
	}

	hash := sha256.Sum256(frame)

	return &inference.WorkspaceReport{
		OverallCompliance:   scale(hash[0], 0.85, 1.0),
		ViolationPrevention: scale(hash[1], 0.85, 1.0),
		HandPlacement:       scale(hash[2], 0.80, 1.0),
		KeyboardVisibility:  scale(hash[3], 0.80, 1.0),
	}, nil
}

// HealthCheck always succeeds; there is no external dependency
func (p *Provider) HealthCheck(ctx context.Context) error {
	return nil
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "mock"
}

// scale maps one hash byte onto [lo, hi]
func scale(b byte, lo, hi float64) float64 {
	return lo + (float64(b)/255.0)*(hi-lo)
}

var _ inference.Analyzer = (*Provider)(nil)
