package mediapipe

import (
	"context"
	"fmt"

	"github.com/examtrace/vigil/internal/inference"
)

// Provider implements inference.Analyzer using the analysis service
type Provider struct {
	client *Client
	socket *Socket
}

// NewProvider creates a new analysis service provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
		socket: NewSocket(config),
	}
}

// AnalyzeFrame sends the frame through the analysis socket
func (p *Provider) AnalyzeFrame(ctx context.Context, image []byte) (*inference.FrameInsight, error) {
	insight, err := p.socket.Analyze(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("analyze frame: %w", err)
	}
	return insight, nil
}

// AnalyzeWorkspace runs the secondary-camera workspace analysis
func (p *Provider) AnalyzeWorkspace(ctx context.Context, sessionID string, frame []byte) (*inference.WorkspaceReport, error) {
	return p.client.AnalyzeWorkspace(ctx, sessionID, frame)
}

// ValidatePosition checks whether the secondary camera framing is usable
func (p *Provider) ValidatePosition(ctx context.Context, sessionID string, frame []byte) (bool, error) {
	return p.client.ValidatePosition(ctx, sessionID, frame)
}

// HealthCheck verifies the analysis service is reachable
func (p *Provider) HealthCheck(ctx context.Context) error {
	return p.client.HealthCheck(ctx)
}

// Name returns the provider identifier
func (p *Provider) Name() string {
	return "mediapipe"
}

// Ensure Provider implements inference.Analyzer
var _ inference.Analyzer = (*Provider)(nil)
