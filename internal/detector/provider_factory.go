package detector

import (
	"context"
	"fmt"

	"github.com/examtrace/vigil/internal/config"
	"github.com/examtrace/vigil/internal/inference"
	"github.com/examtrace/vigil/internal/inference/mediapipe"
	"github.com/examtrace/vigil/internal/inference/pixel"
	"github.com/examtrace/vigil/internal/inference/rekognition"
)

// ProviderType defines supported frame analysis provider types
type ProviderType string

const (
	// ProviderTypeMediaPipe is the analysis service provider (default)
	ProviderTypeMediaPipe ProviderType = "mediapipe"
	// ProviderTypeRekognition is the AWS Rekognition provider (cloud)
	ProviderTypeRekognition ProviderType = "rekognition"
	// ProviderTypePixel is the local heuristic fallback (no dependencies)
	ProviderTypePixel ProviderType = "pixel"
)

// NewAnalyzer creates a frame analyzer instance based on configuration
//
// Environment variables:
//   - PROVIDER_TYPE: "mediapipe", "rekognition" or "pixel" (default: "mediapipe")
//   - ANALYSIS_URL: analysis service base URL
//   - ANALYSIS_SOCKET_URL: analysis service websocket URL
//   - AWS_REGION: AWS region for Rekognition
//   - AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY: via AWS SDK credential chain
func NewAnalyzer(ctx context.Context, cfg *config.Config) (inference.Analyzer, error) {
	providerType := ProviderType(cfg.ProviderType)

	switch providerType {
	case ProviderTypeRekognition:
		return createRekognitionAnalyzer(ctx, cfg)

	case ProviderTypePixel:
		return pixel.NewProvider(), nil

	case ProviderTypeMediaPipe, "":
		return createMediaPipeAnalyzer(cfg), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s, %s)",
			cfg.ProviderType, ProviderTypeMediaPipe, ProviderTypeRekognition, ProviderTypePixel)
	}
}

// NewWorkspaceAnalyzer picks the workspace analyzer. Rekognition has no
// workspace analysis, so anything but an explicit pixel choice uses the
// analysis service.
func NewWorkspaceAnalyzer(cfg *config.Config) WorkspaceAnalyzer {
	if ProviderType(cfg.ProviderType) == ProviderTypePixel {
		return pixel.NewProvider()
	}
	return createMediaPipeAnalyzer(cfg)
}

// createMediaPipeAnalyzer creates an analysis service provider instance
func createMediaPipeAnalyzer(cfg *config.Config) *mediapipe.Provider {
	mpConfig := mediapipe.DefaultConfig()
	if cfg.AnalysisURL != "" {
		mpConfig.BaseURL = cfg.AnalysisURL
	}
	if cfg.AnalysisSocketURL != "" {
		mpConfig.SocketURL = cfg.AnalysisSocketURL
	}
	if cfg.AnalysisTimeout > 0 {
		mpConfig.Timeout = cfg.AnalysisTimeout
	}
	return mediapipe.NewProvider(mpConfig)
}

// createRekognitionAnalyzer creates an AWS Rekognition provider instance
func createRekognitionAnalyzer(ctx context.Context, cfg *config.Config) (inference.Analyzer, error) {
	rekogConfig := rekognition.DefaultConfig()
	if cfg.AWSRegion != "" {
		rekogConfig.Region = cfg.AWSRegion
	}

	prov, err := rekognition.NewProvider(ctx, rekogConfig)
	if err != nil {
		return nil, fmt.Errorf("create rekognition analyzer: %w", err)
	}

	return prov, nil
}
