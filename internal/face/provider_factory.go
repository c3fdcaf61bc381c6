package face

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/config"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/provider"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/provider/mock"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/provider/rekognition"
)

// ProviderType defines supported embedding provider types
type ProviderType string

const (
	// ProviderTypeDeepFace is the DeepFace HTTP service
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeMock produces deterministic embeddings, for dev/test
	ProviderTypeMock ProviderType = "mock"
)

// DetectorType defines the optional face-presence gate run before embedding
type DetectorType string

const (
	DetectorNone        DetectorType = "none"
	DetectorRekognition DetectorType = "rekognition"
)

// NewEmbedder creates the probe embedder based on configuration.
//
// Environment variables:
//   - PROVIDER_TYPE: "deepface" or "mock" (default: "deepface")
//   - DEEPFACE_URL, DEEPFACE_MODEL, DEEPFACE_DETECTOR, DEEPFACE_TIMEOUT, DEEPFACE_RETRIES
//   - PROBE_DETECTOR: "none" or "rekognition" (default: "none")
//   - AWS_REGION: AWS region for Rekognition (credentials via the AWS SDK chain)
func NewEmbedder(ctx context.Context, cfg *config.Config) (provider.Embedder, error) {
	var embedder provider.Embedder

	switch ProviderType(cfg.ProviderType) {
	case ProviderTypeDeepFace, "":
		embedder = createDeepFaceProvider(cfg)
	case ProviderTypeMock:
		embedder = mock.New(cfg.EmbeddingDim)
	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s)",
			cfg.ProviderType, ProviderTypeDeepFace, ProviderTypeMock)
	}

	switch DetectorType(cfg.ProbeDetector) {
	case DetectorNone, "":
		return embedder, nil
	case DetectorRekognition:
		detector, err := rekognition.NewDetector(ctx, rekognition.Config{
			Region:        cfg.AWSRegion,
			MinConfidence: rekognition.DefaultConfig().MinConfidence,
		})
		if err != nil {
			return nil, fmt.Errorf("create rekognition detector: %w", err)
		}
		return provider.NewGatedEmbedder(detector, embedder), nil
	default:
		return nil, fmt.Errorf("unknown probe detector: %s (supported: %s, %s)",
			cfg.ProbeDetector, DetectorNone, DetectorRekognition)
	}
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) *deepface.Provider {
	dfConfig := deepface.DefaultConfig()

	if cfg.DeepFaceURL != "" {
		dfConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		dfConfig.Model = cfg.DeepFaceModel
	}
	if cfg.DeepFaceDetector != "" {
		dfConfig.Detector = cfg.DeepFaceDetector
	}
	if cfg.DeepFaceTimeout > 0 {
		dfConfig.Timeout = cfg.DeepFaceTimeout
	}
	if cfg.DeepFaceRetries > 0 {
		dfConfig.RetryCount = cfg.DeepFaceRetries
	}

	return deepface.NewProvider(dfConfig)
}
