package rekognition

import (
	"context"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"
	"github.com/aws/smithy-go"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/provider"
)

const (
	errCodeAccessDenied       = "AccessDeniedException"
	errCodeInvalidParameter   = "InvalidParameterException"
	errCodeInvalidImageFormat = "InvalidImageFormatException"
	errCodeImageTooLarge      = "ImageTooLargeException"

	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
)

// API is the subset of the Rekognition client used by the detector
type API interface {
	DetectFaces(ctx context.Context, params *rekognition.DetectFacesInput, optFns ...func(*rekognition.Options)) (*rekognition.DetectFacesOutput, error)
}

// Detector implements provider.Detector using AWS Rekognition DetectFaces.
// It only answers "is there a face"; embeddings still come from the embedder.
type Detector struct {
	api    API
	config Config
}

var _ provider.Detector = (*Detector)(nil)

// NewDetector creates a detector using the AWS default credential chain
func NewDetector(ctx context.Context, cfg Config) (*Detector, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewDetectorWithAPI(rekognition.NewFromConfig(awsCfg), cfg), nil
}

// NewDetectorWithAPI creates a detector over an existing client (used in tests)
func NewDetectorWithAPI(api API, cfg Config) *Detector {
	return &Detector{api: api, config: cfg}
}

// DetectFaces returns the faces found in the image.
// An empty slice means no face, undecodable images return provider.ErrUndecodableImage.
func (d *Detector) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if len(image) == 0 {
		return nil, provider.ErrUndecodableImage
	}
	if len(image) > maxImageSize {
		return nil, fmt.Errorf("%w: %w (%d bytes, maximum %d)", provider.ErrUndecodableImage, ErrImageTooLarge, len(image), maxImageSize)
	}

	output, err := d.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: image},
		Attributes: []types.Attribute{types.AttributeDefault},
	})
	if err != nil {
		return nil, parseDetectError(err)
	}

	faces := make([]provider.DetectedFace, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil || detail.Confidence == nil {
			continue
		}
		if float64(*detail.Confidence) < d.config.MinConfidence {
			continue
		}
		faces = append(faces, provider.DetectedFace{
			BoundingBox: provider.BoundingBox{
				X:      float64(deref(detail.BoundingBox.Left)),
				Y:      float64(deref(detail.BoundingBox.Top)),
				Width:  float64(deref(detail.BoundingBox.Width)),
				Height: float64(deref(detail.BoundingBox.Height)),
			},
			Confidence: float64(*detail.Confidence),
		})
	}

	return faces, nil
}

func parseDetectError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case errCodeInvalidImageFormat, errCodeInvalidParameter:
			return fmt.Errorf("%w: %s", provider.ErrUndecodableImage, apiErr.ErrorMessage())
		case errCodeImageTooLarge:
			return fmt.Errorf("%w: %w", provider.ErrUndecodableImage, ErrImageTooLarge)
		case errCodeAccessDenied:
			return fmt.Errorf("detect faces: %w", ErrInvalidCredentials)
		}
	}
	return fmt.Errorf("detect faces: %w", err)
}

func deref(v *float32) float32 {
	if v == nil {
		return 0
	}
	return *v
}
