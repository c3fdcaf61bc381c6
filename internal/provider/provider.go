package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// ErrUndecodableImage is returned by detectors when the image bytes cannot be decoded
var ErrUndecodableImage = errors.New("image could not be decoded")

// ProbeStatus tags the outcome of normalizing and embedding one probe image
type ProbeStatus int

const (
	ProbeOK ProbeStatus = iota
	ProbeNotFound
	ProbeDecodeError
)

func (s ProbeStatus) String() string {
	switch s {
	case ProbeOK:
		return "ok"
	case ProbeNotFound:
		return "not_found"
	case ProbeDecodeError:
		return "decode_error"
	default:
		return fmt.Sprintf("ProbeStatus(%d)", int(s))
	}
}

// ProbeResult is the tagged result of embedding one probe image.
// Embedding is only set when Status is ProbeOK.
type ProbeResult struct {
	Status    ProbeStatus
	Embedding domain.Embedding
	Reason    string
}

func Found(embedding domain.Embedding) ProbeResult {
	return ProbeResult{Status: ProbeOK, Embedding: embedding}
}

func NotFound(reason string) ProbeResult {
	return ProbeResult{Status: ProbeNotFound, Reason: reason}
}

func DecodeError(reason string) ProbeResult {
	return ProbeResult{Status: ProbeDecodeError, Reason: reason}
}

// Embedder normalizes a probe image and extracts its embedding.
// Per-image failures (no face, corrupt image) are reported in the ProbeResult;
// the error return is reserved for infrastructure failures.
type Embedder interface {
	Embed(ctx context.Context, image []byte) (ProbeResult, error)
}

// Detector locates faces in an image
type Detector interface {
	DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error)
}

// DetectedFace represents a detected face in the image
type DetectedFace struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
}

// BoundingBox represents the face area in the image
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GatedEmbedder only embeds images in which the detector found a face
type GatedEmbedder struct {
	detector Detector
	embedder Embedder
}

func NewGatedEmbedder(detector Detector, embedder Embedder) *GatedEmbedder {
	return &GatedEmbedder{detector: detector, embedder: embedder}
}

func (g *GatedEmbedder) Embed(ctx context.Context, image []byte) (ProbeResult, error) {
	faces, err := g.detector.DetectFaces(ctx, image)
	if errors.Is(err, ErrUndecodableImage) {
		return DecodeError(err.Error()), nil
	}
	if err != nil {
		return ProbeResult{}, fmt.Errorf("gate probe: %w", err)
	}

	if len(faces) == 0 {
		return NotFound("detector found no face"), nil
	}

	return g.embedder.Embed(ctx, image)
}

var _ Embedder = (*GatedEmbedder)(nil)
