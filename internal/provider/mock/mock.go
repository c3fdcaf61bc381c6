package mock

import (
	"context"
	"crypto/sha256"
	"math"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/provider"
)

// minImageSize is the size under which the mock pretends no face was found
const minImageSize = 1000

// Provider implementa provider.Embedder para testes e desenvolvimento
type Provider struct {
	dim int
}

// New cria um provider que gera embeddings de dimensão dim
func New(dim int) *Provider {
	return &Provider{dim: dim}
}

// Embed gera embedding determinístico baseado no hash da imagem
func (p *Provider) Embed(ctx context.Context, image []byte) (provider.ProbeResult, error) {
	if err := ctx.Err(); err != nil {
		return provider.ProbeResult{}, err
	}

	switch {
	case len(image) == 0:
		return provider.DecodeError("empty image"), nil
	case len(image) < minImageSize:
		return provider.NotFound("image too small to contain a face"), nil
	}

	return provider.Found(generateEmbedding(image, p.dim)), nil
}

// DetectFaces simula detecção de faces
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if len(image) == 0 {
		return nil, provider.ErrUndecodableImage
	}
	if len(image) < minImageSize {
		return []provider.DetectedFace{}, nil
	}

	return []provider.DetectedFace{
		{
			BoundingBox: provider.BoundingBox{
				X:      0.1,
				Y:      0.1,
				Width:  0.8,
				Height: 0.8,
			},
			Confidence: 0.99,
		},
	}, nil
}

// generateEmbedding gera embedding unitário a partir do sha256 da imagem
func generateEmbedding(image []byte, dim int) domain.Embedding {
	hash := sha256.Sum256(image)
	embedding := make(domain.Embedding, dim)
	hashLen := len(hash)

	for i := 0; i < dim; i++ {
		idx := i % hashLen
		//nolint:gosec // idx is always < hashLen due to modulo operation
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	norm := 0.0
	for _, v := range embedding {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return embedding
	}

	for i := range embedding {
		embedding[i] /= norm
	}

	return embedding
}

var (
	_ provider.Embedder = (*Provider)(nil)
	_ provider.Detector = (*Provider)(nil)
)
