package deepface

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/provider"
)

// Provider implements provider.Embedder using the DeepFace API.
// DeepFace detects, aligns and crops the face before representing it.
type Provider struct {
	client *Client
}

// NewProvider creates a new DeepFace provider
func NewProvider(config Config) *Provider {
	return &Provider{
		client: NewClient(config),
	}
}

// Config returns the client configuration in use
func (p *Provider) Config() Config {
	return p.client.config
}

// Embed extracts the embedding of the first face found in the image
func (p *Provider) Embed(ctx context.Context, image []byte) (provider.ProbeResult, error) {
	if len(image) == 0 {
		return provider.DecodeError("empty image"), nil
	}

	imageBase64 := base64.StdEncoding.EncodeToString(image)

	resp, err := p.client.Represent(ctx, imageBase64)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.IsClientError() {
			if statusErr.IsNoFace() {
				return provider.NotFound(statusErr.Body), nil
			}
			return provider.DecodeError(statusErr.Body), nil
		}
		return provider.ProbeResult{}, fmt.Errorf("embed probe: %w", err)
	}

	if len(resp.Results) == 0 || len(resp.Results[0].Embedding) == 0 {
		return provider.NotFound("no face data in deepface response"), nil
	}

	// Use first face found
	return provider.Found(domain.Embedding(resp.Results[0].Embedding)), nil
}

// Ensure Provider implements provider.Embedder
var _ provider.Embedder = (*Provider)(nil)
