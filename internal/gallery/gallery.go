// Package gallery holds the reference snapshot a pipeline run scores against.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// Gallery is an immutable snapshot of the reference table
type Gallery struct {
	entries []domain.ReferenceEntry
	dim     int
}

// New validates entries against dim and wraps them in a snapshot.
// An empty gallery is valid here; runs against it fail with domain.ErrEmptyGallery.
func New(entries []domain.ReferenceEntry, dim int) (*Gallery, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("gallery dimension must be positive, got %d", dim)
	}

	for i, e := range entries {
		if len(e.Embedding) != dim {
			return nil, domain.ErrShapeMismatch.WithError(
				fmt.Errorf("reference %q (row %d) has %d dimensions, expected %d", e.IdentityKey, i+1, len(e.Embedding), dim))
		}
		for j, v := range e.Embedding {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, domain.ErrGalleryUnreadable.WithError(
					fmt.Errorf("reference %q has a non-finite value at v%d", e.IdentityKey, j+1))
			}
		}
	}

	snapshot := make([]domain.ReferenceEntry, len(entries))
	copy(snapshot, entries)

	return &Gallery{entries: snapshot, dim: dim}, nil
}

// Entries returns the entries in table order. Callers must not modify them.
func (g *Gallery) Entries() []domain.ReferenceEntry {
	return g.entries
}

func (g *Gallery) Len() int {
	return len(g.entries)
}

func (g *Gallery) Dimension() int {
	return g.dim
}

// Source reads reference entries from a backing store
type Source interface {
	Load(ctx context.Context) ([]domain.ReferenceEntry, error)
}

// Load reads src and builds a snapshot. Errors that are not already
// AppErrors are reported as domain.ErrGalleryUnreadable.
func Load(ctx context.Context, src Source, dim int) (*Gallery, error) {
	entries, err := src.Load(ctx)
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, domain.ErrGalleryUnreadable.WithError(err)
	}
	return New(entries, dim)
}
