package gallery

import (
	"context"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// ReferenceLister is implemented by repository.ReferenceRepository
type ReferenceLister interface {
	ListAll(ctx context.Context) ([]domain.ReferenceEntry, error)
}

// PostgresSource loads the gallery from the reference_faces table
type PostgresSource struct {
	Repo ReferenceLister
}

func (s PostgresSource) Load(ctx context.Context) ([]domain.ReferenceEntry, error) {
	return s.Repo.ListAll(ctx)
}
