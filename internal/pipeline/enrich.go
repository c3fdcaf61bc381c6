package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
	"github.com/saturnino-fabrica-de-software/lookalike/internal/profile"
)

// Enricher attaches profile metadata to ranked candidates
type Enricher struct {
	directory profile.Directory
	workers   int
	logger    *slog.Logger
}

func NewEnricher(directory profile.Directory, workers int, logger *slog.Logger) *Enricher {
	if workers <= 0 {
		workers = 1
	}
	return &Enricher{directory: directory, workers: workers, logger: logger}
}

// Enrich looks up every candidate and returns one record per candidate in the
// same order. Misses and lookup failures leave the four profile fields null.
func (e *Enricher) Enrich(ctx context.Context, ranked []domain.ScoredCandidate) []domain.RankedMatch {
	out := make([]domain.RankedMatch, len(ranked))

	var g errgroup.Group
	g.SetLimit(e.workers)

	for i, cand := range ranked {
		g.Go(func() error {
			out[i] = domain.RankedMatch{ScoredCandidate: cand}

			info, err := e.directory.Lookup(ctx, cand.IdentityKey)
			if err != nil {
				e.logger.Warn("profile lookup failed",
					slog.String("identity_key", cand.IdentityKey),
					slog.Any("error", err),
				)
				return nil
			}
			if info != nil {
				out[i].ProfileInfo = *info
			}
			return nil
		})
	}
	_ = g.Wait()

	return out
}
