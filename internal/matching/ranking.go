package matching

import (
	"sort"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// DefaultTopK is the number of matches returned when no limit is configured
const DefaultTopK = 10

// TopK returns the k best candidates ordered by similarity score, highest first.
// Equal scores keep their reference table order. The input slice is left untouched.
func TopK(candidates []domain.ScoredCandidate, k int) []domain.ScoredCandidate {
	if k <= 0 {
		k = DefaultTopK
	}

	ranked := make([]domain.ScoredCandidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].SimilarityScore > ranked[j].SimilarityScore
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}

	return ranked
}
