package matching

import (
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// Weights is the linear scoring policy: score = Cosine*cos - Euclidean*dist
type Weights struct {
	Cosine    float64
	Euclidean float64
}

// DefaultWeights are the tuned weights of the ranking policy. Changing them
// changes every published score.
var DefaultWeights = Weights{Cosine: 1.2, Euclidean: 0.8}

// CosineSimilarity returns dot(a,b)/(|a|*|b|), or 0 when either vector has zero norm.
// Callers must pass vectors of equal length.
func CosineSimilarity(a, b domain.Embedding) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// EuclideanDistance returns the L2 norm of a-b.
// Callers must pass vectors of equal length.
func EuclideanDistance(a, b domain.Embedding) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Score computes the hybrid similarity of rep against every reference entry.
// The output keeps the table order; nothing is pruned.
func Score(rep domain.Embedding, entries []domain.ReferenceEntry, w Weights) ([]domain.ScoredCandidate, error) {
	if len(entries) == 0 {
		return nil, domain.ErrEmptyGallery
	}

	scored := make([]domain.ScoredCandidate, len(entries))
	for i, entry := range entries {
		if len(entry.Embedding) != len(rep) {
			return nil, domain.ErrShapeMismatch.WithError(
				fmt.Errorf("reference %q has %d components, want %d", entry.IdentityKey, len(entry.Embedding), len(rep)))
		}

		cos := CosineSimilarity(rep, entry.Embedding)
		dist := EuclideanDistance(rep, entry.Embedding)

		scored[i] = domain.ScoredCandidate{
			IdentityKey:       entry.IdentityKey,
			CosineSimilarity:  cos,
			EuclideanDistance: dist,
			SimilarityScore:   w.Cosine*cos - w.Euclidean*dist,
			Position:          i,
		}
	}

	return scored, nil
}
