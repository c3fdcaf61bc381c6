package matching

import (
	"fmt"
	"sort"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// Fuse reduces the probe embeddings of one subject into a single representative
// vector by taking the median of every dimension. With an even number of probes
// the two middle values are averaged. A single probe is returned as a copy.
func Fuse(probes []domain.Embedding, dim int) (domain.Embedding, error) {
	if len(probes) == 0 {
		return nil, domain.ErrShapeMismatch.WithError(fmt.Errorf("fuse: empty probe set"))
	}

	for i, p := range probes {
		if len(p) != dim {
			return nil, domain.ErrShapeMismatch.WithError(
				fmt.Errorf("fuse: probe %d has %d components, want %d", i, len(p), dim))
		}
	}

	fused := make(domain.Embedding, dim)
	column := make([]float64, len(probes))
	mid := len(probes) / 2

	for d := 0; d < dim; d++ {
		for i, p := range probes {
			column[i] = p[d]
		}
		sort.Float64s(column)

		if len(column)%2 == 1 {
			fused[d] = column[mid]
		} else {
			fused[d] = (column[mid-1] + column[mid]) / 2
		}
	}

	return fused, nil
}
