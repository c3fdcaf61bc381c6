package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

const pgUniqueViolation = "23505"

// isUniqueViolation checks if the error is a unique constraint violation
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, pgUniqueViolation) ||
		strings.Contains(errMsg, "duplicate key")
}

// toVector narrows an embedding to the float32 storage type of pgvector.
// Exact values are kept in the components column.
func toVector(e domain.Embedding) pgvector.Vector {
	floats := make([]float32, len(e))
	for i, v := range e {
		floats[i] = float32(v)
	}
	return pgvector.NewVector(floats)
}

// fromVector reads rows that predate the components column
func fromVector(v *pgvector.Vector) domain.Embedding {
	if v == nil || v.Slice() == nil {
		return nil
	}
	out := make(domain.Embedding, len(v.Slice()))
	for i, f := range v.Slice() {
		out[i] = float64(f)
	}
	return out
}
