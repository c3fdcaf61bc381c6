package repository

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// ReferenceRepository stores the reference gallery in the reference_faces table
type ReferenceRepository struct {
	pool PgxPool
}

func NewReferenceRepository(pool PgxPool) *ReferenceRepository {
	return &ReferenceRepository{pool: pool}
}

// ListAll returns every reference entry in table order. Embeddings come from
// the float64 components column; rows written before it existed fall back to
// the float32 vector.
func (r *ReferenceRepository) ListAll(ctx context.Context) ([]domain.ReferenceEntry, error) {
	query := `
		SELECT identity_key, components, embedding, attributes
		FROM reference_faces
		ORDER BY position, identity_key
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list reference faces: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.ReferenceEntry, 0)
	for rows.Next() {
		var entry domain.ReferenceEntry
		var components []float64
		var embedding *pgvector.Vector

		if err := rows.Scan(&entry.IdentityKey, &components, &embedding, &entry.Attributes); err != nil {
			return nil, fmt.Errorf("scan reference face: %w", err)
		}
		if components != nil {
			entry.Embedding = domain.Embedding(components)
		} else {
			entry.Embedding = fromVector(embedding)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reference faces: %w", err)
	}

	return entries, nil
}

// Count returns the number of stored reference entries
func (r *ReferenceRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM reference_faces`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count reference faces: %w", err)
	}
	return count, nil
}

// Upsert writes the entries in one transaction, keyed by identity_key.
// Existing keys keep their position; new keys are appended after the current
// last position in slice order, so ListAll keeps the order of first import.
func (r *ReferenceRepository) Upsert(ctx context.Context, entries []domain.ReferenceEntry) (int, error) {
	return r.write(ctx, entries, false)
}

// ReplaceAll deletes the current gallery and writes entries in the same transaction
func (r *ReferenceRepository) ReplaceAll(ctx context.Context, entries []domain.ReferenceEntry) (int, error) {
	return r.write(ctx, entries, true)
}

func (r *ReferenceRepository) write(ctx context.Context, entries []domain.ReferenceEntry, replace bool) (int, error) {
	query := `
		INSERT INTO reference_faces (identity_key, position, components, embedding, attributes, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (identity_key) DO UPDATE
		SET components = EXCLUDED.components,
		    embedding = EXCLUDED.embedding,
		    attributes = EXCLUDED.attributes,
		    updated_at = NOW()
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin reference import: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	next := 0
	if replace {
		if _, err := tx.Exec(ctx, `DELETE FROM reference_faces`); err != nil {
			return 0, fmt.Errorf("clear reference faces: %w", err)
		}
	} else {
		err := tx.QueryRow(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM reference_faces`).Scan(&next)
		if err != nil {
			return 0, fmt.Errorf("read last reference position: %w", err)
		}
	}

	for i, entry := range entries {
		attrs := entry.Attributes
		if attrs == nil {
			attrs = map[string]string{}
		}
		_, err := tx.Exec(ctx, query,
			entry.IdentityKey,
			next+i,
			[]float64(entry.Embedding),
			toVector(entry.Embedding),
			attrs,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert reference face %q: %w", entry.IdentityKey, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit reference import: %w", err)
	}

	return len(entries), nil
}
