package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

// latestResultSlot is the single row id of latest_results
const latestResultSlot = 1

// LatestResultRepository keeps the most recently saved result list
type LatestResultRepository struct {
	pool PgxPool
}

func NewLatestResultRepository(pool PgxPool) *LatestResultRepository {
	return &LatestResultRepository{pool: pool}
}

// Save replaces the stored result list
func (r *LatestResultRepository) Save(ctx context.Context, result *domain.LatestResult) error {
	query := `
		INSERT INTO latest_results (id, matches, saved_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE
		SET matches = EXCLUDED.matches,
		    saved_at = EXCLUDED.saved_at
		RETURNING saved_at
	`

	matches := result.Matches
	if matches == nil {
		matches = []domain.SavedMatch{}
	}
	payload, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("encode latest result: %w", err)
	}

	if err := r.pool.QueryRow(ctx, query, latestResultSlot, string(payload)).Scan(&result.SavedAt); err != nil {
		return fmt.Errorf("save latest result: %w", err)
	}

	return nil
}

// Get returns the stored result list or domain.ErrResultNotFound
func (r *LatestResultRepository) Get(ctx context.Context) (*domain.LatestResult, error) {
	query := `
		SELECT matches, saved_at
		FROM latest_results
		WHERE id = $1
	`

	var payload []byte
	var result domain.LatestResult

	err := r.pool.QueryRow(ctx, query, latestResultSlot).Scan(&payload, &result.SavedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrResultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get latest result: %w", err)
	}

	if err := json.Unmarshal(payload, &result.Matches); err != nil {
		return nil, fmt.Errorf("decode latest result: %w", err)
	}

	return &result, nil
}
