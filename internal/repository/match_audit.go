package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

type MatchAuditRepository struct {
	pool PgxPool
}

func NewMatchAuditRepository(pool PgxPool) *MatchAuditRepository {
	return &MatchAuditRepository{pool: pool}
}

// Create inserts a new match audit record
func (r *MatchAuditRepository) Create(ctx context.Context, audit *domain.MatchAudit) error {
	query := `
		INSERT INTO match_audits (
			id, probe_count, valid_probe_count, results_count, top_match_identity_key,
			top_match_score, top_k, error_code, latency_ms, client_ip, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING created_at
	`

	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		audit.ID,
		audit.ProbeCount,
		audit.ValidProbeCount,
		audit.ResultsCount,
		audit.TopMatchIdentityKey,
		audit.TopMatchScore,
		audit.TopK,
		audit.ErrorCode,
		audit.LatencyMs,
		audit.ClientIP,
	).Scan(&audit.CreatedAt)

	if err != nil {
		return fmt.Errorf("create match audit: %w", err)
	}

	return nil
}
