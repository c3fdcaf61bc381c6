package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/lookalike/internal/domain"
)

const memberColumns = `id, name, group_name, age, image_url, image_names, goods_links, profile_url, created_at`

// MemberRepository reads the profile directory from the members table.
// Lookups that match several rows return the oldest one (created_at, then id).
type MemberRepository struct {
	pool PgxPool
}

func NewMemberRepository(pool PgxPool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

// FindByImageName returns the member whose image_names contains imageName
func (r *MemberRepository) FindByImageName(ctx context.Context, imageName string) (*domain.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE $1 = ANY(image_names)
		ORDER BY created_at, id
		LIMIT 1
	`

	member, err := scanMember(r.pool.QueryRow(ctx, query, imageName))
	if err != nil {
		return nil, fmt.Errorf("find member by image name: %w", err)
	}
	return member, nil
}

// FindByName returns the member with the given display name
func (r *MemberRepository) FindByName(ctx context.Context, name string) (*domain.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM members
		WHERE name = $1
		ORDER BY created_at, id
		LIMIT 1
	`

	member, err := scanMember(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		return nil, fmt.Errorf("find member by name: %w", err)
	}
	return member, nil
}

// rowQuerier is satisfied by both the pool and a transaction
type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Create inserts a member row
func (r *MemberRepository) Create(ctx context.Context, m *domain.Member) error {
	return insertMember(ctx, r.pool, m)
}

// Upsert updates the member lookups would return for m.Name, or inserts m
// when no member has that name. It reports whether a row was created.
// m.ID and m.CreatedAt are set from the stored row.
func (r *MemberRepository) Upsert(ctx context.Context, m *domain.Member) (bool, error) {
	query := `
		UPDATE members
		SET group_name = $2,
		    age = $3,
		    image_url = $4,
		    image_names = $5,
		    goods_links = $6,
		    profile_url = $7
		WHERE id = (
			SELECT id FROM members
			WHERE name = $1
			ORDER BY created_at, id
			LIMIT 1
		)
		RETURNING id, created_at
	`

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin member upsert: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	created := false
	err = tx.QueryRow(ctx, query,
		m.Name,
		m.Group,
		m.Age,
		m.ImageURL,
		imageNamesOf(m),
		nullableJSON(m.GoodsLinks),
		m.ProfileURL,
	).Scan(&m.ID, &m.CreatedAt)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if err := insertMember(ctx, tx, m); err != nil {
			return false, err
		}
		created = true
	case err != nil:
		return false, fmt.Errorf("update member %q: %w", m.Name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit member upsert: %w", err)
	}
	return created, nil
}

func insertMember(ctx context.Context, q rowQuerier, m *domain.Member) error {
	query := `
		INSERT INTO members (id, name, group_name, age, image_url, image_names, goods_links, profile_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING created_at
	`

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	err := q.QueryRow(ctx, query,
		m.ID,
		m.Name,
		m.Group,
		m.Age,
		m.ImageURL,
		imageNamesOf(m),
		nullableJSON(m.GoodsLinks),
		m.ProfileURL,
	).Scan(&m.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create member %q: %w", m.Name, domain.ErrValidationFailed.WithError(err))
		}
		return fmt.Errorf("create member: %w", err)
	}

	return nil
}

func imageNamesOf(m *domain.Member) []string {
	if m.ImageNames == nil {
		return []string{}
	}
	return m.ImageNames
}

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m domain.Member
	var goodsLinks []byte

	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Group,
		&m.Age,
		&m.ImageURL,
		&m.ImageNames,
		&goodsLinks,
		&m.ProfileURL,
		&m.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if len(goodsLinks) > 0 {
		m.GoodsLinks = goodsLinks
	}

	return &m, nil
}

// nullableJSON maps an empty document to SQL NULL
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
