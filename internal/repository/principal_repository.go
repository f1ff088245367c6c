package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/storefront-live/internal/domain"
	apperrors "github.com/spec-kit/storefront-live/pkg/util"
)

// PrincipalRepository is the credential store adapter: lookups by id or email.
// Missing principals are reported as util.ErrNotFound.
type PrincipalRepository interface {
	Create(ctx context.Context, principal *domain.Principal) error
	GetByID(ctx context.Context, id string) (*domain.Principal, error)
	GetByEmail(ctx context.Context, email string) (*domain.Principal, error)
}

type principalRepository struct {
	pool *pgxpool.Pool
}

// NewPrincipalRepository returns a Postgres-backed implementation.
func NewPrincipalRepository(pool *pgxpool.Pool) PrincipalRepository {
	return &principalRepository{pool: pool}
}

const principalColumns = `id, email, display_name, role, banned, password_hash, created_at, updated_at`

func (r *principalRepository) Create(ctx context.Context, principal *domain.Principal) error {
	const query = `
        INSERT INTO principals (email, display_name, role, banned, password_hash)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		normalizeEmail(principal.Email),
		principal.DisplayName,
		principal.Role,
		principal.Banned,
		principal.PasswordHash,
	).Scan(&principal.ID, &principal.CreatedAt, &principal.UpdatedAt)
}

func (r *principalRepository) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	// Cookie values are untrusted; anything that is not a UUID cannot match a row.
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.ErrNotFound
	}
	query := `SELECT ` + principalColumns + ` FROM principals WHERE id=$1`
	return scanPrincipal(r.pool.QueryRow(ctx, query, id))
}

func (r *principalRepository) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	query := `SELECT ` + principalColumns + ` FROM principals WHERE email=$1`
	return scanPrincipal(r.pool.QueryRow(ctx, query, normalizeEmail(email)))
}

func scanPrincipal(row pgx.Row) (*domain.Principal, error) {
	var principal domain.Principal
	if err := row.Scan(
		&principal.ID,
		&principal.Email,
		&principal.DisplayName,
		&principal.Role,
		&principal.Banned,
		&principal.PasswordHash,
		&principal.CreatedAt,
		&principal.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &principal, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
