package postgres

import (
	"context"
	"errors"
	"time"

	domain "trailhead/backend/internal/domain/auth"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IdentityRepository persists identities in PostgreSQL.
//
// Every read used by the identity gate carries an `active` predicate:
// deactivated accounts are invisible to authentication whatever else is true
// about the token or reset secret presented.
type IdentityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository constructs a repository.
func NewIdentityRepository(pool *pgxpool.Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

// Ensure IdentityRepository implements the domain interface.
var _ domain.IdentityRepository = (*IdentityRepository)(nil)

const identityColumns = `
id, email, name, photo, role, password_hash, password_changed_at,
reset_token_digest, reset_token_expires_at, active, created_at, updated_at`

// Create inserts a new identity record.
func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	const query = `
INSERT INTO identities (id, email, name, photo, role, password_hash, active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`
	_, err := r.pool.Exec(ctx, query,
		identity.ID,
		identity.Email,
		identity.Name,
		identity.Photo,
		identity.Role,
		identity.PasswordHash,
		identity.Active,
		identity.CreatedAt,
		identity.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail fetches an active identity by email.
func (r *IdentityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	const query = `
SELECT ` + identityColumns + `
FROM identities WHERE email = $1 AND active
`
	return r.getOne(ctx, query, email)
}

// GetByID retrieves an active identity by id.
func (r *IdentityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	const query = `
SELECT ` + identityColumns + `
FROM identities WHERE id = $1 AND active
`
	return r.getOne(ctx, query, id)
}

// GetByResetDigest resolves an active identity holding the digest with an
// unexpired reset window.
func (r *IdentityRepository) GetByResetDigest(ctx context.Context, digest string, now time.Time) (*domain.Identity, error) {
	const query = `
SELECT ` + identityColumns + `
FROM identities
WHERE reset_token_digest = $1 AND reset_token_expires_at > $2 AND active
`
	return r.getOne(ctx, query, digest, now)
}

// List returns active identities filtered by the provided criteria.
func (r *IdentityRepository) List(ctx context.Context, filter domain.IdentityFilter) ([]*domain.Identity, error) {
	query := `
SELECT ` + identityColumns + `
FROM identities
WHERE active
`
	var args []any
	if filter.Role != "" {
		query += "AND role = $1 "
		args = append(args, filter.Role)
	}
	query += "ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var identities []*domain.Identity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return identities, nil
}

// Update modifies the mutable profile fields of an identity.
func (r *IdentityRepository) Update(ctx context.Context, identity *domain.Identity) error {
	const query = `
UPDATE identities
SET email = $2, name = $3, photo = $4, role = $5, updated_at = $6
WHERE id = $1 AND active
`
	ct, err := r.pool.Exec(ctx, query,
		identity.ID,
		identity.Email,
		identity.Name,
		identity.Photo,
		identity.Role,
		identity.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailExists
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

// UpdatePassword installs a new password hash, stamps the change time, and
// closes any open reset window in one statement.
func (r *IdentityRepository) UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error {
	const query = `
UPDATE identities
SET password_hash = $2,
    password_changed_at = $3,
    reset_token_digest = NULL,
    reset_token_expires_at = NULL,
    updated_at = $3
WHERE id = $1 AND active
`
	ct, err := r.pool.Exec(ctx, query, id, passwordHash, changedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

// SetResetToken stores the reset digest and expiry as a pair.
func (r *IdentityRepository) SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error {
	const query = `
UPDATE identities
SET reset_token_digest = $2, reset_token_expires_at = $3
WHERE id = $1 AND active
`
	ct, err := r.pool.Exec(ctx, query, id, digest, expiresAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

// ClearResetToken removes the reset digest and expiry as a pair.
func (r *IdentityRepository) ClearResetToken(ctx context.Context, id string) error {
	const query = `
UPDATE identities
SET reset_token_digest = NULL, reset_token_expires_at = NULL
WHERE id = $1
`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}

// Deactivate soft-deletes an identity.
func (r *IdentityRepository) Deactivate(ctx context.Context, id string) error {
	const query = `UPDATE identities SET active = FALSE WHERE id = $1 AND active`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrIdentityNotFound
	}
	return nil
}

func (r *IdentityRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Identity, error) {
	row := r.pool.QueryRow(ctx, query, args...)
	identity, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIdentityNotFound
		}
		return nil, err
	}
	return identity, nil
}

func scanIdentity(row pgx.Row) (*domain.Identity, error) {
	var (
		i           domain.Identity
		resetDigest *string
	)
	err := row.Scan(
		&i.ID,
		&i.Email,
		&i.Name,
		&i.Photo,
		&i.Role,
		&i.PasswordHash,
		&i.PasswordChangedAt,
		&resetDigest,
		&i.ResetTokenExpiresAt,
		&i.Active,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if resetDigest != nil {
		i.ResetTokenDigest = *resetDigest
	}
	return &i, nil
}
