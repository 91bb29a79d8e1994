package auth

import (
	"context"
	"time"
)

// IdentityRepository defines persistence operations for identities.
//
// GetByID, GetByEmail, and GetByResetDigest exclude deactivated identities;
// soft-deleted accounts are invisible to every authentication path.
type IdentityRepository interface {
	Create(ctx context.Context, identity *Identity) error
	GetByID(ctx context.Context, id string) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	// GetByResetDigest resolves an identity with a matching, unexpired reset
	// token digest.
	GetByResetDigest(ctx context.Context, digest string, now time.Time) (*Identity, error)
	List(ctx context.Context, filter IdentityFilter) ([]*Identity, error)
	Update(ctx context.Context, identity *Identity) error
	// UpdatePassword replaces the password hash, records the change time, and
	// clears any open reset window in a single statement.
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	// SetResetToken stores the reset digest and expiry as a pair.
	SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error
	// ClearResetToken removes the reset digest and expiry as a pair.
	ClearResetToken(ctx context.Context, id string) error
	// Deactivate soft-deletes an identity; it is never removed by this layer.
	Deactivate(ctx context.Context, id string) error
}

// IdentityFilter allows narrowing identity queries.
type IdentityFilter struct {
	Role Role
}
