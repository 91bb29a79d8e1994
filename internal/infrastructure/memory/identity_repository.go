// Package memory provides map-backed repositories used by tests and local
// development runs without PostgreSQL.
package memory

import (
	"context"
	"sync"
	"time"

	domain "trailhead/backend/internal/domain/auth"
)

// IdentityRepository keeps identities in process memory. Safe for concurrent
// use; mutations on a single identity apply under one lock acquisition, so
// the digest/expiry pair never updates partially.
type IdentityRepository struct {
	mu         sync.RWMutex
	identities map[string]*domain.Identity
}

// Ensure IdentityRepository implements the domain interface.
var _ domain.IdentityRepository = (*IdentityRepository)(nil)

// NewIdentityRepository constructs an empty repository.
func NewIdentityRepository() *IdentityRepository {
	return &IdentityRepository{identities: make(map[string]*domain.Identity)}
}

// Create inserts a new identity record.
func (r *IdentityRepository) Create(_ context.Context, identity *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Email stays unique across deactivated rows too, matching the database
	// constraint.
	for _, existing := range r.identities {
		if existing.Email == identity.Email {
			return domain.ErrEmailExists
		}
	}
	c := *identity
	r.identities[identity.ID] = &c
	return nil
}

// GetByID retrieves an active identity by id.
func (r *IdentityRepository) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[id]
	if !ok || !identity.Active {
		return nil, domain.ErrIdentityNotFound
	}
	c := *identity
	return &c, nil
}

// GetByEmail fetches an active identity by email.
func (r *IdentityRepository) GetByEmail(_ context.Context, email string) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, identity := range r.identities {
		if identity.Email == email && identity.Active {
			c := *identity
			return &c, nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

// GetByResetDigest resolves an active identity with a matching, unexpired
// reset token digest.
func (r *IdentityRepository) GetByResetDigest(_ context.Context, digest string, now time.Time) (*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, identity := range r.identities {
		if !identity.Active || identity.ResetTokenDigest == "" {
			continue
		}
		if identity.ResetTokenDigest == digest &&
			identity.ResetTokenExpiresAt != nil &&
			identity.ResetTokenExpiresAt.After(now) {
			c := *identity
			return &c, nil
		}
	}
	return nil, domain.ErrIdentityNotFound
}

// List returns active identities filtered by the provided criteria.
func (r *IdentityRepository) List(_ context.Context, filter domain.IdentityFilter) ([]*domain.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Identity
	for _, identity := range r.identities {
		if !identity.Active {
			continue
		}
		if filter.Role != "" && identity.Role != filter.Role {
			continue
		}
		c := *identity
		out = append(out, &c)
	}
	return out, nil
}

// Update modifies the mutable profile fields of an identity.
func (r *IdentityRepository) Update(_ context.Context, identity *domain.Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.identities[identity.ID]
	if !ok || !existing.Active {
		return domain.ErrIdentityNotFound
	}
	existing.Email = identity.Email
	existing.Name = identity.Name
	existing.Photo = identity.Photo
	existing.Role = identity.Role
	existing.UpdatedAt = identity.UpdatedAt
	return nil
}

// UpdatePassword installs a new password hash, stamps the change time, and
// closes any open reset window.
func (r *IdentityRepository) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[id]
	if !ok || !identity.Active {
		return domain.ErrIdentityNotFound
	}
	identity.PasswordHash = passwordHash
	t := changedAt
	identity.PasswordChangedAt = &t
	identity.ResetTokenDigest = ""
	identity.ResetTokenExpiresAt = nil
	identity.UpdatedAt = changedAt
	return nil
}

// SetResetToken stores the reset digest and expiry as a pair.
func (r *IdentityRepository) SetResetToken(_ context.Context, id, digest string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[id]
	if !ok || !identity.Active {
		return domain.ErrIdentityNotFound
	}
	identity.ResetTokenDigest = digest
	t := expiresAt
	identity.ResetTokenExpiresAt = &t
	return nil
}

// ClearResetToken removes the reset digest and expiry as a pair.
func (r *IdentityRepository) ClearResetToken(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[id]
	if !ok {
		return nil
	}
	identity.ResetTokenDigest = ""
	identity.ResetTokenExpiresAt = nil
	return nil
}

// Deactivate soft-deletes an identity.
func (r *IdentityRepository) Deactivate(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	identity, ok := r.identities[id]
	if !ok || !identity.Active {
		return domain.ErrIdentityNotFound
	}
	identity.Active = false
	return nil
}
