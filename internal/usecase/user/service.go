package user

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "trailhead/backend/internal/domain/auth"
	authusecase "trailhead/backend/internal/usecase/auth"

	"github.com/google/uuid"
)

// Service provides identity management beyond the authentication core:
// self-service profile updates, account deactivation, and administrative
// account workflows.
type Service struct {
	repo    domain.IdentityRepository
	hasher  authusecase.PasswordHasher
	nowFunc func() time.Time
}

// NewService constructs a user service around the provided repository.
func NewService(repo domain.IdentityRepository, hasher authusecase.PasswordHasher) *Service {
	return &Service{
		repo:    repo,
		hasher:  hasher,
		nowFunc: time.Now,
	}
}

// Filter captures supported filters for listing identities.
type Filter struct {
	Role string
}

// CreateInput defines the payload to create a new identity administratively.
type CreateInput struct {
	Email    string
	Name     string
	Password string
	Role     string
}

// UpdateInput defines the payload to update an identity.
type UpdateInput struct {
	Email *string
	Name  *string
	Photo *string
	Role  *string
}

// ProfileInput carries the fields an identity may change about itself.
// Passwords are excluded; they move only through the identity gate.
type ProfileInput struct {
	Email *string
	Name  *string
	Photo *string
}

// List returns identities matching the supplied filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]*domain.Identity, error) {
	domainFilter := domain.IdentityFilter{}
	if trimmed := strings.TrimSpace(filter.Role); trimmed != "" {
		role, err := domain.ParseRole(trimmed)
		if err != nil {
			return nil, err
		}
		domainFilter.Role = role
	}

	identities, err := s.repo.List(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.Identity, 0, len(identities))
	for _, identity := range identities {
		out = append(out, identity.Sanitize())
	}
	return out, nil
}

// Get retrieves a single identity by its identifier.
func (s *Service) Get(ctx context.Context, id string) (*domain.Identity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("identity id is required")
	}
	identity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return identity.Sanitize(), nil
}

// Create persists a new identity with the provided details. Admin-only.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Identity, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	name := strings.TrimSpace(input.Name)
	pass := strings.TrimSpace(input.Password)
	if email == "" {
		return nil, errors.New("email is required")
	}
	if pass == "" {
		return nil, errors.New("password is required")
	}

	role := domain.RoleMember
	if trimmed := strings.TrimSpace(input.Role); trimmed != "" {
		parsed, err := domain.ParseRole(trimmed)
		if err != nil {
			return nil, err
		}
		role = parsed
	}

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrIdentityNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(pass)
	if err != nil {
		return nil, err
	}

	now := s.nowFunc().UTC()
	identity := &domain.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, identity); err != nil {
		return nil, err
	}
	return identity.Sanitize(), nil
}

// Update modifies the persisted identity. Admin-only; can reassign roles.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*domain.Identity, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("identity id is required")
	}

	identity, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*input.Email))
		if email == "" {
			return nil, errors.New("email is required")
		}
		if email != identity.Email {
			if existing, err := s.repo.GetByEmail(ctx, email); err == nil && existing.ID != identity.ID {
				return nil, domain.ErrEmailExists
			} else if err != nil && !errors.Is(err, domain.ErrIdentityNotFound) {
				return nil, err
			}
		}
		identity.Email = email
	}
	if input.Name != nil {
		identity.Name = strings.TrimSpace(*input.Name)
	}
	if input.Photo != nil {
		identity.Photo = strings.TrimSpace(*input.Photo)
	}
	if input.Role != nil {
		role, err := domain.ParseRole(strings.TrimSpace(*input.Role))
		if err != nil {
			return nil, err
		}
		identity.Role = role
	}

	identity.UpdatedAt = s.nowFunc().UTC()
	if err := s.repo.Update(ctx, identity); err != nil {
		return nil, err
	}
	return identity.Sanitize(), nil
}

// UpdateProfile applies self-service changes to the calling identity.
func (s *Service) UpdateProfile(ctx context.Context, id string, input ProfileInput) (*domain.Identity, error) {
	return s.Update(ctx, id, UpdateInput{
		Email: input.Email,
		Name:  input.Name,
		Photo: input.Photo,
	})
}

// Deactivate soft-deletes the identity. The record stays in storage but
// disappears from every lookup the identity gate performs.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("identity id is required")
	}
	return s.repo.Deactivate(ctx, id)
}
