package tour

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "trailhead/backend/internal/domain/tour"

	"github.com/google/uuid"
)

// Service encapsulates tour use cases.
type Service struct {
	repo    domain.Repository
	nowFunc func() time.Time
}

// NewService constructs a tour service.
func NewService(repo domain.Repository) *Service {
	return &Service{
		repo:    repo,
		nowFunc: time.Now,
	}
}

// CreateInput contains the payload required for tour creation.
type CreateInput struct {
	Name         string  `json:"name"`
	Summary      string  `json:"summary"`
	Difficulty   string  `json:"difficulty"`
	DurationDays int     `json:"durationDays"`
	MaxGroupSize int     `json:"maxGroupSize"`
	Price        float64 `json:"price"`
}

// UpdateInput encapsulates partial tour updates.
type UpdateInput struct {
	Name         *string  `json:"name"`
	Summary      *string  `json:"summary"`
	Difficulty   *string  `json:"difficulty"`
	DurationDays *int     `json:"durationDays"`
	MaxGroupSize *int     `json:"maxGroupSize"`
	Price        *float64 `json:"price"`
}

// Create stores a new tour after validation. The slug derives from the name
// and must be unique.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Tour, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, errors.New("name is required")
	}
	if input.Price < 0 {
		return nil, errors.New("price cannot be negative")
	}
	difficulty, err := normalizeDifficulty(input.Difficulty)
	if err != nil {
		return nil, err
	}

	slug := Slugify(input.Name)
	if _, err := s.repo.GetBySlug(ctx, slug); err == nil {
		return nil, domain.ErrDuplicateSlug
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.nowFunc().UTC()
	t := &domain.Tour{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Slug:         slug,
		Summary:      strings.TrimSpace(input.Summary),
		Difficulty:   difficulty,
		DurationDays: input.DurationDays,
		MaxGroupSize: input.MaxGroupSize,
		Price:        input.Price,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// List retrieves all tours.
func (s *Service) List(ctx context.Context) ([]*domain.Tour, error) {
	return s.repo.List(ctx)
}

// Get fetches a tour by id.
func (s *Service) Get(ctx context.Context, id string) (*domain.Tour, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}
	return s.repo.GetByID(ctx, id)
}

// Update applies partial updates to a tour. Renaming reslugs the tour.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (*domain.Tour, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("id is required")
	}

	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var slug *string
	if input.Name != nil {
		newName := strings.TrimSpace(*input.Name)
		if newName == "" {
			return nil, errors.New("name cannot be empty")
		}
		newSlug := Slugify(newName)
		if newSlug != t.Slug {
			if _, err := s.repo.GetBySlug(ctx, newSlug); err == nil {
				return nil, domain.ErrDuplicateSlug
			} else if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
		}
		*input.Name = newName
		slug = &newSlug
	}
	if input.Difficulty != nil {
		difficulty, err := normalizeDifficulty(*input.Difficulty)
		if err != nil {
			return nil, err
		}
		*input.Difficulty = difficulty
	}
	if input.Price != nil && *input.Price < 0 {
		return nil, errors.New("price cannot be negative")
	}

	t.Update(input.Name, slug, input.Summary, input.Difficulty, input.DurationDays, input.MaxGroupSize, input.Price)

	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a tour.
func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("id is required")
	}
	return s.repo.Delete(ctx, id)
}

// Slugify lowercases the name and collapses runs of non-alphanumeric
// characters into single hyphens.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

func normalizeDifficulty(raw string) (string, error) {
	d := strings.TrimSpace(strings.ToLower(raw))
	switch d {
	case "":
		return "medium", nil
	case "easy", "medium", "difficult":
		return d, nil
	default:
		return "", errors.New("difficulty must be easy, medium, or difficult")
	}
}
