package memory

import (
	"context"
	"sort"
	"sync"

	domain "trailhead/backend/internal/domain/tour"
)

// TourRepository keeps tours in process memory.
type TourRepository struct {
	mu    sync.RWMutex
	tours map[string]*domain.Tour
}

// Ensure TourRepository implements the domain interface.
var _ domain.Repository = (*TourRepository)(nil)

// NewTourRepository constructs an empty repository.
func NewTourRepository() *TourRepository {
	return &TourRepository{tours: make(map[string]*domain.Tour)}
}

// Create inserts a new tour.
func (r *TourRepository) Create(_ context.Context, tour *domain.Tour) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.tours {
		if existing.Slug == tour.Slug {
			return domain.ErrDuplicateSlug
		}
	}
	c := *tour
	r.tours[tour.ID] = &c
	return nil
}

// GetByID fetches a tour by id.
func (r *TourRepository) GetByID(_ context.Context, id string) (*domain.Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tour, ok := r.tours[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *tour
	return &c, nil
}

// GetBySlug fetches a tour using its slug.
func (r *TourRepository) GetBySlug(_ context.Context, slug string) (*domain.Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, tour := range r.tours {
		if tour.Slug == slug {
			c := *tour
			return &c, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns all tours, newest first.
func (r *TourRepository) List(_ context.Context) ([]*domain.Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Tour, 0, len(r.tours))
	for _, tour := range r.tours {
		c := *tour
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Update modifies an existing tour.
func (r *TourRepository) Update(_ context.Context, tour *domain.Tour) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tours[tour.ID]; !ok {
		return domain.ErrNotFound
	}
	c := *tour
	r.tours[tour.ID] = &c
	return nil
}

// Delete removes a tour by id.
func (r *TourRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tours[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.tours, id)
	return nil
}
