package tour

import "context"

// Repository defines persistence behaviours for tours.
type Repository interface {
	Create(ctx context.Context, tour *Tour) error
	GetByID(ctx context.Context, id string) (*Tour, error)
	GetBySlug(ctx context.Context, slug string) (*Tour, error)
	List(ctx context.Context) ([]*Tour, error)
	Update(ctx context.Context, tour *Tour) error
	Delete(ctx context.Context, id string) error
}
