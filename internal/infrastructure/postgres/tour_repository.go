package postgres

import (
	"context"
	"errors"

	domain "trailhead/backend/internal/domain/tour"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TourRepository persists tours in PostgreSQL.
type TourRepository struct {
	pool *pgxpool.Pool
}

// NewTourRepository constructs a repository.
func NewTourRepository(pool *pgxpool.Pool) *TourRepository {
	return &TourRepository{pool: pool}
}

// Ensure TourRepository implements the domain interface.
var _ domain.Repository = (*TourRepository)(nil)

// Create inserts a new tour.
func (r *TourRepository) Create(ctx context.Context, tour *domain.Tour) error {
	const query = `
INSERT INTO tours (id, name, slug, summary, difficulty, duration_days, max_group_size, price, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`
	_, err := r.pool.Exec(ctx, query,
		tour.ID,
		tour.Name,
		tour.Slug,
		tour.Summary,
		tour.Difficulty,
		tour.DurationDays,
		tour.MaxGroupSize,
		tour.Price,
		tour.CreatedAt,
		tour.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSlug
		}
		return err
	}
	return nil
}

// GetByID fetches a tour by id.
func (r *TourRepository) GetByID(ctx context.Context, id string) (*domain.Tour, error) {
	const query = `
SELECT id, name, slug, summary, difficulty, duration_days, max_group_size, price, created_at, updated_at
FROM tours WHERE id = $1
`
	row := r.pool.QueryRow(ctx, query, id)
	tour, err := scanTour(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return tour, nil
}

// GetBySlug fetches a tour using its slug.
func (r *TourRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tour, error) {
	const query = `
SELECT id, name, slug, summary, difficulty, duration_days, max_group_size, price, created_at, updated_at
FROM tours WHERE slug = $1
`
	row := r.pool.QueryRow(ctx, query, slug)
	tour, err := scanTour(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return tour, nil
}

// List returns all tours, newest first.
func (r *TourRepository) List(ctx context.Context) ([]*domain.Tour, error) {
	const query = `
SELECT id, name, slug, summary, difficulty, duration_days, max_group_size, price, created_at, updated_at
FROM tours ORDER BY created_at DESC
`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tours []*domain.Tour
	for rows.Next() {
		t, err := scanTour(rows)
		if err != nil {
			return nil, err
		}
		tours = append(tours, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tours, nil
}

// Update modifies an existing tour.
func (r *TourRepository) Update(ctx context.Context, tour *domain.Tour) error {
	const query = `
UPDATE tours
SET name = $2, slug = $3, summary = $4, difficulty = $5, duration_days = $6, max_group_size = $7, price = $8, updated_at = $9
WHERE id = $1
`
	ct, err := r.pool.Exec(ctx, query,
		tour.ID,
		tour.Name,
		tour.Slug,
		tour.Summary,
		tour.Difficulty,
		tour.DurationDays,
		tour.MaxGroupSize,
		tour.Price,
		tour.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateSlug
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a tour by id.
func (r *TourRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM tours WHERE id = $1`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanTour(row pgx.Row) (*domain.Tour, error) {
	var t domain.Tour
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&t.Summary,
		&t.Difficulty,
		&t.DurationDays,
		&t.MaxGroupSize,
		&t.Price,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
