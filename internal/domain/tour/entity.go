package tour

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a tour could not be located.
	ErrNotFound = errors.New("tour not found")
	// ErrDuplicateSlug signals slug uniqueness constraint breaches.
	ErrDuplicateSlug = errors.New("tour with slug already exists")
)

// Tour captures the state of an individual bookable tour.
type Tour struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Summary      string    `json:"summary"`
	Difficulty   string    `json:"difficulty"`
	DurationDays int       `json:"durationDays"`
	MaxGroupSize int       `json:"maxGroupSize"`
	Price        float64   `json:"price"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Update applies partial field updates to the tour.
func (t *Tour) Update(name, slug, summary, difficulty *string, durationDays, maxGroupSize *int, price *float64) {
	if name != nil {
		t.Name = *name
	}
	if slug != nil {
		t.Slug = *slug
	}
	if summary != nil {
		t.Summary = *summary
	}
	if difficulty != nil {
		t.Difficulty = *difficulty
	}
	if durationDays != nil {
		t.DurationDays = *durationDays
	}
	if maxGroupSize != nil {
		t.MaxGroupSize = *maxGroupSize
	}
	if price != nil {
		t.Price = *price
	}
	t.UpdatedAt = time.Now().UTC()
}
