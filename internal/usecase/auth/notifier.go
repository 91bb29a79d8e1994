package auth

import (
	"context"

	domain "trailhead/backend/internal/domain/auth"
)

// Notifier delivers out-of-band messages to an identity.
type Notifier interface {
	// SendPasswordResetLink mails the reset URL embedding the raw secret.
	// The secret exists nowhere else once this call returns.
	SendPasswordResetLink(ctx context.Context, identity *domain.Identity, url string) error
}
