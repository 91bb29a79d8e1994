package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "trailhead/backend/internal/domain/auth"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the identity gate: it coordinates login, session verification,
// password lifecycle, and role authorization between the identity store, the
// token manager, the password hasher, and the outbound notifier.
type Service struct {
	identities domain.IdentityRepository
	tokens     TokenManager
	hasher     PasswordHasher
	notifier   Notifier
	resetTTL   time.Duration
	log        *zap.SugaredLogger
	nowFunc    func() time.Time
}

// NewService constructs an identity gate service.
func NewService(identities domain.IdentityRepository, tokens TokenManager, hasher PasswordHasher, notifier Notifier, resetTTL time.Duration, log *zap.SugaredLogger) *Service {
	return &Service{
		identities: identities,
		tokens:     tokens,
		hasher:     hasher,
		notifier:   notifier,
		resetTTL:   resetTTL,
		log:        log,
		nowFunc:    time.Now,
	}
}

// Signup creates a new identity with the default member role and logs it in.
func (s *Service) Signup(ctx context.Context, email, password, name string) (string, *domain.Identity, error) {
	email = normalizeEmail(email)
	password = strings.TrimSpace(password)
	if email == "" {
		return "", nil, errors.New("email is required")
	}
	if password == "" {
		return "", nil, errors.New("password is required")
	}

	if _, err := s.identities.GetByEmail(ctx, email); err == nil {
		return "", nil, domain.ErrEmailExists
	} else if !errors.Is(err, domain.ErrIdentityNotFound) {
		return "", nil, s.storeFailure("signup", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return "", nil, err
	}

	now := s.nowFunc().UTC()
	identity := &domain.Identity{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		Role:         domain.RoleMember,
		PasswordHash: hash,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.identities.Create(ctx, identity); err != nil {
		if errors.Is(err, domain.ErrEmailExists) {
			return "", nil, err
		}
		return "", nil, s.storeFailure("signup", err)
	}

	token, err := s.tokens.Issue(identity.ID)
	if err != nil {
		return "", nil, err
	}
	return token, identity.Sanitize(), nil
}

// Login validates credentials and returns a session token plus the identity.
// A missing account and a wrong password produce the identical error.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (string, *domain.Identity, error) {
	email := normalizeEmail(creds.Email)
	password := strings.TrimSpace(creds.Password)
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, s.storeFailure("login", err)
	}

	if !s.hasher.Verify(password, identity.PasswordHash) {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(identity.ID)
	if err != nil {
		return "", nil, err
	}
	return token, identity.Sanitize(), nil
}

// VerifySession resolves a bearer token to a live identity.
//
// It fails with ErrUnauthenticated when the token is absent, unverifiable,
// when the subject no longer exists or was deactivated, or when the password
// changed after the token was issued.
func (s *Service) VerifySession(ctx context.Context, token string) (*domain.Identity, error) {
	if token == "" {
		return nil, domain.ErrUnauthenticated
	}

	session, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	identity, err := s.identities.GetByID(ctx, session.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, s.storeFailure("verify session", err)
	}

	if identity.ChangedPasswordAfter(session.IssuedAt) {
		return nil, domain.ErrUnauthenticated
	}

	return identity.Sanitize(), nil
}

// OptionalIdentify resolves a token to an identity when possible and returns
// nil otherwise. It never fails the request; it exists for personalization,
// not protection.
func (s *Service) OptionalIdentify(ctx context.Context, token string) *domain.Identity {
	identity, err := s.VerifySession(ctx, token)
	if err != nil {
		return nil
	}
	return identity
}

// Authorize checks the identity's role against the allowed set. Pure
// predicate, no I/O.
func Authorize(identity *domain.Identity, allowed ...domain.Role) error {
	if identity == nil {
		return domain.ErrUnauthenticated
	}
	for _, role := range allowed {
		if identity.Role == role {
			return nil
		}
	}
	return domain.ErrForbidden
}

// InitiatePasswordReset opens a ten-minute reset window for the account and
// mails a link carrying the one-time secret. If delivery fails the window is
// closed again before the error surfaces, so no live secret is left dangling
// for a user who never received it.
func (s *Service) InitiatePasswordReset(ctx context.Context, email, urlBase string) error {
	email = normalizeEmail(email)
	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return domain.ErrNoSuchAccount
		}
		return s.storeFailure("initiate reset", err)
	}

	secret, digest, err := newResetSecret()
	if err != nil {
		return err
	}

	expiresAt := s.nowFunc().UTC().Add(s.resetTTL)
	if err := s.identities.SetResetToken(ctx, identity.ID, digest, expiresAt); err != nil {
		return s.storeFailure("initiate reset", err)
	}

	url := fmt.Sprintf("%s/auth/reset-password/%s", strings.TrimRight(urlBase, "/"), secret)
	if err := s.notifier.SendPasswordResetLink(ctx, identity.Sanitize(), url); err != nil {
		s.log.Errorw("password reset mail failed", "identity", identity.ID, "err", err)
		if clearErr := s.identities.ClearResetToken(ctx, identity.ID); clearErr != nil {
			s.log.Errorw("reset rollback failed", "identity", identity.ID, "err", clearErr)
			return s.storeFailure("initiate reset", clearErr)
		}
		return domain.ErrNotificationFailed
	}

	return nil
}

// CompletePasswordReset consumes a reset secret and installs the new
// password, then logs the identity in. The stored digest and expiry clear
// atomically with the password update, so a secret can only be used once.
func (s *Service) CompletePasswordReset(ctx context.Context, secret, newPassword string) (string, *domain.Identity, error) {
	newPassword = strings.TrimSpace(newPassword)
	if secret == "" || newPassword == "" {
		return "", nil, domain.ErrResetTokenInvalid
	}

	now := s.nowFunc().UTC()
	digest := digestResetSecret(secret)
	identity, err := s.identities.GetByResetDigest(ctx, digest, now)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return "", nil, domain.ErrResetTokenInvalid
		}
		return "", nil, s.storeFailure("complete reset", err)
	}
	if !resetDigestsEqual(identity.ResetTokenDigest, digest) {
		return "", nil, domain.ErrResetTokenInvalid
	}
	if identity.ResetTokenExpiresAt == nil || now.After(*identity.ResetTokenExpiresAt) {
		return "", nil, domain.ErrResetTokenInvalid
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", nil, err
	}
	if err := s.identities.UpdatePassword(ctx, identity.ID, hash, now); err != nil {
		return "", nil, s.storeFailure("complete reset", err)
	}

	token, err := s.tokens.Issue(identity.ID)
	if err != nil {
		return "", nil, err
	}
	return token, identity.Sanitize(), nil
}

// ChangePassword replaces the password after re-verifying the current one and
// returns a fresh session token. Tokens issued before the change fail the
// freshness check in VerifySession from this point on.
func (s *Service) ChangePassword(ctx context.Context, identityID, currentPassword, newPassword string) (string, error) {
	newPassword = strings.TrimSpace(newPassword)
	if newPassword == "" {
		return "", errors.New("new password is required")
	}

	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, domain.ErrIdentityNotFound) {
			return "", domain.ErrUnauthenticated
		}
		return "", s.storeFailure("change password", err)
	}

	if !s.hasher.Verify(currentPassword, identity.PasswordHash) {
		return "", domain.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", err
	}
	if err := s.identities.UpdatePassword(ctx, identity.ID, hash, s.nowFunc().UTC()); err != nil {
		return "", s.storeFailure("change password", err)
	}

	return s.tokens.Issue(identity.ID)
}

// storeFailure logs the underlying store error and returns the opaque
// ErrStoreUnavailable so internals never reach user-facing output.
func (s *Service) storeFailure(op string, err error) error {
	s.log.Errorw("identity store failure", "op", op, "err", err)
	return domain.ErrStoreUnavailable
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
