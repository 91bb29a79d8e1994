package auth

import (
	"errors"
	"time"
)

var (
	// ErrInvalidCredentials indicates a login failure. Lookup misses and
	// password mismatches surface identically so callers cannot probe for
	// registered emails.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthenticated means the request carries no usable session token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden means the identity's role does not permit the action.
	ErrForbidden = errors.New("forbidden")
	// ErrNoSuchAccount indicates no account exists for the given email.
	ErrNoSuchAccount = errors.New("no account with that email")
	// ErrResetTokenInvalid means a reset secret is unknown, consumed, or expired.
	ErrResetTokenInvalid = errors.New("reset token invalid or expired")
	// ErrNotificationFailed means the reset email could not be delivered.
	ErrNotificationFailed = errors.New("notification delivery failed")
	// ErrStoreUnavailable wraps unexpected persistence failures.
	ErrStoreUnavailable = errors.New("identity store unavailable")
	// ErrEmailExists signals a duplicate email registration.
	ErrEmailExists = errors.New("email already registered")
	// ErrIdentityNotFound indicates a missing identity.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrInvalidRole indicates the provided role is not supported.
	ErrInvalidRole = errors.New("invalid role")
)

// Role identifies the privileges assigned to an identity.
type Role string

const (
	// RoleMember represents a standard application user.
	RoleMember Role = "member"
	// RoleGuide represents a tour guide.
	RoleGuide Role = "guide"
	// RoleLeadGuide represents a lead guide with tour management rights.
	RoleLeadGuide Role = "leadGuide"
	// RoleAdmin represents an administrative user.
	RoleAdmin Role = "admin"
)

// ParseRole validates a raw role string against the closed role set.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleMember, RoleGuide, RoleLeadGuide, RoleAdmin:
		return Role(raw), nil
	default:
		return "", ErrInvalidRole
	}
}

// Identity models the authenticable principal persisted in storage.
//
// PasswordHash and the reset fields never leave the backend; Sanitize strips
// them before an Identity is handed to any transport layer.
type Identity struct {
	ID                  string
	Email               string
	Name                string
	Photo               string
	Role                Role
	PasswordHash        string
	PasswordChangedAt   *time.Time
	ResetTokenDigest    string
	ResetTokenExpiresAt *time.Time
	Active              bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ChangedPasswordAfter reports whether the password changed after the given
// token issue time. Comparison is in whole epoch seconds, matching the
// resolution of token issued-at claims.
func (i *Identity) ChangedPasswordAfter(issuedAt time.Time) bool {
	if i.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < i.PasswordChangedAt.Unix()
}

// Sanitize returns a copy safe for serialization: the password hash and the
// reset token fields are cleared.
func (i *Identity) Sanitize() *Identity {
	if i == nil {
		return nil
	}
	c := *i
	c.PasswordHash = ""
	c.ResetTokenDigest = ""
	c.ResetTokenExpiresAt = nil
	return &c
}

// Credentials captures raw credential input for login.
type Credentials struct {
	Email    string
	Password string
}
