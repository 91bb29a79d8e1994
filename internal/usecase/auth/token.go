package auth

import "time"

// Session holds the claims recovered from a verified token.
type Session struct {
	SubjectID string
	IssuedAt  time.Time
}

// TokenManager abstracts session token issuance and verification.
//
// Verification is stateless: it needs only the signing secret and the clock,
// never a storage lookup.
type TokenManager interface {
	Issue(subjectID string) (string, error)
	Verify(token string) (Session, error)
	Lifetime() time.Duration
}
