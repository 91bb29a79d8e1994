package token

import (
	"errors"
	"time"

	usecase "trailhead/backend/internal/usecase/auth"

	"github.com/golang-jwt/jwt/v5"
)

// JWTManager issues and validates signed session tokens.
type JWTManager struct {
	secret   []byte
	lifetime time.Duration
	issuer   string
}

// NewJWTManager constructs a manager with the provided secret and lifetime.
func NewJWTManager(secret string, lifetime time.Duration, issuer string) *JWTManager {
	return &JWTManager{
		secret:   []byte(secret),
		lifetime: lifetime,
		issuer:   issuer,
	}
}

// Ensure JWTManager implements the TokenManager interface.
var _ usecase.TokenManager = (*JWTManager)(nil)

// Claims represents token claims. The subject identity id is the only
// application claim carried by a session token.
type Claims struct {
	SubjectID string `json:"uid"`
	jwt.RegisteredClaims
}

// Issue creates a signed JWT containing the subject identity id.
func (m *JWTManager) Issue(subjectID string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		SubjectID: subjectID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.lifetime)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify parses and validates the token, returning the recovered session.
// Signature mismatch, expiry, and malformed input all fail.
func (m *JWTManager) Verify(tokenString string) (usecase.Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return usecase.Session{}, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return usecase.Session{}, errors.New("invalid token claims")
	}
	if claims.IssuedAt == nil {
		return usecase.Session{}, errors.New("token missing issued-at claim")
	}
	return usecase.Session{
		SubjectID: claims.SubjectID,
		IssuedAt:  claims.IssuedAt.Time,
	}, nil
}

// Lifetime returns the configured token validity window.
func (m *JWTManager) Lifetime() time.Duration {
	return m.lifetime
}
