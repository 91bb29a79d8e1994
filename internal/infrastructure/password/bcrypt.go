package password

import (
	"runtime"

	usecase "trailhead/backend/internal/usecase/auth"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost factor used in production.
const DefaultCost = 12

// BcryptHasher hashes credentials with bcrypt. A slot gate caps the number of
// concurrent hash computations so a login burst cannot occupy every scheduler
// thread with CPU-bound bcrypt work.
type BcryptHasher struct {
	cost  int
	slots chan struct{}
}

// Ensure BcryptHasher implements the PasswordHasher interface.
var _ usecase.PasswordHasher = (*BcryptHasher)(nil)

// NewBcryptHasher constructs a hasher with the given cost factor. Costs
// outside the supported bcrypt range fall back to DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &BcryptHasher{
		cost:  cost,
		slots: make(chan struct{}, runtime.GOMAXPROCS(0)),
	}
}

// Hash produces a salted bcrypt digest of the plaintext.
func (h *BcryptHasher) Hash(plaintext string) (string, error) {
	h.slots <- struct{}{}
	defer func() { <-h.slots }()

	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether the plaintext matches the digest. Any mismatch or
// malformed digest yields false, never an error.
func (h *BcryptHasher) Verify(plaintext, digest string) bool {
	h.slots <- struct{}{}
	defer func() { <-h.slots }()

	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
