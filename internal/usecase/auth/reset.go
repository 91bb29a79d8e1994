package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// resetSecretBytes is the entropy of a reset secret: 32 bytes = 64 hex chars.
const resetSecretBytes = 32

// newResetSecret generates a one-time reset secret and its storable digest.
// The plaintext secret goes into the emailed link; only the digest persists.
func newResetSecret() (secret, digest string, err error) {
	buf := make([]byte, resetSecretBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generating reset secret: %w", err)
	}
	secret = hex.EncodeToString(buf)
	return secret, digestResetSecret(secret), nil
}

// digestResetSecret computes the SHA-256 digest of a presented secret.
func digestResetSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// resetDigestsEqual compares two hex digests in constant time.
func resetDigestsEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
