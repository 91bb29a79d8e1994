package auth

// PasswordHasher abstracts one-way credential hashing.
//
// Hash must be adaptive and salted; Verify reports false (not an error) on
// any mismatch or malformed digest.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}
