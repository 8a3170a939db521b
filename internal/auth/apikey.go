package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcrypt work factor for HashAPIKey. Verification cost is embedded in the
// stored hash, so this only affects newly minted hashes.
const defaultCost = 12

// HashAPIKey hashes a plaintext API key for storage in configuration.
// Intended for a one-off setup step (e.g. a small helper or `htpasswd`-style
// invocation), not the request path.
func HashAPIKey(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		// bcrypt silently truncates beyond 72 bytes; reject instead.
		return "", errors.New("auth: API key must be 72 bytes or fewer")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), defaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing API key: %w", err)
	}
	return string(hashed), nil
}

// VerifyAPIKey checks a presented key against the configured bcrypt hash.
// bcrypt compares in constant time, so response timing leaks nothing.
func VerifyAPIKey(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return errors.New("auth: invalid API key")
		}
		return fmt.Errorf("auth: comparing API key hash: %w", err)
	}
	return nil
}
