// Package auth provides the credential primitives used by the account
// service: bcrypt password hashing and signed bearer token issue/verify.
package auth

import "golang.org/x/crypto/bcrypt"

// PasswordHasher produces and verifies salted one-way password hashes.
// The salt is embedded in the hash, so two hashes of the same plaintext
// differ and comparison must go through Verify.
type PasswordHasher struct {
	cost int
}

func NewPasswordHasher() *PasswordHasher {
	return &PasswordHasher{cost: bcrypt.DefaultCost}
}

// Hash returns a salted hash of the plaintext password.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored hash.
// bcrypt's comparison is constant time.
func (h *PasswordHasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
