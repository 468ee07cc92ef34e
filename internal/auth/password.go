// Password hashing. bcrypt everywhere a password touches disk: account
// passwords and site password-protection alike. bcrypt salts automatically
// and embeds the salt in the output, so a single TEXT column suffices.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor. Cost 12 takes roughly 250ms on a
// modern server — unnoticeable at login, expensive for brute force.
const defaultCost = 12

// Password length bounds. bcrypt silently truncates input beyond 72 bytes,
// so we reject longer passwords instead of hashing a prefix.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
)

// PasswordService hashes and verifies passwords.
// The cost is a field so tests can drop it to bcrypt.MinCost and stay fast.
type PasswordService struct {
	cost int
}

func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceWithCost exists for tests; production code uses
// NewPasswordService.
func NewPasswordServiceWithCost(cost int) *PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = defaultCost
	}
	return &PasswordService{cost: cost}
}

// Hash returns the bcrypt hash of password.
func (s *PasswordService) Hash(password string) (string, error) {
	if len(password) > MaxPasswordLength {
		return "", fmt.Errorf("auth: password exceeds %d bytes", MaxPasswordLength)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether password matches hash. A mismatch is (false, nil) —
// it's an expected outcome, not an error. Errors mean the hash itself is
// malformed.
func (s *PasswordService) Verify(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("auth: verifying password: %w", err)
}
