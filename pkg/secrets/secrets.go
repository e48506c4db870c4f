// Package secrets hashes and verifies user passwords with bcrypt.
package secrets

import (
	"errors"

	"golang.org/x/crypto/bcrypt"

	dErrors "fithub/pkg/domain-errors"
)

// DefaultCost is the work factor used when none is configured.
const DefaultCost = 10

// maxPasswordBytes is bcrypt's input limit.
const maxPasswordBytes = 72

// ErrMismatch is returned by Verify when the password does not match the hash.
var ErrMismatch = errors.New("password does not match")

// Hasher hashes passwords at a fixed bcrypt cost. Each hash embeds its own salt.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher. Costs outside bcrypt's range fall back to DefaultCost.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash creates a salted bcrypt hash of the password.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", dErrors.NewField(dErrors.CodeValidation, "password", "password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.NewField(dErrors.CodeValidation, "password", "password is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash password")
	}
	return string(hashed), nil
}

// Verify checks a plaintext password against a stored hash.
// A mismatch returns ErrMismatch; anything else is a malformed hash.
// Passwords longer than bcrypt's limit never match, since no stored hash
// could have been made from one.
func (h *Hasher) Verify(password, hash string) error {
	if len(password) > maxPasswordBytes {
		return ErrMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not verify password")
	}
	return nil
}
