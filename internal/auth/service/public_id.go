package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	publicIDMin   = 10000000
	publicIDRange = 90000000
)

// newPublicID draws a uniformly random 8-digit number.
func newPublicID() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(publicIDRange))
	if err != nil {
		return "", fmt.Errorf("generate public id: %w", err)
	}
	return fmt.Sprintf("%d", publicIDMin+n.Int64()), nil
}

// unusedPublicID returns a public id not yet assigned. Create can still race
// with another registration, so callers retry on user.ErrPublicIDTaken.
func (s *Service) unusedPublicID(ctx context.Context) (string, error) {
	for range maxPublicIDAttempts {
		candidate, err := newPublicID()
		if err != nil {
			return "", err
		}
		taken, err := s.users.ExistsByPublicID(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check public id: %w", err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no unused public id after %d attempts", maxPublicIDAttempts)
}
