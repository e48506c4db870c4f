// Package user persists accounts.
//
// Error contract for every backend:
//   - sentinel.ErrNotFound when the user does not exist
//   - ErrEmailTaken or ErrPublicIDTaken (both wrapping sentinel.ErrAlreadyUsed) on Create conflicts
//   - wrapped infrastructure errors otherwise
package user

import (
	"fmt"

	"fithub/internal/auth/models"
	"fithub/pkg/platform/sentinel"
)

var (
	ErrEmailTaken    = fmt.Errorf("email already registered: %w", sentinel.ErrAlreadyUsed)
	ErrPublicIDTaken = fmt.Errorf("public id already assigned: %w", sentinel.ErrAlreadyUsed)
)

func cloneUser(u *models.User) *models.User {
	c := *u
	if u.Profile.Age != nil {
		v := *u.Profile.Age
		c.Profile.Age = &v
	}
	if u.Profile.Height != nil {
		v := *u.Profile.Height
		c.Profile.Height = &v
	}
	if u.Profile.Weight != nil {
		v := *u.Profile.Weight
		c.Profile.Weight = &v
	}
	return &c
}
