// Package session persists login sessions.
//
// Error contract for every backend:
//   - sentinel.ErrNotFound when the session does not exist
//   - ErrSessionEnded (wrapping sentinel.ErrInvalidState) when ending an ended session
//   - wrapped infrastructure errors otherwise
package session

import (
	"fmt"
	"time"

	"fithub/internal/auth/models"
	"fithub/pkg/platform/sentinel"
)

// ErrSessionEnded is returned when a session has already been closed.
var ErrSessionEnded = fmt.Errorf("session already ended: %w", sentinel.ErrInvalidState)

// DefaultListLimit caps ListByUser when the caller passes a non-positive limit.
const DefaultListLimit = 100

func clampLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}

// staleLogout is when a session abandoned past the token lifetime is considered closed.
func staleLogout(s *models.Session, ttl time.Duration) time.Time {
	return s.LoginTime.Add(ttl)
}

func cloneSession(s *models.Session) *models.Session {
	c := *s
	if s.LogoutTime != nil {
		t := *s.LogoutTime
		c.LogoutTime = &t
	}
	if s.DurationMinutes != nil {
		d := *s.DurationMinutes
		c.DurationMinutes = &d
	}
	return &c
}
