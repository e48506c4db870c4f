package service

import (
	"context"
	"time"

	"fithub/internal/audit"
	"fithub/internal/auth/models"
	id "fithub/pkg/domain"
)

// UserStore defines the persistence interface for accounts.
// Error Contract: Find methods return sentinel.ErrNotFound; Create returns
// user.ErrEmailTaken or user.ErrPublicIDTaken on conflicts; Delete returns
// sentinel.ErrNotFound for an unknown user.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, userID id.UserID) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByPublicID(ctx context.Context, publicID string) (bool, error)
}

// SessionStore defines the persistence interface for login sessions.
// Error Contract: FindByID and End return sentinel.ErrNotFound; End returns
// session.ErrSessionEnded when the session was already closed.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*models.Session, error)
	End(ctx context.Context, sessionID id.SessionID, at time.Time) (*models.Session, error)
	CloseStale(ctx context.Context, cutoff time.Time, ttl time.Duration) (int, error)
}

// TokenGenerator issues access tokens and returns the token with its jti.
type TokenGenerator interface {
	GenerateAccessToken(ctx context.Context, userID id.UserID, sessionID id.SessionID) (string, string, error)
}

// PasswordHasher hashes and verifies passwords. Verify returns secrets.ErrMismatch on a wrong password.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) error
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}
