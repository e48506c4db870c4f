package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"fithub/internal/auth/models"
	id "fithub/pkg/domain"
)

// TestIDs are fixed identifiers for deterministic test data.
var TestIDs = struct {
	UserID1    id.UserID
	UserID2    id.UserID
	SessionID1 id.SessionID
	SessionID2 id.SessionID
}{
	UserID1:    id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	UserID2:    id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	SessionID1: id.SessionID(uuid.MustParse("eeee0000-0000-0000-0000-000000000001")),
	SessionID2: id.SessionID(uuid.MustParse("eeee0000-0000-0000-0000-000000000002")),
}

var publicIDSeq atomic.Int64

// UserBuilder provides a fluent interface for building test users.
type UserBuilder struct {
	user *models.User
}

// NewUserBuilder returns a builder with a unique email and public id.
func NewUserBuilder() *UserBuilder {
	n := publicIDSeq.Add(1)
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &UserBuilder{user: &models.User{
		ID:           id.NewUserID(),
		PublicID:     fmt.Sprintf("%08d", 10000000+n),
		Name:         "Test User",
		Email:        fmt.Sprintf("user%d@example.com", n),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuuJ0ZpYQeQ5V8H1d4R2n2yZ4b6c8e0g2i",
		CreatedAt:    now,
		UpdatedAt:    now,
	}}
}

func (b *UserBuilder) WithID(userID id.UserID) *UserBuilder {
	b.user.ID = userID
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.user.Email = email
	return b
}

func (b *UserBuilder) WithPublicID(publicID string) *UserBuilder {
	b.user.PublicID = publicID
	return b
}

func (b *UserBuilder) WithName(name string) *UserBuilder {
	b.user.Name = name
	return b
}

func (b *UserBuilder) WithPasswordHash(hash string) *UserBuilder {
	b.user.PasswordHash = hash
	return b
}

func (b *UserBuilder) WithProfile(p models.Profile) *UserBuilder {
	b.user.Profile = p
	return b
}

func (b *UserBuilder) Build() *models.User {
	u := *b.user
	return &u
}

// SessionBuilder provides a fluent interface for building test sessions.
type SessionBuilder struct {
	session *models.Session
}

// NewSessionBuilder returns an open session that started a minute ago.
func NewSessionBuilder() *SessionBuilder {
	login := time.Now().UTC().Add(-time.Minute).Truncate(time.Microsecond)
	return &SessionBuilder{session: models.NewSession(id.NewUserID(), login, "Chrome on macOS", "203.0.113.10")}
}

func (b *SessionBuilder) WithID(sessionID id.SessionID) *SessionBuilder {
	b.session.ID = sessionID
	return b
}

func (b *SessionBuilder) WithUserID(userID id.UserID) *SessionBuilder {
	b.session.UserID = userID
	return b
}

func (b *SessionBuilder) LoggedInAt(t time.Time) *SessionBuilder {
	b.session.LoginTime = t
	b.session.CreatedAt = t
	b.session.UpdatedAt = t
	return b
}

func (b *SessionBuilder) WithDevice(device string) *SessionBuilder {
	b.session.DeviceInfo = device
	return b
}

func (b *SessionBuilder) WithIP(ip string) *SessionBuilder {
	b.session.IPAddress = ip
	return b
}

// EndedAt closes the session at t.
func (b *SessionBuilder) EndedAt(t time.Time) *SessionBuilder {
	b.session.End(t)
	return b
}

func (b *SessionBuilder) Build() *models.Session {
	s := *b.session
	return &s
}
