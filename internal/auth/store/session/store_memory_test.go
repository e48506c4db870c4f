package session

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fithub/internal/auth/models"
	id "fithub/pkg/domain"
	"fithub/pkg/platform/sentinel"
)

type InMemorySessionStoreSuite struct {
	suite.Suite
	store  *InMemorySessionStore
	ctx    context.Context
	userID id.UserID
	base   time.Time
}

func TestInMemorySessionStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemorySessionStoreSuite))
}

func (s *InMemorySessionStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.userID = id.NewUserID()
	s.base = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *InMemorySessionStoreSuite) open(at time.Time) *models.Session {
	session := models.NewSession(s.userID, at, "Chrome on macOS", "203.0.113.10")
	s.Require().NoError(s.store.Create(s.ctx, session))
	return session
}

func (s *InMemorySessionStoreSuite) TestCreateAndFind() {
	created := s.open(s.base)

	found, err := s.store.FindByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)
	s.Equal("Chrome on macOS", found.DeviceInfo)

	_, err = s.store.FindByID(s.ctx, id.NewSessionID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Create(s.ctx, created), sentinel.ErrAlreadyUsed)
}

func (s *InMemorySessionStoreSuite) TestReturnedSessionsAreCopies() {
	created := s.open(s.base)

	found, err := s.store.FindByID(s.ctx, created.ID)
	s.Require().NoError(err)
	found.End(s.base.Add(time.Hour))

	again, err := s.store.FindByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.True(again.IsActive())
}

func (s *InMemorySessionStoreSuite) TestListByUserNewestFirst() {
	older := s.open(s.base)
	newer := s.open(s.base.Add(time.Hour))
	other := models.NewSession(id.NewUserID(), s.base, "", "")
	s.Require().NoError(s.store.Create(s.ctx, other))

	sessions, err := s.store.ListByUser(s.ctx, s.userID, 0)
	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal(newer.ID, sessions[0].ID)
	s.Equal(older.ID, sessions[1].ID)

	limited, err := s.store.ListByUser(s.ctx, s.userID, 1)
	s.Require().NoError(err)
	s.Len(limited, 1)
}

func (s *InMemorySessionStoreSuite) TestEnd() {
	created := s.open(s.base)
	logout := s.base.Add(90 * time.Minute)

	ended, err := s.store.End(s.ctx, created.ID, logout)
	s.Require().NoError(err)
	s.Equal(logout, *ended.LogoutTime)
	s.Equal(90, *ended.DurationMinutes)

	_, err = s.store.End(s.ctx, created.ID, logout.Add(time.Minute))
	s.ErrorIs(err, ErrSessionEnded)
	s.ErrorIs(err, sentinel.ErrInvalidState)

	_, err = s.store.End(s.ctx, id.NewSessionID(), logout)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySessionStoreSuite) TestEndIsAtomicUnderConcurrency() {
	created := s.open(s.base)

	var wins, losses atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.End(s.ctx, created.ID, s.base.Add(time.Minute)); err == nil {
				wins.Add(1)
			} else {
				losses.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load())
	s.Equal(int32(19), losses.Load())
}

func (s *InMemorySessionStoreSuite) TestCloseStale() {
	ttl := 7 * 24 * time.Hour
	stale := s.open(s.base)
	fresh := s.open(s.base.Add(ttl))
	endedEarly := s.open(s.base.Add(-time.Hour))
	_, err := s.store.End(s.ctx, endedEarly.ID, s.base)
	s.Require().NoError(err)

	closed, err := s.store.CloseStale(s.ctx, s.base.Add(time.Minute), ttl)
	s.Require().NoError(err)
	s.Equal(1, closed)

	got, err := s.store.FindByID(s.ctx, stale.ID)
	s.Require().NoError(err)
	s.Equal(s.base.Add(ttl), *got.LogoutTime)
	s.Equal(10080, *got.DurationMinutes)

	stillOpen, err := s.store.FindByID(s.ctx, fresh.ID)
	s.Require().NoError(err)
	s.True(stillOpen.IsActive())
}
