//go:build integration

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"fithub/internal/auth/models"
	"fithub/internal/auth/store/session"
	id "fithub/pkg/domain"
	"fithub/pkg/platform/sentinel"
	"fithub/pkg/testutil"
	"fithub/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *session.PostgresStore
	userID   id.UserID
	base     time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = session.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateAll(ctx))
	s.userID = s.postgres.CreateTestUser(ctx, s.T(), "sessions@example.com").ID
	s.base = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) open(at time.Time) *models.Session {
	sess := testutil.NewSessionBuilder().WithUserID(s.userID).LoggedInAt(at).Build()
	s.Require().NoError(s.store.Create(context.Background(), sess))
	return sess
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	created := s.open(s.base)

	found, err := s.store.FindByID(ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.UserID, found.UserID)
	s.True(found.LoginTime.Equal(s.base))
	s.Equal("Chrome on macOS", found.DeviceInfo)
	s.True(found.IsActive())
	s.Nil(found.DurationMinutes)

	s.ErrorIs(s.store.Create(ctx, created), sentinel.ErrAlreadyUsed)

	_, err = s.store.FindByID(ctx, id.NewSessionID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListByUserNewestFirst() {
	ctx := context.Background()
	older := s.open(s.base)
	newer := s.open(s.base.Add(time.Hour))

	sessions, err := s.store.ListByUser(ctx, s.userID, 10)
	s.Require().NoError(err)
	s.Require().Len(sessions, 2)
	s.Equal(newer.ID, sessions[0].ID)
	s.Equal(older.ID, sessions[1].ID)

	limited, err := s.store.ListByUser(ctx, s.userID, 1)
	s.Require().NoError(err)
	s.Len(limited, 1)
}

func (s *PostgresStoreSuite) TestEnd() {
	ctx := context.Background()
	created := s.open(s.base)

	ended, err := s.store.End(ctx, created.ID, s.base.Add(90*time.Second))
	s.Require().NoError(err)
	s.Require().NotNil(ended.DurationMinutes)
	s.Equal(2, *ended.DurationMinutes)

	_, err = s.store.End(ctx, created.ID, s.base.Add(time.Hour))
	s.ErrorIs(err, session.ErrSessionEnded)

	_, err = s.store.End(ctx, id.NewSessionID(), s.base)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestConcurrentEndHasOneWinner() {
	created := s.open(s.base)

	result := testutil.RunConcurrent(10, func(int) error {
		_, err := s.store.End(context.Background(), created.ID, s.base.Add(time.Hour))
		return err
	})
	s.Equal(int32(1), result.Successes)
	s.Equal(int32(9), result.InvalidStates)
}

func (s *PostgresStoreSuite) TestCloseStale() {
	ctx := context.Background()
	ttl := 7 * 24 * time.Hour
	stale := s.open(s.base)
	fresh := s.open(s.base.Add(8 * 24 * time.Hour))

	closed, err := s.store.CloseStale(ctx, s.base.Add(time.Hour), ttl)
	s.Require().NoError(err)
	s.Equal(1, closed)

	got, err := s.store.FindByID(ctx, stale.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.LogoutTime)
	s.True(got.LogoutTime.Equal(s.base.Add(ttl)))
	s.Equal(7*24*60, *got.DurationMinutes)

	still, err := s.store.FindByID(ctx, fresh.ID)
	s.Require().NoError(err)
	s.True(still.IsActive())
}
