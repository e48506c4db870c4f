package service

import (
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	"fithub/internal/audit"
	"fithub/internal/auth/models"
	id "fithub/pkg/domain"
	dErrors "fithub/pkg/domain-errors"
	"fithub/pkg/platform/sentinel"
)

func (s *ServiceSuite) TestCurrentUser() {
	s.Run("returns the user", func() {
		user := s.newUser()
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), user.ID).Return(user, nil)

		result, err := s.service.CurrentUser(s.requestCtx(), user.ID)
		s.Require().NoError(err)
		s.Equal(user.Email, result.User.Email)
		s.Equal(user.PublicID, result.User.UserID)
	})

	s.Run("deleted user is unauthorized", func() {
		s.expectAudit()
		s.mockUserStore.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.CurrentUser(s.requestCtx(), id.NewUserID())
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.EqualError(err, MessageUserNotFound)
	})

	s.Run("nil user", func() {
		_, err := s.service.CurrentUser(s.requestCtx(), id.UserID{})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *ServiceSuite) TestListSessions() {
	userID := id.NewUserID()
	current := models.NewSession(userID, s.now, "Pixel 8", "203.0.113.10")
	older := models.NewSession(userID, s.now.Add(-48*time.Hour), "Safari on iOS", "198.51.100.4")
	older.End(s.now.Add(-47 * time.Hour))

	s.mockSessionStore.EXPECT().ListByUser(gomock.Any(), userID, sessionHistoryLimit).
		Return([]*models.Session{current, older}, nil)

	result, err := s.service.ListSessions(s.requestCtx(), userID, current.ID)
	s.Require().NoError(err)
	s.Require().Len(result.Sessions, 2)
	s.True(result.Sessions[0].IsCurrent)
	s.True(result.Sessions[0].IsActive)
	s.False(result.Sessions[1].IsCurrent)
	s.False(result.Sessions[1].IsActive)
	s.Equal(60, *result.Sessions[1].SessionDuration)
}

func (s *ServiceSuite) TestIsSessionEnded() {
	userID := id.NewUserID()
	active := models.NewSession(userID, s.now, "", "")
	ended := models.NewSession(userID, s.now, "", "")
	ended.End(s.now.Add(time.Minute))

	s.mockSessionStore.EXPECT().FindByID(gomock.Any(), active.ID).Return(active, nil)
	s.mockSessionStore.EXPECT().FindByID(gomock.Any(), ended.ID).Return(ended, nil)
	missing := id.NewSessionID()
	s.mockSessionStore.EXPECT().FindByID(gomock.Any(), missing).Return(nil, sentinel.ErrNotFound)
	broken := id.NewSessionID()
	s.mockSessionStore.EXPECT().FindByID(gomock.Any(), broken).Return(nil, errors.New("redis down"))

	got, err := s.service.IsSessionEnded(s.requestCtx(), active.ID)
	s.NoError(err)
	s.False(got)

	got, err = s.service.IsSessionEnded(s.requestCtx(), ended.ID)
	s.NoError(err)
	s.True(got)

	got, err = s.service.IsSessionEnded(s.requestCtx(), missing)
	s.NoError(err)
	s.True(got)

	_, err = s.service.IsSessionEnded(s.requestCtx(), broken)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestExpireStaleSessions() {
	ttl := 7 * 24 * time.Hour
	s.mockSessionStore.EXPECT().CloseStale(gomock.Any(), s.now.Add(-ttl), ttl).Return(3, nil)
	s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ any, e audit.Event) error {
		s.Equal(string(audit.EventSessionsExpired), e.Action)
		return nil
	})

	closed, err := s.service.ExpireStaleSessions(s.requestCtx(), s.now)
	s.Require().NoError(err)
	s.Equal(3, closed)

	s.mockSessionStore.EXPECT().CloseStale(gomock.Any(), gomock.Any(), gomock.Any()).Return(0, errors.New("boom"))
	_, err = s.service.ExpireStaleSessions(s.requestCtx(), s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
