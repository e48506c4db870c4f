package service

import (
	"errors"
	"time"

	"go.uber.org/mock/gomock"

	"fithub/internal/auth/models"
	sessionStore "fithub/internal/auth/store/session"
	id "fithub/pkg/domain"
	dErrors "fithub/pkg/domain-errors"
	"fithub/pkg/platform/sentinel"
)

func (s *ServiceSuite) TestLogout() {
	userID := id.NewUserID()
	openSession := func() *models.Session {
		return models.NewSession(userID, s.now.Add(-45*time.Minute), "Pixel 8", "203.0.113.10")
	}

	s.Run("ends the session and reports duration", func() {
		s.expectAudit()
		session := openSession()
		s.mockSessionStore.EXPECT().FindByID(gomock.Any(), session.ID).Return(session, nil)
		s.mockSessionStore.EXPECT().End(gomock.Any(), session.ID, s.now).DoAndReturn(
			func(_ any, _ id.SessionID, at time.Time) (*models.Session, error) {
				ended := *session
				ended.End(at)
				return &ended, nil
			})

		result, err := s.service.Logout(s.requestCtx(), userID, &models.LogoutRequest{SessionID: session.ID.String()})
		s.Require().NoError(err)
		s.Equal(MessageLoggedOut, result.Message)
		s.Equal(session.ID.String(), result.SessionID)
		s.Equal(s.now, result.LogoutTime)
		s.Equal(45, result.SessionDuration)
	})

	s.Run("missing session id", func() {
		_, err := s.service.Logout(s.requestCtx(), userID, &models.LogoutRequest{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("sessionId", dErrors.FieldOf(err))
	})

	s.Run("malformed session id is a bad request", func() {
		_, err := s.service.Logout(s.requestCtx(), userID, &models.LogoutRequest{SessionID: "not-a-uuid"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown session is not found", func() {
		s.expectAudit()
		s.mockSessionStore.EXPECT().FindByID(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)

		_, err := s.service.Logout(s.requestCtx(), userID, &models.LogoutRequest{SessionID: id.NewSessionID().String()})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.EqualError(err, MessageNoSession)
	})

	s.Run("another user's session is not found", func() {
		s.expectAudit()
		foreign := models.NewSession(id.NewUserID(), s.now, "", "")
		s.mockSessionStore.EXPECT().FindByID(gomock.Any(), foreign.ID).Return(foreign, nil)

		_, err := s.service.Logout(s.requestCtx(), userID, &models.LogoutRequest{SessionID: foreign.ID.String()})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("already ended session is not found", func() {
		s.expectAudit()
		session := openSession()
		s.mockSessionStore.EXPECT().FindByID(gomock.Any(), session.ID).Return(session, nil)
		s.mockSessionStore.EXPECT().End(gomock.Any(), session.ID, gomock.Any()).Return(nil, sessionStore.ErrSessionEnded)

		_, err := s.service.Logout(s.requestCtx(), userID, &models.LogoutRequest{SessionID: session.ID.String()})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("store failure is internal", func() {
		s.expectAudit()
		session := openSession()
		s.mockSessionStore.EXPECT().FindByID(gomock.Any(), session.ID).Return(session, nil)
		s.mockSessionStore.EXPECT().End(gomock.Any(), session.ID, gomock.Any()).Return(nil, errors.New("timeout"))

		_, err := s.service.Logout(s.requestCtx(), userID, &models.LogoutRequest{SessionID: session.ID.String()})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("unauthenticated caller", func() {
		_, err := s.service.Logout(s.requestCtx(), id.UserID{}, &models.LogoutRequest{SessionID: id.NewSessionID().String()})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
