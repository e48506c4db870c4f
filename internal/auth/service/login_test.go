package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"fithub/internal/auth/models"
	dErrors "fithub/pkg/domain-errors"
	"fithub/pkg/platform/sentinel"
	"fithub/pkg/secrets"
)

func (s *ServiceSuite) TestLogin() {
	s.Run("opens a session with the supplied device", func() {
		s.expectAudit()
		user := s.newUser()
		var opened *models.Session
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), "jane@example.com").Return(user, nil)
		s.mockHasher.EXPECT().Verify("secret123", "hashed").Return(nil)
		s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, sess *models.Session) error {
				opened = sess
				return nil
			})
		s.mockJWT.EXPECT().GenerateAccessToken(gomock.Any(), user.ID, gomock.Any()).Return("signed-token", "jti", nil)

		result, err := s.service.Login(s.requestCtx(), &models.LoginRequest{
			Email:      "JANE@example.com",
			Password:   "secret123",
			DeviceInfo: "Pixel 8",
		})
		s.Require().NoError(err)
		s.Equal(MessageLoggedIn, result.Message)
		s.Equal("signed-token", result.Token)
		s.Equal(opened.ID.String(), result.SessionID)
		s.Equal("Pixel 8", opened.DeviceInfo)
		s.Equal(user.PublicID, result.User.UserID)
		s.InDelta(1, testutil.ToFloat64(s.metrics.LoginsTotal), 0)
	})

	s.Run("unknown email is unauthorized on email", func() {
		s.expectAudit()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), "nobody@example.com").Return(nil, sentinel.ErrNotFound)

		_, err := s.service.Login(s.requestCtx(), &models.LoginRequest{Email: "nobody@example.com", Password: "secret123"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("email", dErrors.FieldOf(err))
		s.EqualError(err, MessageNoAccount)
		s.InDelta(1, testutil.ToFloat64(s.metrics.AuthFailures.WithLabelValues("user_not_found")), 0)
	})

	s.Run("wrong password is unauthorized on password", func() {
		s.expectAudit()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(s.newUser(), nil)
		s.mockHasher.EXPECT().Verify("wrong-pass", "hashed").Return(secrets.ErrMismatch)

		_, err := s.service.Login(s.requestCtx(), &models.LoginRequest{Email: "jane@example.com", Password: "wrong-pass"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("password", dErrors.FieldOf(err))
		s.EqualError(err, MessageBadPassword)
	})

	s.Run("malformed email is a validation error", func() {
		_, err := s.service.Login(s.requestCtx(), &models.LoginRequest{Email: "jane@", Password: "secret123"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("email", dErrors.FieldOf(err))
	})

	s.Run("corrupt hash is internal", func() {
		s.expectAudit()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(s.newUser(), nil)
		s.mockHasher.EXPECT().Verify(gomock.Any(), gomock.Any()).
			Return(dErrors.Wrap(errors.New("bad hash"), dErrors.CodeInternal, "could not verify password"))

		_, err := s.service.Login(s.requestCtx(), &models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("token failure is internal", func() {
		s.expectAudit()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(s.newUser(), nil)
		s.mockHasher.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil)
		s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.mockJWT.EXPECT().GenerateAccessToken(gomock.Any(), gomock.Any(), gomock.Any()).Return("", "", errors.New("sign failed"))

		_, err := s.service.Login(s.requestCtx(), &models.LoginRequest{Email: "jane@example.com", Password: "secret123"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestLogin_DeviceFallsBackToUserAgentThenUnknown() {
	s.expectAudit()
	user := s.newUser()
	var devices []string
	s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(user, nil).Times(2)
	s.mockHasher.EXPECT().Verify(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, sess *models.Session) error {
			devices = append(devices, sess.DeviceInfo)
			return nil
		}).Times(2)
	s.mockJWT.EXPECT().GenerateAccessToken(gomock.Any(), gomock.Any(), gomock.Any()).Return("t", "j", nil).Times(2)

	req := func() *models.LoginRequest {
		return &models.LoginRequest{Email: "jane@example.com", Password: "secret123"}
	}
	_, err := s.service.Login(s.requestCtx(), req())
	s.Require().NoError(err)

	// No device name and no client IP in context.
	_, err = s.service.Login(s.T().Context(), req())
	s.Require().NoError(err)

	s.Equal([]string{"Chrome on macOS", models.UnknownValue}, devices)
}
