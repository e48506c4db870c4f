package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"fithub/internal/audit"
	"fithub/internal/auth/models"
	userStore "fithub/internal/auth/store/user"
	dErrors "fithub/pkg/domain-errors"
	"fithub/pkg/platform/sentinel"
)

func validRegisterRequest() *models.RegisterRequest {
	age := 31
	return &models.RegisterRequest{
		Email:       "  Jane@Example.COM ",
		Password:    "secret123",
		Name:        "Jane Doe",
		Age:         &age,
		FitnessGoal: "Run a marathon",
	}
}

func (s *ServiceSuite) TestRegister() {
	s.Run("creates user, opens session and issues token", func() {
		var actions []string
		s.mockAudit.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, e audit.Event) error {
				actions = append(actions, e.Action)
				return nil
			}).Times(2)

		var created *models.User
		var opened *models.Session
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), "jane@example.com").Return(nil, sentinel.ErrNotFound)
		s.mockHasher.EXPECT().Hash("secret123").Return("bcrypt-hash", nil)
		s.mockUserStore.EXPECT().ExistsByPublicID(gomock.Any(), gomock.Any()).Return(false, nil)
		s.mockUserStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, u *models.User) error {
				created = u
				return nil
			})
		s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, sess *models.Session) error {
				opened = sess
				return nil
			})
		s.mockJWT.EXPECT().GenerateAccessToken(gomock.Any(), gomock.Any(), gomock.Any()).Return("signed-token", "jti-1", nil)

		result, err := s.service.Register(s.requestCtx(), validRegisterRequest())
		s.Require().NoError(err)

		s.Equal("signed-token", result.Token)
		s.Equal(MessageRegistered, result.Message)
		s.Equal("jane@example.com", result.User.Email)
		s.Equal(31, *result.User.Age)
		s.Len(result.User.UserID, 8)
		s.Equal(created.PublicID, result.User.UserID)
		s.Equal("bcrypt-hash", created.PasswordHash)
		s.Equal(opened.ID.String(), result.SessionID)
		s.Equal(created.ID, opened.UserID)
		s.Equal(s.now, opened.LoginTime)
		s.Equal("Chrome on macOS", opened.DeviceInfo)
		s.Equal("203.0.113.10", opened.IPAddress)
		s.Equal([]string{string(audit.EventSessionStarted), string(audit.EventUserRegistered)}, actions)
		s.InDelta(1, testutil.ToFloat64(s.metrics.UsersRegistered), 0)
	})

	s.Run("rejects invalid email before any lookup", func() {
		req := validRegisterRequest()
		req.Email = "not-an-email"

		_, err := s.service.Register(s.requestCtx(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("email", dErrors.FieldOf(err))
		s.EqualError(err, "Invalid email format")
	})

	s.Run("rejects short password", func() {
		req := validRegisterRequest()
		req.Password = "abc"

		_, err := s.service.Register(s.requestCtx(), req)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("password", dErrors.FieldOf(err))
	})

	s.Run("duplicate email is a validation error on email", func() {
		s.expectAudit()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), "jane@example.com").Return(s.newUser(), nil)

		_, err := s.service.Register(s.requestCtx(), validRegisterRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("email", dErrors.FieldOf(err))
		s.EqualError(err, MessageEmailTaken)
	})

	s.Run("email claimed concurrently maps to the same error", func() {
		s.expectAudit()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
		s.mockHasher.EXPECT().Hash(gomock.Any()).Return("hash", nil)
		s.mockUserStore.EXPECT().ExistsByPublicID(gomock.Any(), gomock.Any()).Return(false, nil)
		s.mockUserStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(userStore.ErrEmailTaken)

		_, err := s.service.Register(s.requestCtx(), validRegisterRequest())
		s.EqualError(err, MessageEmailTaken)
	})

	s.Run("retries public id collisions", func() {
		s.expectAudit()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
		s.mockHasher.EXPECT().Hash(gomock.Any()).Return("hash", nil)
		gomock.InOrder(
			s.mockUserStore.EXPECT().ExistsByPublicID(gomock.Any(), gomock.Any()).Return(true, nil),
			s.mockUserStore.EXPECT().ExistsByPublicID(gomock.Any(), gomock.Any()).Return(false, nil),
			s.mockUserStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(userStore.ErrPublicIDTaken),
			s.mockUserStore.EXPECT().ExistsByPublicID(gomock.Any(), gomock.Any()).Return(false, nil),
			s.mockUserStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil),
		)
		s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.mockJWT.EXPECT().GenerateAccessToken(gomock.Any(), gomock.Any(), gomock.Any()).Return("t", "j", nil)

		_, err := s.service.Register(s.requestCtx(), validRegisterRequest())
		s.NoError(err)
	})

	s.Run("store failure is internal", func() {
		s.expectAudit()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(nil, errors.New("connection refused"))

		_, err := s.service.Register(s.requestCtx(), validRegisterRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("nil request", func() {
		_, err := s.service.Register(s.requestCtx(), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestRegister_SessionFailureRemovesUser() {
	s.Run("session store failure", func() {
		s.expectAudit()
		var created *models.User
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
		s.mockHasher.EXPECT().Hash(gomock.Any()).Return("hash", nil)
		s.mockUserStore.EXPECT().ExistsByPublicID(gomock.Any(), gomock.Any()).Return(false, nil)
		s.mockUserStore.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, u *models.User) error {
				created = u
				return nil
			})
		s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
		s.mockUserStore.EXPECT().Delete(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ any, userID any) error {
				s.Equal(created.ID, userID)
				return nil
			})

		_, err := s.service.Register(s.requestCtx(), validRegisterRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.InDelta(0, testutil.ToFloat64(s.metrics.UsersRegistered), 0)
	})

	s.Run("token failure", func() {
		s.expectAudit()
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
		s.mockHasher.EXPECT().Hash(gomock.Any()).Return("hash", nil)
		s.mockUserStore.EXPECT().ExistsByPublicID(gomock.Any(), gomock.Any()).Return(false, nil)
		s.mockUserStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.mockSessionStore.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
		s.mockJWT.EXPECT().GenerateAccessToken(gomock.Any(), gomock.Any(), gomock.Any()).Return("", "", errors.New("signer down"))
		s.mockUserStore.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(errors.New("connection reset"))

		_, err := s.service.Register(s.requestCtx(), validRegisterRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *ServiceSuite) TestRegister_HashErrors() {
	s.Run("domain error from the hasher is returned as is", func() {
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
		s.mockHasher.EXPECT().Hash(gomock.Any()).Return("",
			dErrors.NewField(dErrors.CodeValidation, "password", "password is too long"))

		_, err := s.service.Register(s.requestCtx(), validRegisterRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal("password", dErrors.FieldOf(err))
		s.EqualError(err, "password is too long")
	})

	s.Run("other hasher errors are internal", func() {
		s.mockUserStore.EXPECT().FindByEmail(gomock.Any(), gomock.Any()).Return(nil, sentinel.ErrNotFound)
		s.mockHasher.EXPECT().Hash(gomock.Any()).Return("", errors.New("entropy exhausted"))

		_, err := s.service.Register(s.requestCtx(), validRegisterRequest())
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.EqualError(err, "failed to hash password")
	})
}

func (s *ServiceSuite) TestNewPublicIDRange() {
	for range 200 {
		pid, err := newPublicID()
		s.Require().NoError(err)
		s.Len(pid, 8)
		s.GreaterOrEqual(pid, "10000000")
		s.LessOrEqual(pid, "99999999")
	}
}
