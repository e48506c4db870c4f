package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"fithub/internal/audit"
	"fithub/internal/auth/models"
	id "fithub/pkg/domain"
	dErrors "fithub/pkg/domain-errors"
	"fithub/pkg/platform/sentinel"
	"fithub/pkg/requestcontext"
	"fithub/pkg/secrets"
)

// Login verifies credentials and opens a session on the caller's device.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (result *models.AuthResult, err error) {
	ctx, span := s.startSpan(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()
	start := time.Now()

	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.authFailure(ctx, "user_not_found", false, id.UserID{})
			return nil, dErrors.NewField(dErrors.CodeUnauthorized, "email", MessageNoAccount)
		}
		return nil, s.internalError(ctx, "user_lookup_failed", err, "failed to look up user", id.UserID{})
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))

	if err := s.hasher.Verify(req.Password, user.PasswordHash); err != nil {
		if errors.Is(err, secrets.ErrMismatch) {
			s.authFailure(ctx, "invalid_password", false, user.ID)
			return nil, dErrors.NewField(dErrors.CodeUnauthorized, "password", MessageBadPassword)
		}
		return nil, s.internalError(ctx, "password_verify_failed", err, "failed to verify password", user.ID)
	}

	session, token, err := s.openSession(ctx, user, req.DeviceInfo)
	if err != nil {
		return nil, err
	}
	s.recordLogin(float64(time.Since(start).Milliseconds()))

	return &models.AuthResult{
		User:      models.NewUserResult(user),
		Token:     token,
		SessionID: session.ID.String(),
		Message:   MessageLoggedIn,
	}, nil
}

// openSession records a session for the user and issues a token bound to it.
// Device falls back to the User-Agent display name, then to Unknown.
func (s *Service) openSession(ctx context.Context, user *models.User, deviceInfo string) (*models.Session, string, error) {
	if deviceInfo == "" {
		deviceInfo = requestcontext.DeviceName(ctx)
	}
	session := models.NewSession(user.ID, requestcontext.Now(ctx), deviceInfo, requestcontext.ClientIP(ctx))

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", s.internalError(ctx, "session_create_failed", err, "failed to create session", user.ID)
	}

	token, _, err := s.jwt.GenerateAccessToken(ctx, user.ID, session.ID)
	if err != nil {
		return nil, "", s.internalError(ctx, "token_issue_failed", err, "failed to issue token", user.ID,
			"session_id", session.ID.String())
	}

	s.logAudit(ctx, audit.EventSessionStarted, user.ID, session.ID, "device", session.DeviceInfo)
	return session, token, nil
}
