package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"fithub/internal/audit"
	"fithub/internal/auth/models"
	sessionStore "fithub/internal/auth/store/session"
	id "fithub/pkg/domain"
	dErrors "fithub/pkg/domain-errors"
	"fithub/pkg/platform/sentinel"
	"fithub/pkg/requestcontext"
)

// Logout ends one of the caller's active sessions. Unknown sessions, sessions
// owned by someone else and sessions already ended all report not found.
func (s *Service) Logout(ctx context.Context, userID id.UserID, req *models.LogoutRequest) (result *models.LogoutResult, err error) {
	ctx, span := s.startSpan(ctx, "auth.Logout", attribute.String("user.id", userID.String()))
	defer func() { endSpan(span, err) }()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	sessionID, err := req.ParsedSessionID()
	if err != nil {
		return nil, err
	}
	attrs := []any{"session_id", sessionID.String()}

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.authFailure(ctx, "session_not_found", false, userID, attrs...)
			return nil, noActiveSession()
		}
		return nil, s.internalError(ctx, "session_lookup_failed", err, "failed to find session", userID, attrs...)
	}
	if session.UserID != userID {
		s.authFailure(ctx, "session_owner_mismatch", false, userID, attrs...)
		return nil, noActiveSession()
	}

	ended, err := s.sessions.End(ctx, sessionID, requestcontext.Now(ctx))
	if err != nil {
		if errors.Is(err, sessionStore.ErrSessionEnded) || errors.Is(err, sentinel.ErrNotFound) {
			s.authFailure(ctx, "session_already_ended", false, userID, attrs...)
			return nil, noActiveSession()
		}
		return nil, s.internalError(ctx, "session_end_failed", err, "failed to end session", userID, attrs...)
	}

	duration := 0
	if ended.DurationMinutes != nil {
		duration = *ended.DurationMinutes
	}
	s.logAudit(ctx, audit.EventSessionEnded, userID, sessionID, "duration_minutes", duration)
	s.recordLogout(duration)

	return &models.LogoutResult{
		Message:         MessageLoggedOut,
		SessionID:       sessionID.String(),
		LogoutTime:      *ended.LogoutTime,
		SessionDuration: duration,
	}, nil
}
