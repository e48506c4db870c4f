package service

import (
	"context"
	"errors"
	"time"

	"fithub/internal/audit"
	"fithub/internal/auth/models"
	id "fithub/pkg/domain"
	dErrors "fithub/pkg/domain-errors"
	"fithub/pkg/platform/sentinel"
)

// ListSessions returns the caller's session history, newest first, flagging
// the session the request was made with.
func (s *Service) ListSessions(ctx context.Context, userID id.UserID, currentSessionID id.SessionID) (*models.SessionsResult, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	sessions, err := s.sessions.ListByUser(ctx, userID, sessionHistoryLimit)
	if err != nil {
		return nil, s.internalError(ctx, "session_list_failed", err, "failed to list sessions", userID)
	}

	summaries := make([]models.SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, models.NewSessionSummary(session, session.ID == currentSessionID))
	}
	return &models.SessionsResult{Sessions: summaries}, nil
}

// IsSessionEnded reports whether a token's session may no longer be used.
// A session that cannot be found counts as ended.
func (s *Service) IsSessionEnded(ctx context.Context, sessionID id.SessionID) (bool, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return true, nil
		}
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check session")
	}
	return !session.IsActive(), nil
}

// ExpireStaleSessions closes sessions still open after the token lifetime.
// Their logout time is login + TTL, the last moment the token was usable.
func (s *Service) ExpireStaleSessions(ctx context.Context, now time.Time) (int, error) {
	closed, err := s.sessions.CloseStale(ctx, now.Add(-s.tokenTTL), s.tokenTTL)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to close stale sessions")
	}
	if closed > 0 {
		s.logAudit(ctx, audit.EventSessionsExpired, id.UserID{}, id.SessionID{}, "count", closed)
		s.recordSessionsExpired(closed)
	}
	return closed, nil
}
