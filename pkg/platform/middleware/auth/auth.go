// Package auth authenticates bearer tokens on protected routes.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	id "fithub/pkg/domain"
	dErrors "fithub/pkg/domain-errors"
	"fithub/pkg/platform/httputil"
	"fithub/pkg/requestcontext"
)

// JWTValidator validates a raw token and returns its claims.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// SessionChecker reports whether the session a token was issued for has ended.
type SessionChecker interface {
	IsSessionEnded(ctx context.Context, sessionID id.SessionID) (bool, error)
}

// JWTClaims are the claims the middleware needs from a validated token.
type JWTClaims struct {
	UserID    string
	SessionID string
	JTI       string
}

type sessionResult int

const (
	sessionOK sessionResult = iota
	sessionEnded
	sessionCheckFailed
)

// checkSession consults the checker when the token names a session.
// Tokens without a session claim are not session-bound and pass.
func checkSession(ctx context.Context, checker SessionChecker, sessionID id.SessionID, logger *slog.Logger) sessionResult {
	if checker == nil || sessionID.IsNil() {
		return sessionOK
	}

	ended, err := checker.IsSessionEnded(ctx, sessionID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to check session state",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return sessionCheckFailed
	}
	if ended {
		logger.WarnContext(ctx, "unauthorized access - session ended",
			"session_id", sessionID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
		return sessionEnded
	}
	return sessionOK
}

type parsedClaims struct {
	UserID    id.UserID
	SessionID id.SessionID
}

func parseClaims(claims *JWTClaims) (*parsedClaims, error) {
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("invalid userId: %w", err)
	}
	if userID.IsNil() {
		return nil, fmt.Errorf("invalid userId: nil")
	}

	var sessionID id.SessionID
	if claims.SessionID != "" {
		sessionID, err = id.ParseSessionID(claims.SessionID)
		if err != nil {
			return nil, fmt.Errorf("invalid sessionId: %w", err)
		}
	}
	return &parsedClaims{UserID: userID, SessionID: sessionID}, nil
}

func unauthorized(w http.ResponseWriter, msg string) {
	httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, msg))
}

// RequireAuth validates the bearer token, rejects tokens whose session has
// ended (when a checker is given), and stores the typed user and session IDs
// on the request context.
func RequireAuth(validator JWTValidator, sessions SessionChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := BearerToken(r)
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				unauthorized(w, "No token provided")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				unauthorized(w, "Invalid or expired token")
				return
			}

			parsed, err := parseClaims(claims)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - malformed token claims",
					"error", err,
					"request_id", requestID,
				)
				unauthorized(w, "Invalid or expired token")
				return
			}

			switch checkSession(ctx, sessions, parsed.SessionID, logger) {
			case sessionEnded:
				unauthorized(w, "Session has ended")
				return
			case sessionCheckFailed:
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "Failed to validate token"))
				return
			}

			ctx = requestcontext.WithUserID(ctx, parsed.UserID)
			if !parsed.SessionID.IsNil() {
				ctx = requestcontext.WithSessionID(ctx, parsed.SessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from "Authorization: Bearer <token>".
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
