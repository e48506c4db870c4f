package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"fithub/internal/auth/models"
	id "fithub/pkg/domain"
	"fithub/pkg/platform/httputil"
	"fithub/pkg/requestcontext"
)

// Service defines the authentication operations the handler exposes.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error)
	Logout(ctx context.Context, userID id.UserID, req *models.LogoutRequest) (*models.LogoutResult, error)
	CurrentUser(ctx context.Context, userID id.UserID) (*models.ValidateResult, error)
	ListSessions(ctx context.Context, userID id.UserID, currentSessionID id.SessionID) (*models.SessionsResult, error)
}

// Handler serves the /auth endpoints.
type Handler struct {
	auth   Service
	logger *slog.Logger
}

// New creates a new auth Handler with the given service and logger.
func New(auth Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		auth:   auth,
		logger: logger,
	}
}

// RegisterPublic mounts the endpoints that need no token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.HandleRegister)
	r.Post("/auth/login", h.HandleLogin)
}

// RegisterProtected mounts the endpoints that expect the auth middleware in front.
func (h *Handler) RegisterProtected(r chi.Router) {
	r.Post("/auth/logout", h.HandleLogout)
	r.Get("/auth/validate", h.HandleValidate)
	r.Get("/auth/sessions", h.HandleListSessions)
}

// HandleRegister implements POST /auth/register.
//
// Input: { "email": "...", "password": "...", "name": "...", "age": 30, "fitnessGoal": "..." }
// Output: 201 { "user": {...}, "token": "...", "sessionId": "...", "message": "..." }
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.auth.Register(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "user registered",
		"request_id", requestID,
		"user_id", res.User.ID,
	)
	httputil.WriteJSON(w, http.StatusCreated, res)
}

// HandleLogin implements POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.auth.Login(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "login failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "login successful",
		"request_id", requestID,
		"user_id", res.User.ID,
		"session_id", res.SessionID,
	)
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleLogout implements POST /auth/logout. The session must belong to the token's user.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, err := httputil.RequireUserID(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.LogoutRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.auth.Logout(ctx, userID, req)
	if err != nil {
		h.logger.WarnContext(ctx, "logout failed",
			"error", err,
			"request_id", requestID,
			"user_id", userID.String(),
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "logout successful",
		"request_id", requestID,
		"user_id", userID.String(),
		"session_id", res.SessionID,
	)
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleValidate implements GET /auth/validate, used by the app on start.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, err := httputil.RequireUserID(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.auth.CurrentUser(ctx, userID)
	if err != nil {
		h.logger.WarnContext(ctx, "token validation failed",
			"error", err,
			"request_id", requestID,
			"user_id", userID.String(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleListSessions implements GET /auth/sessions.
func (h *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, err := httputil.RequireUserID(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.auth.ListSessions(ctx, userID, requestcontext.SessionID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list sessions",
			"error", err,
			"request_id", requestID,
			"user_id", userID.String(),
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}
