package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"fithub/internal/audit"
	"fithub/internal/auth/models"
	userStore "fithub/internal/auth/store/user"
	id "fithub/pkg/domain"
	dErrors "fithub/pkg/domain-errors"
	"fithub/pkg/platform/sentinel"
	"fithub/pkg/requestcontext"
)

// Register creates an account and signs the new user in.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (result *models.AuthResult, err error) {
	ctx, span := s.startSpan(ctx, "auth.Register")
	defer func() { endSpan(span, err) }()

	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		s.authFailure(ctx, "email_taken", false, id.UserID{})
		return nil, emailTaken()
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, s.internalError(ctx, "user_lookup_failed", err, "failed to look up user", id.UserID{})
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	now := requestcontext.Now(ctx)
	user := &models.User{
		ID:           id.NewUserID(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Profile:      req.Profile(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.createUser(ctx, user); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))

	session, token, err := s.openSession(ctx, user, req.DeviceInfo)
	if err != nil {
		s.discardUser(ctx, user)
		return nil, err
	}
	s.logAudit(ctx, audit.EventUserRegistered, user.ID, id.SessionID{}, "public_id", user.PublicID)
	s.incrementUsersRegistered()
	s.recordSessionOpened()

	return &models.AuthResult{
		User:      models.NewUserResult(user),
		Token:     token,
		SessionID: session.ID.String(),
		Message:   MessageRegistered,
	}, nil
}

// discardUser removes an account whose first session could not be opened,
// so the client can retry the same email. A failed delete leaves the
// account in place and the user can still log in to it.
func (s *Service) discardUser(ctx context.Context, user *models.User) {
	if err := s.users.Delete(context.WithoutCancel(ctx), user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to remove user after session failure",
			"user_id", user.ID.String(),
			"error", err,
		)
		return
	}
	s.logger.WarnContext(ctx, "removed user after session failure", "user_id", user.ID.String())
}

// createUser assigns a fresh public id and inserts the user, retrying when
// a concurrent registration claims the same public id first.
func (s *Service) createUser(ctx context.Context, user *models.User) error {
	for range maxPublicIDAttempts {
		publicID, err := s.unusedPublicID(ctx)
		if err != nil {
			return s.internalError(ctx, "public_id_unavailable", err, "failed to assign user id", user.ID)
		}
		user.PublicID = publicID

		err = s.users.Create(ctx, user)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, userStore.ErrEmailTaken):
			s.authFailure(ctx, "email_taken", false, id.UserID{})
			return emailTaken()
		case errors.Is(err, userStore.ErrPublicIDTaken):
			continue
		default:
			return s.internalError(ctx, "user_create_failed", err, "failed to create user", user.ID)
		}
	}
	return s.internalError(ctx, "public_id_unavailable", userStore.ErrPublicIDTaken, "failed to assign user id", user.ID)
}
