package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"fithub/internal/auth/models"
	id "fithub/pkg/domain"
	dErrors "fithub/pkg/domain-errors"
	"fithub/pkg/platform/sentinel"
)

// CurrentUser returns the account behind a validated token. A token whose
// user has since disappeared is unauthorized.
func (s *Service) CurrentUser(ctx context.Context, userID id.UserID) (result *models.ValidateResult, err error) {
	ctx, span := s.startSpan(ctx, "auth.CurrentUser", attribute.String("user.id", userID.String()))
	defer func() { endSpan(span, err) }()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.authFailure(ctx, "user_not_found", false, userID)
			return nil, dErrors.New(dErrors.CodeUnauthorized, MessageUserNotFound)
		}
		return nil, s.internalError(ctx, "user_lookup_failed", err, "failed to find user", userID)
	}
	return &models.ValidateResult{User: models.NewUserResult(user)}, nil
}
