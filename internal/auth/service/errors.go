package service

import (
	"context"

	id "fithub/pkg/domain"
	dErrors "fithub/pkg/domain-errors"
)

// Store and dependency errors are translated here exactly once. Domain errors
// raised by validation or the hasher pass through dErrors.Wrap unchanged.

func (s *Service) internalError(ctx context.Context, reason string, err error, message string, userID id.UserID, attributes ...any) error {
	s.authFailure(ctx, reason, true, userID, append(attributes, "error", err)...)
	return dErrors.Wrap(err, dErrors.CodeInternal, message)
}

func noActiveSession() error {
	return dErrors.New(dErrors.CodeNotFound, MessageNoSession)
}

func emailTaken() error {
	return dErrors.NewField(dErrors.CodeValidation, "email", MessageEmailTaken)
}
