package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "fithub/pkg/domain-errors"
)

// Preparable is a request body that canonicalizes and checks itself.
type Preparable interface {
	Normalize()
	Validate() error
}

// DecodeAndPrepare reads a JSON body into T, normalizes it, then validates it.
// On failure the error envelope is already written and ok is false.
// Unknown fields are ignored so older app builds keep working.
//
//	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
func DecodeAndPrepare[T any, P interface {
	*T
	Preparable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := P(new(T))
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"error", err,
			"request_id", requestID,
		)
		WriteError(w, decodeError(err))
		return nil, false
	}

	req.Normalize()
	if err := req.Validate(); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"field", dErrors.FieldOf(err),
			"request_id", requestID,
		)
		var domainErr *dErrors.Error
		if !errors.As(err, &domainErr) {
			err = dErrors.New(dErrors.CodeValidation, err.Error())
		}
		WriteError(w, err)
		return nil, false
	}
	return (*T)(req), true
}

func decodeError(err error) error {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, io.EOF):
		return dErrors.New(dErrors.CodeBadRequest, "Request body is required")
	case errors.As(err, &maxErr):
		return dErrors.New(dErrors.CodeBadRequest, "Request body is too large")
	default:
		return dErrors.New(dErrors.CodeBadRequest, "Invalid request body")
	}
}
