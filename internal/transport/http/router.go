// Package httptransport assembles the HTTP router: middleware chain, auth
// endpoints, health probes and metrics.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	authHandler "fithub/internal/auth/handler"
	"fithub/internal/platform/health"
	authmw "fithub/pkg/platform/middleware/auth"
	"fithub/pkg/platform/middleware/device"
	"fithub/pkg/platform/middleware/metadata"
	"fithub/pkg/platform/middleware/ratelimit"
	"fithub/pkg/platform/middleware/request"
)

// Deps are the components the router mounts. Auth, Health and JWT are required.
type Deps struct {
	Auth   *authHandler.Handler
	Health *health.Handler
	JWT    authmw.JWTValidator
	// Sessions rejects tokens for logged-out sessions; nil disables the check.
	Sessions authmw.SessionChecker

	Metadata     *metadata.Middleware
	DeviceName   func(userAgent string) string
	CredLimiter  *ratelimit.Registry
	Latency      *request.Metrics
	Metrics      http.Handler
	Timeout      time.Duration
	MaxBodyBytes int64
}

// NewRouter wires all public endpoints with middleware.
func NewRouter(d Deps, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(logger))
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	if d.Metadata == nil {
		d.Metadata = metadata.NewMiddleware(nil)
	}
	r.Use(d.Metadata.Handler)
	r.Use(device.Device(&device.Config{DisplayNameFn: d.DeviceName}))
	r.Use(request.Logger(logger))
	r.Use(request.LatencyMiddleware(d.Latency))
	if d.Timeout > 0 {
		r.Use(request.Timeout(d.Timeout))
	}

	d.Health.Register(r)
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(request.ContentTypeJSON)
		if d.MaxBodyBytes > 0 {
			r.Use(request.BodyLimit(d.MaxBodyBytes))
		}

		r.Group(func(r chi.Router) {
			if d.CredLimiter != nil {
				r.Use(ratelimit.Middleware(d.CredLimiter, logger))
			}
			d.Auth.RegisterPublic(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(authmw.RequireAuth(d.JWT, d.Sessions, logger))
			d.Auth.RegisterProtected(r)
		})
	})

	return r
}
