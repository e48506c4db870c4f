// Package device labels each request with a display name for the caller's device.
package device

import (
	"net/http"

	"fithub/pkg/requestcontext"
)

// Config holds configuration for the Device middleware.
type Config struct {
	// DisplayNameFn maps a User-Agent to a label such as "Chrome on macOS".
	DisplayNameFn func(userAgent string) string
}

// Device stores the device display name on the context. It must run after the
// metadata middleware, which captures the User-Agent.
func Device(cfg *Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if cfg != nil && cfg.DisplayNameFn != nil {
				if ua := requestcontext.UserAgent(ctx); ua != "" {
					if name := cfg.DisplayNameFn(ua); name != "" {
						ctx = requestcontext.WithDeviceName(ctx, name)
					}
				}
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
