package ratelimit

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"fithub/pkg/requestcontext"
)

func serveFrom(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), ip, ""))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestMiddleware(t *testing.T) {
	// Near-zero refill so the burst is the whole budget during the test.
	reg := NewRegistry(0.001, 2, time.Minute)
	h := Middleware(reg, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, serveFrom(h, "203.0.113.1").Code)
	assert.Equal(t, http.StatusOK, serveFrom(h, "203.0.113.1").Code)

	blocked := serveFrom(h, "203.0.113.1")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), `"error":"rate_limited"`)

	assert.Equal(t, http.StatusOK, serveFrom(h, "203.0.113.2").Code, "other clients keep their own budget")
}

func TestRegistrySweep(t *testing.T) {
	reg := NewRegistry(1, 1, time.Minute)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	reg.GetOrCreate("a")
	now = now.Add(2 * time.Minute)
	reg.GetOrCreate("b")

	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 1, reg.Len())
}
