package device

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"fithub/pkg/requestcontext"
)

func TestDevice(t *testing.T) {
	upper := &Config{DisplayNameFn: strings.ToUpper}

	run := func(cfg *Config, userAgent string) string {
		var name string
		handler := Device(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			name = requestcontext.DeviceName(r.Context())
		}))
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req = req.WithContext(requestcontext.WithClientMetadata(req.Context(), "203.0.113.1", userAgent))
		handler.ServeHTTP(httptest.NewRecorder(), req)
		return name
	}

	assert.Equal(t, "FITHUB-IOS", run(upper, "fithub-ios"))
	assert.Empty(t, run(upper, ""), "no user agent, no name")
	assert.Empty(t, run(nil, "fithub-ios"), "nil config is a no-op")
	assert.Empty(t, run(&Config{DisplayNameFn: func(string) string { return "" }}, "x"))
}
