package httputil

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fithub/internal/auth/models"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func postBody(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestDecodeAndPrepare_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("trims fields and lowercases the email", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[models.RegisterRequest](w, postBody(
			`{"email":"  Jane.Doe@Example.COM ","password":"secret123","name":"  Jane Doe ","fitnessGoal":" Run a 10k "}`,
		), discardLogger, ctx, "req-1")

		require.True(t, ok, w.Body.String())
		assert.Equal(t, "jane.doe@example.com", req.Email)
		assert.Equal(t, "Jane Doe", req.Name)
		assert.Equal(t, "Run a 10k", req.FitnessGoal)
		assert.Equal(t, "secret123", req.Password)
	})

	t.Run("unknown fields are ignored", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[models.RegisterRequest](w, postBody(
			`{"email":"sam@fithub.app","password":"secret123","confirmPassword":"secret123","name":"Sam","theme":"dark"}`,
		), discardLogger, ctx, "req-2")

		require.True(t, ok, w.Body.String())
		assert.Equal(t, "Sam", req.Name)
	})

	t.Run("validation failure names the field", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[models.RegisterRequest](w, postBody(
			`{"email":"sam@fithub.app","password":"abc","name":"Sam"}`,
		), discardLogger, ctx, "req-3")

		assert.False(t, ok)
		assert.Nil(t, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := errorBody(t, w)
		assert.Equal(t, "validation_error", resp.Error)
		assert.Equal(t, "password", resp.Field)
		assert.Equal(t, "password must be at least 6 characters", resp.Message)
	})

	t.Run("email is checked first", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[models.RegisterRequest](w, postBody(
			`{"email":"not-an-email","password":"","name":""}`,
		), discardLogger, ctx, "req-4")

		assert.False(t, ok)
		resp := errorBody(t, w)
		assert.Equal(t, "email", resp.Field)
		assert.Equal(t, "Invalid email format", resp.Message)
	})
}

func TestDecodeAndPrepare_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("keeps the password as typed", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, ok := DecodeAndPrepare[models.LoginRequest](w, postBody(
			`{"email":"USER@FitHub.app","password":" Secret123 ","deviceInfo":"  Pixel 8  "}`,
		), discardLogger, ctx, "req-5")

		require.True(t, ok, w.Body.String())
		assert.Equal(t, "user@fithub.app", req.Email)
		assert.Equal(t, " Secret123 ", req.Password)
		assert.Equal(t, "Pixel 8", req.DeviceInfo)
	})

	t.Run("missing password", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := DecodeAndPrepare[models.LoginRequest](w, postBody(`{"email":"user@fithub.app"}`), discardLogger, ctx, "req-6")

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "password", errorBody(t, w).Field)
	})
}

func TestDecodeAndPrepare_Logout(t *testing.T) {
	ctx := context.Background()

	w := httptest.NewRecorder()
	req, ok := DecodeAndPrepare[models.LogoutRequest](w, postBody(`{"sessionId":"  3f1c9a8e-6d2b-4c1e-9a51-0c7f2d4b8e11  "}`), discardLogger, ctx, "req-7")
	require.True(t, ok, w.Body.String())
	assert.Equal(t, "3f1c9a8e-6d2b-4c1e-9a51-0c7f2d4b8e11", req.SessionID)

	w = httptest.NewRecorder()
	_, ok = DecodeAndPrepare[models.LogoutRequest](w, postBody(`{"sessionId":"   "}`), discardLogger, ctx, "req-8")
	assert.False(t, ok)
	resp := errorBody(t, w)
	assert.Equal(t, "sessionId", resp.Field)
	assert.Equal(t, "Session ID is required", resp.Message)
}

func TestDecodeAndPrepare_BadBodies(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		request func() *http.Request
		message string
	}{
		{"empty body", func() *http.Request { return postBody("") }, "Request body is required"},
		{"malformed json", func() *http.Request { return postBody(`{"email":`) }, "Invalid request body"},
		{"wrong type", func() *http.Request { return postBody(`{"email":42}`) }, "Invalid request body"},
		{"body over the limit", func() *http.Request {
			r := postBody(`{"email":"sam@fithub.app","password":"secret123"}`)
			r.Body = http.MaxBytesReader(httptest.NewRecorder(), r.Body, 8)
			return r
		}, "Request body is too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, ok := DecodeAndPrepare[models.LoginRequest](w, tt.request(), discardLogger, ctx, "req-bad")

			assert.False(t, ok)
			assert.Nil(t, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := errorBody(t, w)
			assert.Equal(t, "bad_request", resp.Error)
			assert.Equal(t, tt.message, resp.Message)
			assert.Empty(t, resp.Field)
		})
	}
}
