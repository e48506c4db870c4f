package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
)

// AuthState is the signed-in state of one app instance: the current user
// and session id in memory, the token in a TokenStore.
type AuthState struct {
	client *Client
	store  TokenStore

	mu        sync.RWMutex
	user      *User
	token     string
	sessionID string
	loading   bool
}

func NewAuthState(c *Client, store TokenStore) *AuthState {
	if store == nil {
		store = NewMemoryStore()
	}
	return &AuthState{client: c, store: store}
}

// Restore validates the persisted token, the way the app does on start.
// A rejected token is cleared. When the server cannot be reached the token
// is kept for the next attempt and the error is returned.
func (s *AuthState) Restore(ctx context.Context) error {
	s.setLoading(true)
	defer s.setLoading(false)

	stored, err := s.store.Load()
	if errors.Is(err, ErrNoToken) {
		s.reset()
		return nil
	}
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}

	user, err := s.client.Validate(ctx, stored.Token)
	if IsUnauthorized(err) {
		s.reset()
		if clearErr := s.store.Clear(); clearErr != nil {
			return fmt.Errorf("clear rejected token: %w", clearErr)
		}
		return nil
	}
	if err != nil {
		s.mu.Lock()
		s.user = nil
		s.token = stored.Token
		s.sessionID = stored.SessionID
		s.mu.Unlock()
		return fmt.Errorf("validate token: %w", err)
	}

	s.mu.Lock()
	s.user = user
	s.token = stored.Token
	s.sessionID = stored.SessionID
	s.mu.Unlock()
	return nil
}

// SignIn logs in and persists the new token.
func (s *AuthState) SignIn(ctx context.Context, creds Credentials) (*User, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	res, err := s.client.Login(ctx, creds)
	if err != nil {
		return nil, err
	}
	return res.User, s.adopt(res)
}

// Register creates the account and signs in with its first session.
func (s *AuthState) Register(ctx context.Context, reg Registration) (*User, error) {
	s.setLoading(true)
	defer s.setLoading(false)

	res, err := s.client.Register(ctx, reg)
	if err != nil {
		return nil, err
	}
	return res.User, s.adopt(res)
}

// SignOut ends the current session on the server and forgets the token.
// Local state is cleared even when the server already considers the
// session ended.
func (s *AuthState) SignOut(ctx context.Context) (*LogoutResponse, error) {
	s.mu.RLock()
	token, sessionID := s.token, s.sessionID
	s.mu.RUnlock()

	var res *LogoutResponse
	var logoutErr error
	if token != "" && sessionID != "" {
		res, logoutErr = s.client.Logout(ctx, token, sessionID)
	}

	s.reset()
	if err := s.store.Clear(); err != nil {
		return res, fmt.Errorf("clear token: %w", err)
	}

	var apiErr *APIError
	if errors.As(logoutErr, &apiErr) &&
		(apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusNotFound) {
		return nil, nil
	}
	return res, logoutErr
}

// Sessions lists the session history of the signed-in user.
func (s *AuthState) Sessions(ctx context.Context) ([]Session, error) {
	token := s.Token()
	if token == "" {
		return nil, ErrNoToken
	}
	return s.client.Sessions(ctx, token)
}

func (s *AuthState) adopt(res *AuthResponse) error {
	s.mu.Lock()
	s.user = res.User
	s.token = res.Token
	s.sessionID = res.SessionID
	s.mu.Unlock()

	if err := s.store.Save(StoredToken{Token: res.Token, SessionID: res.SessionID}); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	return nil
}

func (s *AuthState) reset() {
	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.sessionID = ""
	s.mu.Unlock()
}

func (s *AuthState) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// User returns a copy of the signed-in user, or nil.
func (s *AuthState) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *AuthState) SessionID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// Token returns the bearer token, which may be set while User is nil
// after a Restore that could not reach the server.
func (s *AuthState) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *AuthState) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != nil && s.token != ""
}

func (s *AuthState) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}
