// Package client talks to the FitHub auth API and keeps the signed-in
// state of an app or CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// User is the account profile returned by the API.
type User struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Age               *int      `json:"age,omitempty"`
	Gender            string    `json:"gender,omitempty"`
	Height            *float64  `json:"height,omitempty"`
	Weight            *float64  `json:"weight,omitempty"`
	FitnessGoal       string    `json:"fitnessGoal,omitempty"`
	DietaryPreference string    `json:"dietaryPreference,omitempty"`
	MedicalIssues     string    `json:"medicalIssues,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Registration is the sign-up form.
type Registration struct {
	Email             string   `json:"email"`
	Password          string   `json:"password"`
	Name              string   `json:"name"`
	Age               *int     `json:"age,omitempty"`
	Gender            string   `json:"gender,omitempty"`
	Height            *float64 `json:"height,omitempty"`
	Weight            *float64 `json:"weight,omitempty"`
	FitnessGoal       string   `json:"fitnessGoal,omitempty"`
	DietaryPreference string   `json:"dietaryPreference,omitempty"`
	MedicalIssues     string   `json:"medicalIssues,omitempty"`
	DeviceInfo        string   `json:"deviceInfo,omitempty"`
}

// Credentials is the sign-in form.
type Credentials struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	DeviceInfo string `json:"deviceInfo,omitempty"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User      *User  `json:"user"`
	Token     string `json:"token"`
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

// LogoutResponse reports the closed session.
type LogoutResponse struct {
	Message         string    `json:"message"`
	SessionID       string    `json:"sessionId"`
	LogoutTime      time.Time `json:"logoutTime"`
	SessionDuration int       `json:"sessionDuration"`
}

// Session is one row of the session history.
type Session struct {
	SessionID       string     `json:"sessionId"`
	LoginTime       time.Time  `json:"loginTime"`
	LogoutTime      *time.Time `json:"logoutTime"`
	SessionDuration *int       `json:"sessionDuration"`
	DeviceInfo      string     `json:"deviceInfo"`
	IPAddress       string     `json:"ipAddress"`
	IsActive        bool       `json:"isActive"`
	IsCurrent       bool       `json:"isCurrent"`
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Code    string
	Message string
	Field   string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Field, msg)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return fmt.Sprintf("status %d: %s", e.Status, msg)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized
}

// Client calls the auth endpoints. The zero value is not usable; use New.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default 30s-timeout http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithUserAgent sets the User-Agent the server uses for the session device name.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a client for server, e.g. "localhost:8080" or "https://api.fithub.app".
func New(server string, opts ...Option) *Client {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}
	c := &Client{
		baseURL:   baseURL,
		http:      &http.Client{Timeout: defaultTimeout},
		userAgent: "fithub-client/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Register creates an account and opens its first session.
func (c *Client) Register(ctx context.Context, reg Registration) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", "", reg, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login opens a new session.
func (c *Client) Login(ctx context.Context, creds Credentials) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout closes sessionID using token for authorization.
func (c *Client) Logout(ctx context.Context, token, sessionID string) (*LogoutResponse, error) {
	var out LogoutResponse
	body := map[string]string{"sessionId": sessionID}
	if err := c.do(ctx, http.MethodPost, "/auth/logout", token, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate returns the user the token belongs to.
func (c *Client) Validate(ctx context.Context, token string) (*User, error) {
	var out struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/validate", token, nil, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, errors.New("validate: response has no user")
	}
	return out.User, nil
}

// Sessions lists the session history of the token's user, newest first.
func (c *Client) Sessions(ctx context.Context, token string) ([]Session, error) {
	var out struct {
		Sessions []Session `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/sessions", token, nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *Client) do(ctx context.Context, method, path, token string, body, target any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	return parseResponse(resp, target)
}

func parseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errResp struct {
			Error   string `json:"error"`
			Message string `json:"message"`
			Field   string `json:"field"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			apiErr.Code = errResp.Error
			apiErr.Message = errResp.Message
			apiErr.Field = errResp.Field
		}
		return apiErr
	}

	if target != nil {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
