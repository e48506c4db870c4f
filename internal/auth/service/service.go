// Package service implements account registration and the session lifecycle.
package service

import (
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"fithub/internal/auth/metrics"
	jwttoken "fithub/internal/jwt_token"
	"fithub/pkg/secrets"
)

const (
	// maxPublicIDAttempts bounds retries when a random public id collides.
	maxPublicIDAttempts = 5

	// sessionHistoryLimit caps the session list returned to the app.
	sessionHistoryLimit = 50

	MessageRegistered   = "Registration successful!"
	MessageLoggedIn     = "Login successful!"
	MessageLoggedOut    = "Logout successful"
	MessageEmailTaken   = "An account with this email already exists. Please use a different email address."
	MessageNoAccount    = "No account found with this email address"
	MessageBadPassword  = "Incorrect password"
	MessageNoSession    = "No active session found"
	MessageUserNotFound = "User not found"
)

// Config holds service settings.
type Config struct {
	// TokenTTL is the access token lifetime. Sessions still open after it are closed by cleanup.
	TokenTTL time.Duration
}

// Service coordinates the user and session stores with token issuance.
type Service struct {
	users          UserStore
	sessions       SessionStore
	jwt            TokenGenerator
	hasher         PasswordHasher
	tokenTTL       time.Duration
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPasswordHasher overrides the default bcrypt hasher.
func WithPasswordHasher(h PasswordHasher) Option {
	return func(s *Service) {
		s.hasher = h
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// New wires a Service. Users, sessions and the token generator are required.
func New(users UserStore, sessions SessionStore, jwt TokenGenerator, cfg *Config, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, errors.New("users store is required")
	}
	if sessions == nil {
		return nil, errors.New("sessions store is required")
	}
	if jwt == nil {
		return nil, errors.New("token generator is required")
	}

	svc := &Service{
		users:    users,
		sessions: sessions,
		jwt:      jwt,
		tokenTTL: jwttoken.DefaultTokenTTL,
	}
	if cfg != nil && cfg.TokenTTL > 0 {
		svc.tokenTTL = cfg.TokenTTL
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	if svc.hasher == nil {
		svc.hasher = secrets.NewHasher(secrets.DefaultCost)
	}
	if svc.tracer == nil {
		svc.tracer = otel.Tracer("fithub/auth")
	}
	return svc, nil
}
