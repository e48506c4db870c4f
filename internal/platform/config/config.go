// Package config loads the server configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"fithub/pkg/platform/middleware/metadata"
)

// DevSigningKey is accepted only when Environment is "dev".
const DevSigningKey = "dev-secret-key-change-in-production"

// Server captures HTTP server level configuration.
type Server struct {
	Environment string `env:"FITHUB_ENV" envDefault:"dev"`
	Addr        string `env:"FITHUB_ADDR" envDefault:":8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSigningKey string        `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	JWTIssuer     string        `env:"JWT_ISSUER" envDefault:"fithub"`
	TokenTTL      time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	BcryptCost    int           `env:"BCRYPT_COST" envDefault:"10"`

	// EnforceSessions rejects tokens whose session has been logged out.
	EnforceSessions bool `env:"ENFORCE_SESSIONS" envDefault:"true"`

	Database Database
	Redis    Redis

	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	RateLimitRPS   float64 `env:"AUTH_RATE_LIMIT_RPS" envDefault:"1"`
	RateLimitBurst int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`
	AuditBuffer     int           `env:"AUDIT_BUFFER" envDefault:"256"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	MaxBodyBytes    int64         `env:"MAX_BODY_BYTES" envDefault:"1048576"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Database selects PostgreSQL storage when URL is set.
type Database struct {
	URL             string        `env:"DATABASE_URL"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// Redis selects the Redis session store when URL is set. It takes precedence
// over PostgreSQL for sessions only.
type Redis struct {
	URL              string        `env:"REDIS_URL"`
	PoolSize         int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	SessionRetention time.Duration `env:"REDIS_SESSION_RETENTION" envDefault:"2160h"`
}

// IsDev reports whether the server runs in local development mode.
func (c *Server) IsDev() bool {
	return c.Environment == "dev"
}

// Load reads an optional .env file, then parses and validates the environment.
// Variables already set in the process win over the file.
func Load(envFiles ...string) (*Server, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", file, err)
		}
	}

	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run safely with.
func (c *Server) Validate() error {
	var errs []error
	if c.JWTSigningKey == "" {
		errs = append(errs, errors.New("JWT_SIGNING_KEY is required"))
	} else if c.JWTSigningKey == DevSigningKey && !c.IsDev() {
		errs = append(errs, fmt.Errorf("JWT_SIGNING_KEY must be changed outside dev (FITHUB_ENV=%s)", c.Environment))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.CleanupInterval <= 0 {
		errs = append(errs, errors.New("SESSION_CLEANUP_INTERVAL must be positive"))
	}
	if c.Redis.URL != "" && c.Redis.SessionRetention < c.TokenTTL {
		errs = append(errs, errors.New("REDIS_SESSION_RETENTION must not be shorter than TOKEN_TTL"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST %d out of range 4..31", c.BcryptCost))
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_LIMIT_RPS and AUTH_RATE_LIMIT_BURST must be positive"))
	}
	if _, err := metadata.ParseTrustedProxies(c.TrustedProxies); err != nil {
		errs = append(errs, fmt.Errorf("TRUSTED_PROXIES: %w", err))
	}
	return errors.Join(errs...)
}
