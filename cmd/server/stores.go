package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"fithub/internal/audit"
	authService "fithub/internal/auth/service"
	sessionStore "fithub/internal/auth/store/session"
	userStore "fithub/internal/auth/store/user"
	"fithub/internal/platform/config"
	"fithub/internal/platform/database"
	"fithub/internal/platform/health"
	"fithub/internal/platform/redis"
	"fithub/migrations"
)

// stores holds the storage backends chosen from configuration.
type stores struct {
	users    authService.UserStore
	sessions authService.SessionStore
	audit    audit.Store

	pool  *database.Pool
	redis *redis.Client
}

// openStores selects PostgreSQL when DATABASE_URL is set and in-memory
// storage otherwise. REDIS_URL moves sessions to Redis either way.
func openStores(ctx context.Context, cfg *config.Server, log *slog.Logger, reg prometheus.Registerer, hc *health.Handler) (*stores, error) {
	st := &stores{
		users:    userStore.New(),
		sessions: sessionStore.New(),
		audit:    audit.NewInMemoryStore(),
	}

	pool, err := database.New(ctx, database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if pool != nil {
		st.pool = pool
		applied, err := database.Migrate(ctx, pool.DB(), migrations.FS, log)
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info("database ready", "migrations_applied", len(applied))

		st.users = userStore.NewPostgres(pool.DB())
		st.sessions = sessionStore.NewPostgres(pool.DB())
		st.audit = audit.NewPostgresStore(pool.DB())
		if err := pool.RegisterMetrics(reg); err != nil {
			log.Warn("failed to register database metrics", "error", err)
		}
		hc.RegisterCheck("database", pool.Health)
	} else {
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	rc, err := redis.New(ctx, redis.Config{
		URL:      cfg.Redis.URL,
		PoolSize: cfg.Redis.PoolSize,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if rc != nil {
		st.redis = rc
		st.sessions = sessionStore.NewRedis(rc.Client, cfg.Redis.SessionRetention)
		if err := rc.RegisterMetrics(reg); err != nil {
			log.Warn("failed to register redis metrics", "error", err)
		}
		hc.RegisterCheck("redis", rc.Health)
		log.Info("redis session store enabled")
	}

	return st, nil
}

func (s *stores) Close() {
	var errs []error
	if s.redis != nil {
		errs = append(errs, s.redis.Close())
	}
	if s.pool != nil {
		errs = append(errs, s.pool.Close())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Error("failed to close stores", "error", err)
	}
}
