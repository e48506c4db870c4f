package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"fithub/internal/audit"
	"fithub/internal/auth/device"
	authHandler "fithub/internal/auth/handler"
	authMetrics "fithub/internal/auth/metrics"
	authService "fithub/internal/auth/service"
	"fithub/internal/auth/workers/cleanup"
	jwttoken "fithub/internal/jwt_token"
	"fithub/internal/platform/config"
	"fithub/internal/platform/health"
	"fithub/internal/platform/logger"
	httptransport "fithub/internal/transport/http"
	authmw "fithub/pkg/platform/middleware/auth"
	"fithub/pkg/platform/middleware/metadata"
	"fithub/pkg/platform/middleware/ratelimit"
	"fithub/pkg/platform/middleware/request"
	"fithub/pkg/secrets"
)

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fithub:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing fithub",
		"addr", cfg.Addr,
		"environment", cfg.Environment,
		"postgres", cfg.Database.URL != "",
		"redis", cfg.Redis.URL != "",
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	healthHandler := health.New(cfg.Environment, log)

	st, err := openStores(ctx, cfg, log, reg, healthHandler)
	if err != nil {
		return err
	}
	defer st.Close()

	auditPublisher := audit.NewPublisher(st.audit,
		audit.WithAsyncBuffer(cfg.AuditBuffer),
		audit.WithPublisherLogger(log),
	)
	defer auditPublisher.Close()

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, cfg.JWTIssuer, cfg.TokenTTL)
	svc, err := authService.New(st.users, st.sessions, jwtService,
		&authService.Config{TokenTTL: jwtService.TokenTTL()},
		authService.WithLogger(log),
		authService.WithAuditPublisher(auditPublisher),
		authService.WithMetrics(authMetrics.New(reg)),
		authService.WithPasswordHasher(secrets.NewHasher(cfg.BcryptCost)),
	)
	if err != nil {
		return fmt.Errorf("init auth service: %w", err)
	}

	cleanupWorker, err := cleanup.New(svc,
		cleanup.WithCleanupInterval(cfg.CleanupInterval),
		cleanup.WithCleanupLogger(log),
	)
	if err != nil {
		return fmt.Errorf("init cleanup worker: %w", err)
	}

	trusted, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("parse trusted proxies: %w", err)
	}
	credLimiter := ratelimit.NewRegistry(cfg.RateLimitRPS, cfg.RateLimitBurst, 10*time.Minute)

	var sessionChecker authmw.SessionChecker
	if cfg.EnforceSessions {
		sessionChecker = svc
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Auth:         authHandler.New(svc, log),
		Health:       healthHandler,
		JWT:          jwttoken.NewJWTServiceAdapter(jwtService),
		Sessions:     sessionChecker,
		Metadata:     metadata.NewMiddleware(&metadata.Config{TrustedProxies: trusted}),
		DeviceName:   device.DisplayName,
		CredLimiter:  credLimiter,
		Latency:      request.NewMetrics(reg),
		Metrics:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Timeout:      cfg.RequestTimeout,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}, log)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return ignoreCanceled(cleanupWorker.Start(gctx))
	})
	g.Go(func() error {
		return sweepLimiters(gctx, credLimiter, log)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

// sweepLimiters drops idle per-IP limiters so the registry stays bounded.
func sweepLimiters(ctx context.Context, reg *ratelimit.Registry, log *slog.Logger) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := reg.Sweep(); n > 0 {
				log.Debug("swept idle rate limiters", "removed", n, "remaining", reg.Len())
			}
		}
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
