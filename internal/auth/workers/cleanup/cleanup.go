package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionExpirer closes sessions that outlived their token.
type SessionExpirer interface {
	ExpireStaleSessions(ctx context.Context, now time.Time) (int, error)
}

// CleanupResult summarizes a cleanup run.
type CleanupResult struct {
	ClosedSessions int
	Duration       time.Duration
}

// CleanupService periodically closes sessions that were never logged out.
type CleanupService struct {
	sessions SessionExpirer
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// CleanupOption configures CleanupService.
type CleanupOption func(*CleanupService)

// WithCleanupInterval overrides the cleanup interval when greater than zero.
func WithCleanupInterval(interval time.Duration) CleanupOption {
	return func(s *CleanupService) {
		if interval > 0 {
			s.interval = interval
		}
	}
}

// WithCleanupLogger overrides the logger used for cleanup errors.
func WithCleanupLogger(logger *slog.Logger) CleanupOption {
	return func(s *CleanupService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a CleanupService with options applied.
func New(sessions SessionExpirer, opts ...CleanupOption) (*CleanupService, error) {
	if sessions == nil {
		return nil, fmt.Errorf("session expirer is required")
	}
	svc := &CleanupService{
		sessions: sessions,
		interval: 5 * time.Minute,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc, nil
}

// Start runs cleanup periodically until ctx is cancelled. Failed runs are
// logged and retried on the next tick.
func (s *CleanupService) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			res, err := s.RunOnce(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "session cleanup failed", "error", err)
				continue
			}
			if res.ClosedSessions > 0 {
				s.logger.InfoContext(ctx, "session cleanup completed",
					"closed_sessions", res.ClosedSessions,
					"duration_ms", res.Duration.Milliseconds(),
				)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// RunOnce performs a single cleanup pass.
func (s *CleanupService) RunOnce(ctx context.Context) (CleanupResult, error) {
	start := s.now()
	closed, err := s.sessions.ExpireStaleSessions(ctx, start)
	res := CleanupResult{ClosedSessions: closed, Duration: s.now().Sub(start)}
	if err != nil {
		return res, fmt.Errorf("expire stale sessions: %w", err)
	}
	return res, nil
}
