package service

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"fithub/internal/audit"
	id "fithub/pkg/domain"
	"fithub/pkg/platform/privacy"
	"fithub/pkg/requestcontext"
)

// Observability helpers for logging, auditing, tracing and metrics.

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, userID id.UserID, sessionID id.SessionID, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	clientIP := requestcontext.ClientIP(ctx)
	args := append(attributes,
		"event", string(event),
		"log_type", "audit",
		"user_id", userID.String(),
		"ip_prefix", privacy.AnonymizeIP(clientIP),
	)
	if !sessionID.IsNil() {
		args = append(args, "session_id", sessionID.String())
	}
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, string(event), args...)

	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		UserID:    userID,
		SessionID: sessionID,
		Action:    string(event),
		IPAddress: clientIP,
		RequestID: requestID,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event", "error", err)
	}
}

// authFailure logs at Warn, or Error when the cause is infrastructure, and
// records the failure in the audit trail and metrics.
func (s *Service) authFailure(ctx context.Context, reason string, isError bool, userID id.UserID, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	args := append(attributes,
		"event", string(audit.EventAuthFailed),
		"reason", reason,
		"log_type", "standard",
	)
	if !userID.IsNil() {
		args = append(args, "user_id", userID.String())
	}
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	if isError {
		s.logger.ErrorContext(ctx, string(audit.EventAuthFailed), args...)
	} else {
		s.logger.WarnContext(ctx, string(audit.EventAuthFailed), args...)
	}

	if s.metrics != nil {
		s.metrics.IncrementAuthFailures(reason)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		UserID:    userID,
		Action:    string(audit.EventAuthFailed),
		Reason:    reason,
		IPAddress: requestcontext.ClientIP(ctx),
		RequestID: requestID,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit auth failure audit event", "error", err)
	}
}

func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (s *Service) incrementUsersRegistered() {
	if s.metrics != nil {
		s.metrics.IncrementUsersRegistered()
	}
}

func (s *Service) recordSessionOpened() {
	if s.metrics != nil {
		s.metrics.RecordSessionOpened()
	}
}

func (s *Service) recordLogin(durationMs float64) {
	if s.metrics != nil {
		s.metrics.RecordLogin(durationMs)
	}
}

func (s *Service) recordLogout(durationMinutes int) {
	if s.metrics != nil {
		s.metrics.RecordLogout(durationMinutes)
	}
}

func (s *Service) recordSessionsExpired(n int) {
	if s.metrics != nil && n > 0 {
		s.metrics.RecordSessionsExpired(n)
	}
}
