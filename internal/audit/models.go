// Package audit records the security-relevant history of each account.
package audit

import (
	"time"

	id "fithub/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	UserID    id.UserID // nil for failures where the account is unknown
	SessionID id.SessionID
	Action    string
	Reason    string
	IPAddress string
	RequestID string
}

type AuditEvent string

const (
	EventUserRegistered  AuditEvent = "user_registered"
	EventSessionStarted  AuditEvent = "session_started"
	EventSessionEnded    AuditEvent = "session_ended"
	EventAuthFailed      AuditEvent = "auth_failed"
	EventSessionsExpired AuditEvent = "sessions_expired"
)
