package audit

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	id "fithub/pkg/domain"
)

// PostgresStore appends audit events to the audit_events table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	const query = `
		INSERT INTO audit_events (id, occurred_at, user_id, session_id, action, reason, ip_address, request_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query,
		uuid.New(),
		event.Timestamp,
		nullableUUID(uuid.UUID(event.UserID)),
		nullableUUID(uuid.UUID(event.SessionID)),
		event.Action,
		event.Reason,
		event.IPAddress,
		event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByUser returns the user's events oldest first.
func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]Event, error) {
	const query = `
		SELECT occurred_at, user_id, session_id, action, reason, ip_address, request_id
		FROM audit_events
		WHERE user_id = $1
		ORDER BY occurred_at ASC`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e         Event
			uid, sid uuid.NullUUID
		)
		if err := rows.Scan(&e.Timestamp, &uid, &sid, &e.Action, &e.Reason, &e.IPAddress, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.UserID = id.UserID(uid.UUID)
		e.SessionID = id.SessionID(sid.UUID)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit events: %w", err)
	}
	return events, nil
}

func nullableUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}
