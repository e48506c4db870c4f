package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fithub/internal/auth/models"
	"fithub/internal/platform/database"
	id "fithub/pkg/domain"
	"fithub/pkg/platform/sentinel"
)

const sessionColumns = `id, user_id, login_time, logout_time, session_duration, device_info, ip_address, created_at, updated_at`

// PostgresStore persists sessions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed session store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var (
		sid, uid   uuid.UUID
		logoutTime sql.NullTime
		duration   sql.NullInt32
		session    models.Session
	)
	if err := row.Scan(&sid, &uid, &session.LoginTime, &logoutTime, &duration,
		&session.DeviceInfo, &session.IPAddress, &session.CreatedAt, &session.UpdatedAt); err != nil {
		return nil, err
	}
	session.ID = id.SessionID(sid)
	session.UserID = id.UserID(uid)
	if logoutTime.Valid {
		t := logoutTime.Time
		session.LogoutTime = &t
	}
	if duration.Valid {
		d := int(duration.Int32)
		session.DurationMinutes = &d
	}
	return &session, nil
}

func (s *PostgresStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	const query = `INSERT INTO sessions (` + sessionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(session.ID),
		uuid.UUID(session.UserID),
		session.LoginTime,
		nullTime(session.LogoutTime),
		nullInt(session.DurationMinutes),
		session.DeviceInfo,
		session.IPAddress,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	session, err := scanSession(s.db.QueryRowContext(ctx, query, uuid.UUID(sessionID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	return session, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE user_id = $1 ORDER BY login_time DESC LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list sessions by user: %w", err)
	}
	defer rows.Close()

	sessions := make([]*models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// End closes an active session. The row is locked for the read-validate-write
// so concurrent logouts of one session produce exactly one success.
func (s *PostgresStore) End(ctx context.Context, sessionID id.SessionID, at time.Time) (*models.Session, error) {
	return s.Execute(ctx, sessionID,
		func(session *models.Session) error {
			if !session.IsActive() {
				return ErrSessionEnded
			}
			return nil
		},
		func(session *models.Session) {
			session.End(at)
		},
	)
}

// Execute atomically validates and mutates a session under a row lock.
func (s *PostgresStore) Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin session execute tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is a no-op
	}()

	const selectQuery = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 FOR UPDATE`
	session, err := scanSession(tx.QueryRowContext(ctx, selectQuery, uuid.UUID(sessionID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find session for execute: %w", err)
	}
	if err := validate(session); err != nil {
		return nil, err
	}

	mutate(session)

	const updateQuery = `
		UPDATE sessions
		SET logout_time = $2, session_duration = $3, device_info = $4, ip_address = $5, updated_at = $6
		WHERE id = $1`
	if _, err := tx.ExecContext(ctx, updateQuery,
		uuid.UUID(session.ID),
		nullTime(session.LogoutTime),
		nullInt(session.DurationMinutes),
		session.DeviceInfo,
		session.IPAddress,
		session.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit session execute: %w", err)
	}
	return session, nil
}

// CloseStale ends open sessions whose login is before cutoff in one statement.
func (s *PostgresStore) CloseStale(ctx context.Context, cutoff time.Time, ttl time.Duration) (int, error) {
	const query = `
		UPDATE sessions
		SET logout_time = login_time + make_interval(secs => $2),
		    session_duration = $3,
		    updated_at = login_time + make_interval(secs => $2)
		WHERE logout_time IS NULL AND login_time < $1`

	res, err := s.db.ExecContext(ctx, query, cutoff, ttl.Seconds(), models.RoundMinutes(ttl))
	if err != nil {
		return 0, fmt.Errorf("close stale sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("close stale sessions rows: %w", err)
	}
	return int(n), nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullInt(v *int) sql.NullInt32 {
	if v == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*v), Valid: true}
}
