package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"fithub/internal/auth/models"
	id "fithub/pkg/domain"
	"fithub/pkg/platform/sentinel"
)

const (
	sessionKeyPrefix     = "session:"
	userSessionKeyPrefix = "user_sessions:"

	// openSessionsKey is a sorted set of active session ids scored by login time.
	openSessionsKey = "sessions:open"

	// DefaultRedisRetention is how long a session record outlives its last write.
	DefaultRedisRetention = 90 * 24 * time.Hour
)

type sessionJSON struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	LoginTime       int64  `json:"login_time"`            // Unix nano
	LogoutTime      *int64 `json:"logout_time,omitempty"` // Unix nano
	DurationMinutes *int   `json:"session_duration,omitempty"`
	DeviceInfo      string `json:"device_info"`
	IPAddress       string `json:"ip_address"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

func sessionToJSON(s *models.Session) *sessionJSON {
	j := &sessionJSON{
		ID:              s.ID.String(),
		UserID:          s.UserID.String(),
		LoginTime:       s.LoginTime.UnixNano(),
		DurationMinutes: s.DurationMinutes,
		DeviceInfo:      s.DeviceInfo,
		IPAddress:       s.IPAddress,
		CreatedAt:       s.CreatedAt.UnixNano(),
		UpdatedAt:       s.UpdatedAt.UnixNano(),
	}
	if s.LogoutTime != nil {
		ts := s.LogoutTime.UnixNano()
		j.LogoutTime = &ts
	}
	return j
}

func sessionFromJSON(j *sessionJSON) (*models.Session, error) {
	sessionID, err := uuid.Parse(j.ID)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	userID, err := uuid.Parse(j.UserID)
	if err != nil {
		return nil, fmt.Errorf("parse user id: %w", err)
	}
	s := &models.Session{
		ID:              id.SessionID(sessionID),
		UserID:          id.UserID(userID),
		LoginTime:       time.Unix(0, j.LoginTime).UTC(),
		DurationMinutes: j.DurationMinutes,
		DeviceInfo:      j.DeviceInfo,
		IPAddress:       j.IPAddress,
		CreatedAt:       time.Unix(0, j.CreatedAt).UTC(),
		UpdatedAt:       time.Unix(0, j.UpdatedAt).UTC(),
	}
	if j.LogoutTime != nil {
		t := time.Unix(0, *j.LogoutTime).UTC()
		s.LogoutTime = &t
	}
	return s, nil
}

func decodeSession(data string) (*models.Session, error) {
	var j sessionJSON
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return sessionFromJSON(&j)
}

// RedisStore persists sessions in Redis so several instances share one view.
// Each session is a JSON string; per-user history and the open set are sorted
// sets scored by login time.
type RedisStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewRedis constructs a Redis-backed session store. A non-positive retention
// uses DefaultRedisRetention.
func NewRedis(client *redis.Client, retention time.Duration) *RedisStore {
	if retention <= 0 {
		retention = DefaultRedisRetention
	}
	return &RedisStore{client: client, retention: retention}
}

func sessionKey(sessionID id.SessionID) string {
	return sessionKeyPrefix + sessionID.String()
}

func userSessionsKey(userID id.UserID) string {
	return userSessionKeyPrefix + userID.String()
}

func loginScore(s *models.Session) float64 {
	return float64(s.LoginTime.UnixNano())
}

func (s *RedisStore) Create(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	data, err := json.Marshal(sessionToJSON(session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	key := sessionKey(session.ID)
	created, err := s.client.SetNX(ctx, key, data, s.retention).Result()
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	if !created {
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrAlreadyUsed)
	}

	member := redis.Z{Score: loginScore(session), Member: session.ID.String()}
	userKey := userSessionsKey(session.UserID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, userKey, member)
		pipe.Expire(ctx, userKey, s.retention)
		if session.IsActive() {
			pipe.ZAdd(ctx, openSessionsKey, member)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("index session: %w", err)
	}
	return nil
}

func (s *RedisStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find session by id: %w", err)
	}
	return decodeSession(data)
}

// ListByUser returns up to limit sessions, newest login first. Index entries
// whose record has expired are pruned.
func (s *RedisStore) ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*models.Session, error) {
	userKey := userSessionsKey(userID)
	ids, err := s.client.ZRevRange(ctx, userKey, 0, int64(clampLimit(limit)-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("list session ids by user: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Session{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, sid := range ids {
		cmds[i] = pipe.Get(ctx, sessionKeyPrefix+sid)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get sessions: %w", err)
	}

	sessions := make([]*models.Session, 0, len(ids))
	missing := make([]any, 0)
	for i, cmd := range cmds {
		data, err := cmd.Result()
		if errors.Is(err, redis.Nil) {
			missing = append(missing, ids[i])
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get session %s: %w", ids[i], err)
		}
		session, err := decodeSession(data)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}

	if len(missing) > 0 {
		if err := s.client.ZRem(ctx, userKey, missing...).Err(); err != nil {
			return nil, fmt.Errorf("prune session index: %w", err)
		}
	}
	return sessions, nil
}

// End closes an active session under WATCH so concurrent logouts produce
// exactly one success.
func (s *RedisStore) End(ctx context.Context, sessionID id.SessionID, at time.Time) (*models.Session, error) {
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

// Execute atomically validates and mutates a session under optimistic lock.
// A transaction aborted by a concurrent writer is retried, so the loser of an
// End race re-reads the ended session and fails validation.
func (s *RedisStore) Execute(ctx context.Context, sessionID id.SessionID, validate func(*models.Session) error, mutate func(*models.Session)) (*models.Session, error) {
	key := sessionKey(sessionID)
	var result *models.Session

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get session for execute: %w", err)
		}
		session, err := decodeSession(data)
		if err != nil {
			return err
		}
		if err := validate(session); err != nil {
			return err
		}

		mutate(session)

		newData, err := json.Marshal(sessionToJSON(session))
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newData, s.retention)
			if !session.IsActive() {
				pipe.ZRem(ctx, openSessionsKey, session.ID.String())
			}
			return nil
		})
		if err != nil {
			return err
		}
		result = session
		return nil
	}

	const maxAttempts = 3
	var err error
	for range maxAttempts {
		err = s.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CloseStale ends open sessions whose login is before cutoff, recording
// logout as login + ttl.
func (s *RedisStore) CloseStale(ctx context.Context, cutoff time.Time, ttl time.Duration) (int, error) {
	ids, err := s.client.ZRangeByScore(ctx, openSessionsKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(cutoff.UnixNano(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("list stale sessions: %w", err)
	}

	closed := 0
	for _, raw := range ids {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			_ = s.client.ZRem(ctx, openSessionsKey, raw).Err()
			continue
		}
		sid := id.SessionID(parsed)
		_, err = s.Execute(ctx, sid,
			func(session *models.Session) error {
				if !session.IsActive() {
					return ErrSessionEnded
				}
				return nil
			},
			func(session *models.Session) {
				session.End(staleLogout(session, ttl))
			},
		)
		switch {
		case err == nil:
			closed++
		case errors.Is(err, sentinel.ErrNotFound), errors.Is(err, ErrSessionEnded):
			if remErr := s.client.ZRem(ctx, openSessionsKey, raw).Err(); remErr != nil {
				return closed, fmt.Errorf("prune open set: %w", remErr)
			}
		default:
			return closed, fmt.Errorf("close stale session %s: %w", raw, err)
		}
	}
	return closed, nil
}
