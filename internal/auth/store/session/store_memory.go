package session

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"fithub/internal/auth/models"
	id "fithub/pkg/domain"
	"fithub/pkg/platform/sentinel"
)

// InMemorySessionStore stores sessions in memory for tests and single-node dev.
// Callers receive copies, so mutating a returned session never changes the store.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*models.Session
	byUser   map[id.UserID][]id.SessionID
}

// New constructs an empty in-memory session store.
func New() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[id.SessionID]*models.Session),
		byUser:   make(map[id.UserID][]id.SessionID),
	}
}

func (s *InMemorySessionStore) Create(_ context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrAlreadyUsed)
	}
	s.sessions[session.ID] = cloneSession(session)
	s.byUser[session.UserID] = append(s.byUser[session.UserID], session.ID)
	return nil
}

func (s *InMemorySessionStore) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions[sessionID]; ok {
		return cloneSession(session), nil
	}
	return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
}

// ListByUser returns up to limit sessions, newest login first.
func (s *InMemorySessionStore) ListByUser(_ context.Context, userID id.UserID, limit int) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byUser[userID]
	sessions := make([]*models.Session, 0, len(ids))
	for _, sid := range ids {
		sessions = append(sessions, cloneSession(s.sessions[sid]))
	}
	slices.SortFunc(sessions, func(a, b *models.Session) int {
		return b.LoginTime.Compare(a.LoginTime)
	})
	if n := clampLimit(limit); len(sessions) > n {
		sessions = sessions[:n]
	}
	return sessions, nil
}

// End closes an active session at the given time under the store lock.
func (s *InMemorySessionStore) End(_ context.Context, sessionID id.SessionID, at time.Time) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if !session.End(at) {
		return nil, ErrSessionEnded
	}
	return cloneSession(session), nil
}

// CloseStale ends every session still open whose login is before cutoff,
// recording logout as login + ttl. Returns the number of sessions closed.
func (s *InMemorySessionStore) CloseStale(_ context.Context, cutoff time.Time, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	closed := 0
	for _, session := range s.sessions {
		if session.IsActive() && session.LoginTime.Before(cutoff) {
			if session.End(staleLogout(session, ttl)) {
				closed++
			}
		}
	}
	return closed, nil
}
