package user

import (
	"context"
	"fmt"
	"sync"

	"fithub/internal/auth/models"
	id "fithub/pkg/domain"
	"fithub/pkg/platform/sentinel"
)

// InMemoryUserStore stores users in memory for tests and single-node dev.
// Emails are expected to be normalized by the caller.
type InMemoryUserStore struct {
	mu       sync.RWMutex
	users    map[id.UserID]*models.User
	byEmail  map[string]id.UserID
	publicID map[string]id.UserID
}

// New constructs an empty in-memory user store.
func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		users:    make(map[id.UserID]*models.User),
		byEmail:  make(map[string]id.UserID),
		publicID: make(map[string]id.UserID),
	}
}

func (s *InMemoryUserStore) Create(_ context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[user.Email]; taken {
		return ErrEmailTaken
	}
	if _, taken := s.publicID[user.PublicID]; taken {
		return ErrPublicIDTaken
	}
	if _, exists := s.users[user.ID]; exists {
		return fmt.Errorf("user %s: %w", user.ID, sentinel.ErrAlreadyUsed)
	}
	s.users[user.ID] = cloneUser(user)
	s.byEmail[user.Email] = user.ID
	s.publicID[user.PublicID] = user.ID
	return nil
}

func (s *InMemoryUserStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	delete(s.users, userID)
	delete(s.byEmail, user.Email)
	delete(s.publicID, user.PublicID)
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		return cloneUser(user), nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if uid, ok := s.byEmail[email]; ok {
		return cloneUser(s.users[uid]), nil
	}
	return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
}

func (s *InMemoryUserStore) ExistsByPublicID(_ context.Context, publicID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.publicID[publicID]
	return ok, nil
}
