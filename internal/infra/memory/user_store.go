package memory

import (
	"context"
	"sync"

	"quiz-forge-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserRepository.
type UserStore struct {
	mu         sync.RWMutex
	byID       map[string]domain.User
	byUsername map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:       make(map[string]domain.User),
		byUsername: make(map[string]string),
	}
}

func (s *UserStore) CreateUser(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byUsername[u.Username]; taken {
		return domain.ErrUsernameTaken
	}
	s.byID[u.ID] = u
	s.byUsername[u.Username] = u.ID
	return nil
}

func (s *UserStore) GetUser(_ context.Context, userID string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *UserStore) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	s.mu.RLock()
	id, ok := s.byUsername[username]
	s.mu.RUnlock()
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return s.GetUser(ctx, id)
}
