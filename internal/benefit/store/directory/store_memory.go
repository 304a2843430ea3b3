// Package directory resolves operator logins to user ids.
package directory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"saldo/internal/benefit/models"
	"saldo/internal/sentinel"
	id "saldo/pkg/domain"
)

// InMemoryStore maps logins to users.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]models.User
}

// NewInMemory creates an empty in-memory directory.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{users: make(map[string]models.User)}
}

// Add registers user, assigning an id when missing. Logins are unique.
func (s *InMemoryStore) Add(_ context.Context, user models.User) (models.User, error) {
	user.Login = strings.TrimSpace(user.Login)
	if user.Login == "" {
		return models.User{}, fmt.Errorf("login is required: %w", sentinel.ErrInvalidInput)
	}
	if user.ID.IsNil() {
		user.ID = id.NewUserID()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.Login]; exists {
		return models.User{}, fmt.Errorf("login %q already registered: %w", user.Login, sentinel.ErrInvalidInput)
	}
	s.users[user.Login] = user
	return user, nil
}

// ResolveUser finds the user for login.
func (s *InMemoryStore) ResolveUser(_ context.Context, login string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[strings.TrimSpace(login)]
	if !ok {
		return models.User{}, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
	}
	return user, nil
}
