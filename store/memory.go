package store

import (
	"context"
	"sync"

	"mucajeyadmin/models"
)

// MemoryStore is a process-local Store used by tests.
type MemoryStore struct {
	mu    sync.Mutex
	users []models.User
	saves int
}

func NewMemoryStore(users ...models.User) *MemoryStore {
	return &MemoryStore{users: models.Sanitize(users)}
}

func (s *MemoryStore) LoadAll(ctx context.Context) ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, len(s.users))
	copy(out, s.users)
	return out, nil
}

func (s *MemoryStore) SaveAll(ctx context.Context, users []models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = models.Sanitize(users)
	s.saves++
	return nil
}

// Saves reports how many times SaveAll has been called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
