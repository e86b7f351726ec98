package store

import (
	"context"
	"fmt"

	"mucajeyadmin/models"
)

// Sealer protects API keys at rest.
type Sealer interface {
	Seal(plain string) (string, error)
	Open(stored string) (string, error)
}

// Sealed wraps a Store so that API keys are sealed on write and opened on read.
type Sealed struct {
	Store
	sealer Sealer
}

func NewSealed(inner Store, sealer Sealer) *Sealed {
	return &Sealed{Store: inner, sealer: sealer}
}

func (s *Sealed) LoadAll(ctx context.Context) ([]models.User, error) {
	users, err := s.Store.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range users {
		if users[i].APIKey == "" {
			continue
		}
		key, err := s.sealer.Open(users[i].APIKey)
		if err != nil {
			return nil, fmt.Errorf("open api key of %s: %w", users[i].Username, err)
		}
		users[i].APIKey = key
	}
	return users, nil
}

func (s *Sealed) SaveAll(ctx context.Context, users []models.User) error {
	sealed := make([]models.User, len(users))
	for i, u := range users {
		if u.APIKey != "" {
			key, err := s.sealer.Seal(u.APIKey)
			if err != nil {
				return fmt.Errorf("seal api key of %s: %w", u.Username, err)
			}
			u.APIKey = key
		}
		sealed[i] = u
	}
	return s.Store.SaveAll(ctx, sealed)
}

func (s *Sealed) Ping(ctx context.Context) error {
	if p, ok := s.Store.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}
