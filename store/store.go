// Package store persists the user list. Every implementation reads and writes
// the whole list at once; there is no locking and the last writer wins.
package store

import (
	"context"
	"strings"

	"mucajeyadmin/models"
)

// Store is the handle the gateway works against.
type Store interface {
	// LoadAll returns the sanitized user list. A store that has never been
	// written returns an empty list.
	LoadAll(ctx context.Context) ([]models.User, error)
	// SaveAll sanitizes users and replaces the stored list with them.
	SaveAll(ctx context.Context, users []models.User) error
}

// Pinger is implemented by stores that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// FindByUsername returns the index of the record whose username equals name
// after trimming.
func FindByUsername(users []models.User, name string) (int, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1, false
	}
	for i, u := range users {
		if u.Username == name {
			return i, true
		}
	}
	return -1, false
}
