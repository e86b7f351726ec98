package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"mucajeyadmin/models"
)

// FileStore keeps the user list in a single JSON document of the form
// {"users":[...]}.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) LoadAll(ctx context.Context) ([]models.User, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []models.User{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read user file: %w", err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse user file %s: %w", s.path, err)
	}

	return models.Sanitize(decodeUsers(doc)), nil
}

func (s *FileStore) SaveAll(ctx context.Context, users []models.User) error {
	doc := struct {
		Users []models.User `json:"users"`
	}{Users: models.Sanitize(users)}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode users: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create user directory: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write user file: %w", err)
	}
	return nil
}

// Ping succeeds when the file is readable or does not exist yet.
func (s *FileStore) Ping(ctx context.Context) error {
	_, err := s.LoadAll(ctx)
	return err
}

// decodeUsers pulls the users array out of an arbitrary JSON document. Fields
// of the wrong type decode as empty strings so the record gets filtered.
func decodeUsers(doc any) []models.User {
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	entries, ok := obj["users"].([]any)
	if !ok {
		return nil
	}

	users := make([]models.User, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		users = append(users, models.User{
			Username:     stringField(m, "username"),
			PasswordHash: stringField(m, "password"),
			Role:         models.ParseRole(m["type"]),
			APIKey:       stringField(m, "apiKey"),
		})
	}
	return users
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
