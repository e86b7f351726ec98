package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"mucajeyadmin/models"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	position INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	api_key TEXT NOT NULL DEFAULT ''
);
`

// SQLiteStore keeps the user list in a SQLite table. Rows are read back in
// insertion order and SaveAll swaps the whole table in one transaction.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createUsersTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create users table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) LoadAll(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT username, password_hash, role, api_key FROM users ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var role string
		if err := rows.Scan(&u.Username, &u.PasswordHash, &role, &u.APIKey); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Role = models.ParseRole(role)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return models.Sanitize(users), nil
}

func (s *SQLiteStore) SaveAll(ctx context.Context, users []models.User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM users"); err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	for _, u := range models.Sanitize(users) {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO users (username, password_hash, role, api_key) VALUES (?, ?, ?, ?)",
			u.Username, u.PasswordHash, string(u.Role), u.APIKey)
		if err != nil {
			return fmt.Errorf("insert user %s: %w", u.Username, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
