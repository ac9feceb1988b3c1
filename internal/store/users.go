package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/smsbridge/smsbridge/internal/domain"
)

// SQLiteUserStore implements identity.UserStore backed by SQLite.
type SQLiteUserStore struct {
	db *DB
}

// NewSQLiteUserStore creates a user store using the given database.
func NewSQLiteUserStore(db *DB) *SQLiteUserStore {
	return &SQLiteUserStore{db: db}
}

// GetUser returns the user stored under key, or nil when absent.
func (s *SQLiteUserStore) GetUser(ctx context.Context, key string) (*domain.User, error) {
	var u domain.User
	err := s.db.sql.QueryRowContext(ctx,
		`SELECT id, first_name, last_name, profile_pic, platform, number
		 FROM users WHERE id = ?`, key,
	).Scan(&u.ID, &u.FirstName, &u.LastName, &u.ProfilePic, &u.Platform, &u.Number)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user %q: %w", key, err)
	}
	return &u, nil
}

// SaveUser persists a user under key. The insert is a no-op when the key
// already exists, so concurrent first-contact creations collapse into a
// single stored row.
func (s *SQLiteUserStore) SaveUser(ctx context.Context, key string, u domain.User) error {
	_, err := s.db.sql.ExecContext(ctx,
		`INSERT INTO users (id, first_name, last_name, profile_pic, platform, number)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		key, u.FirstName, u.LastName, u.ProfilePic, u.Platform, u.Number,
	)
	if err != nil {
		return fmt.Errorf("saving user %q: %w", key, err)
	}
	return nil
}
