package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const userColumns = "id, nickname, email, name"

// CreateUser registers a known contributor.
func (s *Store) CreateUser(ctx context.Context, user *User) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (nickname, email, name) VALUES (?, ?, ?)",
		user.Nickname, user.Email, user.Name)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("create user id: %w", err)
	}

	user.ID = id

	return nil
}

// UserByToken resolves an assignee token against known users, matching
// nickname first, then email. An unresolved token is ErrUserNotFound, which
// callers treat as "leave the assignee empty", never as a failure.
func (s *Store) UserByToken(ctx context.Context, token string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE nickname = ? OR email = ? LIMIT 1",
		token, token)

	var user User

	err := row.Scan(&user.ID, &user.Nickname, &user.Email, &user.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &user, nil
}
