package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (core.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	id, err := s.insert(ctx, `INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, core.NewValidation("email", "a user with this email already exists")
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return s.GetUser(ctx, id)
}

func (s *Store) GetUser(ctx context.Context, id int64) (core.User, error) {
	return s.scanUser(s.queryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE id = ?`, id), id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	return s.scanUser(s.queryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email))), 0)
}

func (s *Store) scanUser(row *sql.Row, id int64) (core.User, error) {
	var u core.User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, timeColumn{&u.CreatedAt})
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, core.NewNotFound("user", id)
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// DeleteUser removes the user and, through cascading keys, everything they own.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.exec(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return affectedOrNotFound(res, core.NewNotFound("user", id))
}
