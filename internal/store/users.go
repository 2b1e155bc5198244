package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/faucetdb/codespace/internal/model"
)

// ---------------------------------------------------------------------------
// User CRUD
// ---------------------------------------------------------------------------

// CreateUser inserts a new user. ID, CreatedAt and UpdatedAt are filled in
// when empty.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	ts := now()
	u.CreatedAt = ts
	u.UpdatedAt = ts

	const q = `INSERT INTO users
		(id, email, first_name, last_name, password_hash, created_at, updated_at)
		VALUES
		(:id, :email, :first_name, :last_name, :password_hash, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, u); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user %q: %w", u.Email, ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := s.db.GetContext(ctx, &u, s.q("SELECT * FROM users WHERE id = ?"), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetUserByEmail returns a user by email address.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := s.db.GetContext(ctx, &u, s.q("SELECT * FROM users WHERE email = ?"), email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return &u, nil
}

// ListUsers returns all users ordered by email.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY email"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// UpdateUser writes the mutable profile fields and bumps UpdatedAt.
func (s *Store) UpdateUser(ctx context.Context, u *model.User) error {
	u.UpdatedAt = now()

	const q = `UPDATE users SET
		email = :email, first_name = :first_name, last_name = :last_name,
		password_hash = :password_hash, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, u)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update user %q: %w", u.Email, ErrConflict)
		}
		return fmt.Errorf("update user: %w", err)
	}
	return s.checkAffected(ctx, result, "users", u.ID)
}

// DeleteUser removes a user. Their codespaces are removed by cascade.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.q("DELETE FROM users WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// checkAffected turns a zero-row UPDATE into ErrNotFound. MySQL reports zero
// affected rows when nothing changed, so existence is confirmed separately.
func (s *Store) checkAffected(ctx context.Context, result sql.Result, table, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	var count int
	if err := s.db.GetContext(ctx, &count, s.q("SELECT COUNT(*) FROM "+table+" WHERE id = ?"), id); err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
