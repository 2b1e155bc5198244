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
// CodeSpace CRUD
// ---------------------------------------------------------------------------

// CreateCodeSpace inserts a new codespace row. ID is generated when empty;
// CreatedAt is kept when the caller already set it.
func (s *Store) CreateCodeSpace(ctx context.Context, cs *model.CodeSpace) error {
	if cs.ID == "" {
		cs.ID = uuid.NewString()
	}
	ts := now()
	if cs.CreatedAt.IsZero() {
		cs.CreatedAt = ts
	}
	cs.UpdatedAt = ts

	const q = `INSERT INTO codespaces
		(id, owner_id, name, code, created_at, updated_at)
		VALUES
		(:id, :owner_id, :name, :code, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, cs); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert codespace %s: %w", cs.ID, ErrConflict)
		}
		return fmt.Errorf("insert codespace: %w", err)
	}
	return nil
}

// GetCodeSpace returns a codespace row by ID.
func (s *Store) GetCodeSpace(ctx context.Context, id string) (*model.CodeSpace, error) {
	if _, err := uuid.Parse(id); err != nil {
		// Not a key this table can hold; Postgres would reject the cast.
		return nil, ErrNotFound
	}
	var cs model.CodeSpace
	if err := s.db.GetContext(ctx, &cs, s.q("SELECT * FROM codespaces WHERE id = ?"), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get codespace: %w", err)
	}
	return &cs, nil
}

// UpdateCodeSpace persists name and code and bumps UpdatedAt.
func (s *Store) UpdateCodeSpace(ctx context.Context, cs *model.CodeSpace) error {
	cs.UpdatedAt = now()

	const q = `UPDATE codespaces SET
		name = :name, code = :code, updated_at = :updated_at
		WHERE id = :id`

	result, err := s.db.NamedExecContext(ctx, q, cs)
	if err != nil {
		return fmt.Errorf("update codespace: %w", err)
	}
	return s.checkAffected(ctx, result, "codespaces", cs.ID)
}

// DeleteCodeSpace removes a codespace row.
func (s *Store) DeleteCodeSpace(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, s.q("DELETE FROM codespaces WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete codespace: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete codespace: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCodeSpaces returns one page of an owner's codespaces, newest first.
func (s *Store) ListCodeSpaces(ctx context.Context, ownerID string, limit, offset int) ([]model.CodeSpace, error) {
	clause, pageArgs := s.dialect.paginate(limit, offset)
	q := "SELECT * FROM codespaces WHERE owner_id = ? ORDER BY created_at DESC, id" + clause

	args := append([]interface{}{ownerID}, pageArgs...)
	var rows []model.CodeSpace
	if err := s.db.SelectContext(ctx, &rows, s.q(q), args...); err != nil {
		return nil, fmt.Errorf("list codespaces: %w", err)
	}
	return rows, nil
}

// CountCodeSpaces returns how many codespaces an owner has.
func (s *Store) CountCodeSpaces(ctx context.Context, ownerID string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, s.q("SELECT COUNT(*) FROM codespaces WHERE owner_id = ?"), ownerID); err != nil {
		return 0, fmt.Errorf("count codespaces: %w", err)
	}
	return n, nil
}

// ListCodeSpaceIDs returns the IDs of every codespace an owner has.
func (s *Store) ListCodeSpaceIDs(ctx context.Context, ownerID string) ([]string, error) {
	var ids []string
	if err := s.db.SelectContext(ctx, &ids, s.q("SELECT id FROM codespaces WHERE owner_id = ?"), ownerID); err != nil {
		return nil, fmt.Errorf("list codespace ids: %w", err)
	}
	return ids, nil
}
