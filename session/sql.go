package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goCred/internal/dbx"
)

// SQLStore keeps the refresh slot in users.refresh_token. Every operation is a
// single-row statement, so a cancelled call either wrote once or not at all.
type SQLStore struct {
	db      dbx.DBTX
	dialect dbx.Dialect
	now     func() time.Time
}

func NewSQLStore(db dbx.DBTX, dialect dbx.Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

// Replace overwrites the slot. It fails with ErrSlotNotFound for unknown users.
func (s *SQLStore) Replace(ctx context.Context, userID, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	query := s.dialect.Rebind(`UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, token, s.now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrSlotNotFound
	}
	return nil
}

// Clear nulls the slot. Unknown users and empty slots are not errors.
func (s *SQLStore) Clear(ctx context.Context, userID string) error {
	query := s.dialect.Rebind(`UPDATE users SET refresh_token = NULL, updated_at = ? WHERE id = ?`)
	if _, err := s.db.ExecContext(ctx, query, s.now().UTC(), userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *SQLStore) Current(ctx context.Context, userID string) (string, bool, error) {
	query := s.dialect.Rebind(`SELECT refresh_token FROM users WHERE id = ?`)
	var token sql.NullString
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("db error: %w", err)
	}
	if !token.Valid || token.String == "" {
		return "", false, nil
	}
	return token.String, true, nil
}

// CompareAndSwap writes next only while the slot still holds expected.
func (s *SQLStore) CompareAndSwap(ctx context.Context, userID, expected, next string) (bool, error) {
	if next == "" {
		return false, ErrEmptyToken
	}
	query := s.dialect.Rebind(`UPDATE users SET refresh_token = ?, updated_at = ? WHERE id = ? AND refresh_token = ?`)
	res, err := s.db.ExecContext(ctx, query, next, s.now().UTC(), userID, expected)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}
