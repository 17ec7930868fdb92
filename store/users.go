package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goCred/internal/dbx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// User is the persisted account row. RefreshToken is deliberately absent:
// the session slot is owned by session.SQLStore.
type User struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         string
	IsActive     bool
	Avatar       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewUser is the input to Users.Create. PasswordHash must already be a digest.
type NewUser struct {
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Role         string
}

// ProfileUpdate carries optional profile changes; nil fields are left as-is.
type ProfileUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
	Avatar    *string
	IsActive  *bool
}

// Users is the users-table repository.
type Users struct {
	db      dbx.DBTX
	dialect dbx.Dialect
	now     func() time.Time
}

func NewUsers(db dbx.DBTX, dialect dbx.Dialect) *Users {
	return &Users{db: db, dialect: dialect, now: time.Now}
}

// NormalizeEmail is the canonical form used for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

const userColumns = `id, email, first_name, last_name, password_hash, role, is_active, avatar, created_at, updated_at`

func (r *Users) Create(ctx context.Context, in NewUser) (*User, error) {
	if in.PasswordHash == "" {
		return nil, ErrMissingPasswordHash
	}
	role := in.Role
	if role == "" {
		role = "user"
	}

	now := r.now().UTC().Truncate(time.Microsecond)
	u := &User{
		ID:           uuid.NewString(),
		Email:        NormalizeEmail(in.Email),
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: in.PasswordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	query := r.dialect.Rebind(`INSERT INTO users (id, email, first_name, last_name, password_hash, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := r.db.ExecContext(ctx, query,
		u.ID, u.Email, u.FirstName, u.LastName, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return u, nil
}

func (r *Users) FindByID(ctx context.Context, id string) (*User, error) {
	query := r.dialect.Rebind(`SELECT ` + userColumns + ` FROM users WHERE id = ?`)
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *Users) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := r.dialect.Rebind(`SELECT ` + userColumns + ` FROM users WHERE email = ?`)
	return r.scanOne(r.db.QueryRowContext(ctx, query, NormalizeEmail(email)))
}

// UpdatePasswordHash replaces the stored digest. The caller hashes.
func (r *Users) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if hash == "" {
		return ErrMissingPasswordHash
	}
	query := r.dialect.Rebind(`UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, hash, r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

// UpdateProfile applies the non-nil fields of upd. Changing the email to one
// held by another account yields ErrDuplicateEmail.
func (r *Users) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*User, error) {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	if upd.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, NormalizeEmail(*upd.Email))
	}
	if upd.FirstName != nil {
		sets = append(sets, "first_name = ?")
		args = append(args, *upd.FirstName)
	}
	if upd.LastName != nil {
		sets = append(sets, "last_name = ?")
		args = append(args, *upd.LastName)
	}
	if upd.Avatar != nil {
		sets = append(sets, "avatar = ?")
		args = append(args, *upd.Avatar)
	}
	if upd.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *upd.IsActive)
	}
	if len(sets) == 0 {
		return r.FindByID(ctx, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, r.now().UTC(), id)

	query := r.dialect.Rebind(`UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`)
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if err := requireRow(res); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, id)
}

func (r *Users) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM users WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res)
}

func (r *Users) scanOne(row *sql.Row) (*User, error) {
	u := &User{}
	var avatar sql.NullString
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.PasswordHash, &u.Role, &u.IsActive, &avatar, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if avatar.Valid {
		u.Avatar = &avatar.String
	}
	return u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
