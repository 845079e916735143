package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/repository"
)

// UserRepo implements UserRepository using PostgreSQL.
type UserRepo struct{ db *DB }

var _ repository.UserRepository = (*UserRepo)(nil)

// NewUserRepo constructs a user repository.
func NewUserRepo(db *DB) *UserRepo { return &UserRepo{db: db} }

const userCols = `id, email, name, pwd_hash, created_at, updated_at`

func scanUser(row scanner) (*model.UserRecord, error) {
	var u model.UserRecord
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PwdHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user row.
func (r *UserRepo) Create(ctx context.Context, u *model.UserRecord) error {
	const q = `
INSERT INTO users (id, email, name, pwd_hash)
VALUES ($1, $2, $3, $4)
RETURNING created_at, updated_at`
	u.Email = strings.ToLower(u.Email)
	err := r.db.Pool.QueryRow(ctx, q, u.ID, u.Email, u.Name, u.PwdHash).Scan(&u.CreatedAt, &u.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// GetByID selects a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.UserRecord, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, id))
}

// GetByEmail selects a user by email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.UserRecord, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE email=$1`
	return scanUser(r.db.Pool.QueryRow(ctx, q, strings.ToLower(email)))
}

// Update sets name and/or email. Nil fields keep their value.
func (r *UserRepo) Update(ctx context.Context, id uuid.UUID, name, email *string) (*model.UserRecord, error) {
	const q = `
UPDATE users
SET name = COALESCE($2, name), email = COALESCE($3, email), updated_at = now()
WHERE id = $1
RETURNING ` + userCols
	if email != nil {
		e := strings.ToLower(*email)
		email = &e
	}
	u, err := scanUser(r.db.Pool.QueryRow(ctx, q, id, name, email))
	if isUniqueViolation(err) {
		return nil, errs.ErrAlreadyExists
	}
	return u, err
}

// Delete removes the user row.
func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
