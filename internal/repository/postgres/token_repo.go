package postgres

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/repository"
)

// TokenRepo implements TokenRepository using PostgreSQL.
type TokenRepo struct{ db *DB }

var _ repository.TokenRepository = (*TokenRepo)(nil)

// NewTokenRepo constructs a refresh token repository.
func NewTokenRepo(db *DB) *TokenRepo { return &TokenRepo{db: db} }

const insToken = `INSERT INTO refresh_tokens (jti, user_id, expires_at) VALUES ($1, $2, $3)`

// Save records an issued refresh token.
func (r *TokenRepo) Save(ctx context.Context, t model.RefreshToken) error {
	_, err := r.db.Pool.Exec(ctx, insToken, t.JTI, t.UserID, t.ExpiresAt)
	return err
}

// Rotate revokes old and saves next in one transaction.
func (r *TokenRepo) Rotate(ctx context.Context, old uuid.UUID, next model.RefreshToken) error {
	const revoke = `
UPDATE refresh_tokens SET revoked=true
WHERE jti=$1 AND user_id=$2 AND NOT revoked AND expires_at > now()`
	return r.db.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, revoke, old, next.UserID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errs.ErrUnauthorized
		}
		_, err = tx.Exec(ctx, insToken, next.JTI, next.UserID, next.ExpiresAt)
		return err
	})
}

// Revoke marks a token as revoked.
func (r *TokenRepo) Revoke(ctx context.Context, jti uuid.UUID) error {
	_, err := r.db.Pool.Exec(ctx, `UPDATE refresh_tokens SET revoked=true WHERE jti=$1`, jti)
	return err
}
