package postgres

import (
	"context"
	"testing"

	"github.com/gofrs/uuid/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/model"
)

func TestTokenRepo_Save(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTokenRepo(db)
	tok := model.RefreshToken{JTI: uuid.Must(uuid.NewV4()), UserID: uuid.Must(uuid.NewV4()), ExpiresAt: ts}

	mock.ExpectExec(`INSERT INTO refresh_tokens \(jti, user_id, expires_at\)`).
		WithArgs(tok.JTI, tok.UserID, ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Save(context.Background(), tok))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_Rotate(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTokenRepo(db)
	ctx := context.Background()
	old := uuid.Must(uuid.NewV4())
	next := model.RefreshToken{JTI: uuid.Must(uuid.NewV4()), UserID: uuid.Must(uuid.NewV4()), ExpiresAt: ts}

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked=true WHERE jti=\$1 AND user_id=\$2 AND NOT revoked`).
		WithArgs(old, next.UserID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec(`INSERT INTO refresh_tokens`).
		WithArgs(next.JTI, next.UserID, ts).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()
	require.NoError(t, r.Rotate(ctx, old, next))

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE refresh_tokens SET revoked=true`).
		WithArgs(old, next.UserID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectRollback()
	require.ErrorIs(t, r.Rotate(ctx, old, next), errs.ErrUnauthorized)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRepo_Revoke(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewTokenRepo(db)
	jti := uuid.Must(uuid.NewV4())

	mock.ExpectExec(`UPDATE refresh_tokens SET revoked=true WHERE jti=\$1`).
		WithArgs(jti).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.NoError(t, r.Revoke(context.Background(), jti))
}
