package limiter

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a PostgreSQL-backed limiter with a sliding failure window and lockout.
type PG struct {
	q        Querier
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time
}

// Querier is implemented by *pgxpool.Pool and pgxmock pools.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Limiter = (*PG)(nil)

// NewPG constructs a PostgreSQL-backed limiter.
func NewPG(q Querier, window time.Duration, maxFails int, blockFor time.Duration) *PG {
	return &PG{q: q, window: window, maxFails: maxFails, blockFor: blockFor, now: time.Now}
}

// Allow reports whether login is currently allowed and a retry-after duration.
func (l *PG) Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	const q = `SELECT blocked_until FROM auth_limiter WHERE email=$1 AND ip_hash=$2`
	var blockedUntil time.Time
	err := l.q.QueryRow(ctx, q, normEmail(email), ipHash).Scan(&blockedUntil)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return true, 0, nil
	case err != nil:
		return false, 0, err
	}
	if now := l.now(); blockedUntil.After(now) {
		return false, blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

// Success resets counters for (email, ip).
func (l *PG) Success(ctx context.Context, email string, ipHash []byte) error {
	const q = `DELETE FROM auth_limiter WHERE email=$1 AND ip_hash=$2`
	_, err := l.q.Exec(ctx, q, normEmail(email), ipHash)
	return err
}

// Failure records a failed attempt. Counts older than the window restart at one.
func (l *PG) Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	now := l.now().UTC()
	email = normEmail(email)

	const q = `
INSERT INTO auth_limiter (email, ip_hash, fail_count, blocked_until, updated_at)
VALUES ($1, $2, 1, 'epoch', $3)
ON CONFLICT (email, ip_hash) DO UPDATE
SET
  fail_count = CASE WHEN $3 - auth_limiter.updated_at > $4 * interval '1 second' THEN 1 ELSE auth_limiter.fail_count + 1 END,
  updated_at = $3
RETURNING fail_count`
	var fails int
	if err := l.q.QueryRow(ctx, q, email, ipHash, now, l.window.Seconds()).Scan(&fails); err != nil {
		return false, 0, err
	}
	if fails < l.maxFails {
		return false, 0, nil
	}

	const upd = `UPDATE auth_limiter SET blocked_until=$3, fail_count=0 WHERE email=$1 AND ip_hash=$2`
	if _, err := l.q.Exec(ctx, upd, email, ipHash, now.Add(l.blockFor)); err != nil {
		return false, 0, err
	}
	return true, l.blockFor, nil
}
