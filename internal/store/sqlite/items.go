package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/store"
)

// Items implements store.Store. Timestamps are stored as unix nanoseconds.
type Items struct {
	conn *sql.DB
}

var _ store.Store = (*Items)(nil)

const itemColumns = `id, title, description, is_favorite, created_at, updated_at`

func (s *Items) List(ctx context.Context) ([]model.Item, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items ORDER BY updated_at DESC, created_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Items) Get(ctx context.Context, id string) (model.Item, error) {
	row := s.conn.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, errs.ErrNotFound
	}
	if err != nil {
		return model.Item{}, fmt.Errorf("get item %q: %w", id, err)
	}
	return it, nil
}

// Commit applies cs in a single transaction; a clean changeset is a no-op.
func (s *Items) Commit(ctx context.Context, cs *store.Changeset) (err error) {
	if !cs.Dirty() {
		return nil
	}
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if e := tx.Commit(); e != nil {
			err = fmt.Errorf("commit items: %w", e)
		}
	}()

	const upsert = `
INSERT INTO items (id, title, description, is_favorite, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
  title = excluded.title,
  description = excluded.description,
  is_favorite = excluded.is_favorite,
  created_at = excluded.created_at,
  updated_at = excluded.updated_at`
	const del = `DELETE FROM items WHERE id = ?`

	return cs.Each(
		func(it model.Item) error {
			if it.ID == "" {
				return store.ErrMissingID
			}
			_, err := tx.ExecContext(ctx, upsert,
				it.ID, it.Title, it.Description, it.IsFavorite,
				it.CreatedAt.UnixNano(), it.UpdatedAt.UnixNano())
			if err != nil {
				return fmt.Errorf("upsert item %q: %w", it.ID, err)
			}
			return nil
		},
		func(id string) error {
			if _, err := tx.ExecContext(ctx, del, id); err != nil {
				return fmt.Errorf("delete item %q: %w", id, err)
			}
			return nil
		},
	)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (model.Item, error) {
	var (
		it               model.Item
		created, updated int64
	)
	if err := sc.Scan(&it.ID, &it.Title, &it.Description, &it.IsFavorite, &created, &updated); err != nil {
		return model.Item{}, err
	}
	it.CreatedAt = time.Unix(0, created).UTC()
	it.UpdatedAt = time.Unix(0, updated).UTC()
	return it, nil
}
