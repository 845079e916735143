package postgres

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/repository"
)

// ItemRepo implements ItemRepository using PostgreSQL.
type ItemRepo struct{ db *DB }

var _ repository.ItemRepository = (*ItemRepo)(nil)

// NewItemRepo constructs an item repository.
func NewItemRepo(db *DB) *ItemRepo { return &ItemRepo{db: db} }

const itemCols = `id, user_id, title, description, is_favorite, created_at, updated_at`

func scanItem(row scanner) (model.ItemRecord, error) {
	var it model.ItemRecord
	err := row.Scan(&it.ID, &it.UserID, &it.Title, &it.Description, &it.IsFavorite, &it.CreatedAt, &it.UpdatedAt)
	return it, err
}

// List returns one page of items ordered by updated_at desc, id.
func (r *ItemRepo) List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.ItemRecord, error) {
	const q = `
SELECT ` + itemCols + `
FROM items
WHERE user_id=$1
ORDER BY updated_at DESC, id
LIMIT $2 OFFSET $3`
	rows, err := r.db.Pool.Query(ctx, q, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.ItemRecord, 0, limit)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Count returns the number of items of a user.
func (r *ItemRepo) Count(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM items WHERE user_id=$1`, userID).Scan(&n)
	return n, err
}

// Get returns a single item by ID.
func (r *ItemRepo) Get(ctx context.Context, userID, id uuid.UUID) (*model.ItemRecord, error) {
	const q = `SELECT ` + itemCols + ` FROM items WHERE user_id=$1 AND id=$2`
	it, err := scanItem(r.db.Pool.QueryRow(ctx, q, userID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

// Create inserts an item row.
func (r *ItemRepo) Create(ctx context.Context, it *model.ItemRecord) error {
	const q = `
INSERT INTO items (id, user_id, title, description, is_favorite)
VALUES ($1, $2, $3, $4, $5)
RETURNING created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, q, it.ID, it.UserID, it.Title, it.Description, it.IsFavorite).
		Scan(&it.CreatedAt, &it.UpdatedAt)
	if isUniqueViolation(err) {
		return errs.ErrAlreadyExists
	}
	return err
}

// Update overwrites the mutable fields of an item.
func (r *ItemRepo) Update(ctx context.Context, it *model.ItemRecord) error {
	const q = `
UPDATE items
SET title=$3, description=$4, is_favorite=$5, updated_at=now()
WHERE user_id=$1 AND id=$2
RETURNING created_at, updated_at`
	err := r.db.Pool.QueryRow(ctx, q, it.UserID, it.ID, it.Title, it.Description, it.IsFavorite).
		Scan(&it.CreatedAt, &it.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	return err
}

// Delete removes an item.
func (r *ItemRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM items WHERE user_id=$1 AND id=$2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}
	return nil
}
