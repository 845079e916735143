// Package repository defines storage interfaces implemented by concrete backends.
package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/itemsync/internal/model"
)

// UserRepository provides CRUD access for accounts.
type UserRepository interface {
	// Create inserts a new user and fills its timestamps. A taken email is errs.ErrAlreadyExists.
	Create(ctx context.Context, u *model.UserRecord) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.UserRecord, error)
	// GetByEmail loads a user by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*model.UserRecord, error)
	// Update changes the non-nil fields and returns the new row.
	Update(ctx context.Context, id uuid.UUID, name, email *string) (*model.UserRecord, error)
	// Delete removes the user; items and refresh tokens cascade.
	Delete(ctx context.Context, id uuid.UUID) error
}

// ItemRepository provides per-user access to items.
type ItemRepository interface {
	// List returns one page of the user's items, most recently updated first.
	List(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.ItemRecord, error)
	// Count returns the number of items the user owns.
	Count(ctx context.Context, userID uuid.UUID) (int, error)
	// Get returns a single item by ID.
	Get(ctx context.Context, userID, id uuid.UUID) (*model.ItemRecord, error)
	// Create inserts it and fills its timestamps.
	Create(ctx context.Context, it *model.ItemRecord) error
	// Update overwrites title, description and favorite flag and bumps updated_at.
	Update(ctx context.Context, it *model.ItemRecord) error
	// Delete removes an item.
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// TokenRepository tracks issued refresh tokens so they can be rotated and revoked.
type TokenRepository interface {
	// Save records a newly issued token.
	Save(ctx context.Context, t model.RefreshToken) error
	// Rotate revokes old and records next atomically. An unknown, revoked or
	// expired old token is errs.ErrUnauthorized.
	Rotate(ctx context.Context, old uuid.UUID, next model.RefreshToken) error
	// Revoke invalidates one token. Unknown tokens are ignored.
	Revoke(ctx context.Context, jti uuid.UUID) error
}
