// Package store is the on-device item persistence used by the list view model.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/and161185/itemsync/internal/model"
)

// ErrMissingID is returned by Commit for an upsert of an item without an id.
var ErrMissingID = errors.New("store: item without id")

// Store persists items. List returns items ordered by UpdatedAt descending.
// Get returns errs.ErrNotFound for unknown ids.
type Store interface {
	List(ctx context.Context) ([]model.Item, error)
	Get(ctx context.Context, id string) (model.Item, error)
	Commit(ctx context.Context, cs *Changeset) error
}

type opKind int

const (
	opUpsert opKind = iota + 1
	opDelete
)

type op struct {
	kind opKind
	item model.Item
	id   string
}

// Changeset collects pending writes that are applied together by Commit.
// A zero Changeset is ready to use.
type Changeset struct {
	ops []op
}

// Upsert inserts it or replaces the stored item with the same id.
func (c *Changeset) Upsert(it model.Item) {
	c.ops = append(c.ops, op{kind: opUpsert, item: it, id: it.ID})
}

// Delete removes the item with id; unknown ids are ignored.
func (c *Changeset) Delete(id string) {
	c.ops = append(c.ops, op{kind: opDelete, id: id})
}

// Dirty reports whether there is anything to commit.
func (c *Changeset) Dirty() bool { return c != nil && len(c.ops) > 0 }

// Len is the number of pending writes.
func (c *Changeset) Len() int {
	if c == nil {
		return 0
	}
	return len(c.ops)
}

// Each calls the matching callback for every pending write in order.
func (c *Changeset) Each(upsert func(model.Item) error, del func(string) error) error {
	for _, o := range c.ops {
		var err error
		switch o.kind {
		case opUpsert:
			err = upsert(o.item)
		case opDelete:
			err = del(o.id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// SortByUpdated orders items newest first; ties fall back to CreatedAt then ID.
func SortByUpdated(items []model.Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
