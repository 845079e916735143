package store

import (
	"context"
	"sync"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/model"
)

// Memory is a process-local Store.
type Memory struct {
	mu      sync.RWMutex
	items   map[string]model.Item
	commits int
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty store.
func NewMemory(seed ...model.Item) *Memory {
	m := &Memory{items: make(map[string]model.Item, len(seed))}
	for _, it := range seed {
		m.items[it.ID] = it
	}
	return m
}

func (m *Memory) List(ctx context.Context) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	out := make([]model.Item, 0, len(m.items))
	for _, it := range m.items {
		out = append(out, it)
	}
	m.mu.RUnlock()
	SortByUpdated(out)
	return out, nil
}

func (m *Memory) Get(_ context.Context, id string) (model.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return model.Item{}, errs.ErrNotFound
	}
	return it, nil
}

// Commit applies cs atomically; a clean changeset is a no-op.
func (m *Memory) Commit(ctx context.Context, cs *Changeset) error {
	if !cs.Dirty() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[string]model.Item, len(m.items))
	for k, v := range m.items {
		next[k] = v
	}
	err := cs.Each(
		func(it model.Item) error {
			if it.ID == "" {
				return ErrMissingID
			}
			next[it.ID] = it
			return nil
		},
		func(id string) error { delete(next, id); return nil },
	)
	if err != nil {
		return err
	}
	m.items = next
	m.commits++
	return nil
}

// Commits is the number of non-empty commits applied so far.
func (m *Memory) Commits() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.commits
}
