// Package memory is an in-process implementation of the repository
// interfaces. Deleting a user cascades to its items and refresh tokens.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/repository"
)

type token struct {
	model.RefreshToken
	revoked bool
}

// Store holds every table.
type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	users  map[uuid.UUID]model.UserRecord
	items  map[uuid.UUID]model.ItemRecord
	tokens map[uuid.UUID]token
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:    func() time.Time { return time.Now().UTC() },
		users:  map[uuid.UUID]model.UserRecord{},
		items:  map[uuid.UUID]model.ItemRecord{},
		tokens: map[uuid.UUID]token{},
	}
}

// SetClock replaces the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) { s.now = now }

func (s *Store) Users() repository.UserRepository   { return users{s} }
func (s *Store) Items() repository.ItemRepository   { return items{s} }
func (s *Store) Tokens() repository.TokenRepository { return tokens{s} }

type users struct{ s *Store }

func (r users) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range r.s.users {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func (r users) Create(_ context.Context, u *model.UserRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	if _, ok := r.s.users[u.ID]; ok || r.emailTaken(u.Email, uuid.Nil) {
		return errs.ErrAlreadyExists
	}
	u.CreatedAt = r.s.now()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = *u
	return nil
}

func (r users) GetByID(_ context.Context, id uuid.UUID) (*model.UserRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

func (r users) GetByEmail(_ context.Context, email string) (*model.UserRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email = strings.ToLower(email)
	for _, u := range r.s.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r users) Update(_ context.Context, id uuid.UUID, name, email *string) (*model.UserRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if email != nil {
		e := strings.ToLower(*email)
		if r.emailTaken(e, id) {
			return nil, errs.ErrAlreadyExists
		}
		u.Email = e
	}
	if name != nil {
		u.Name = *name
	}
	u.UpdatedAt = r.s.now()
	r.s.users[id] = u
	return &u, nil
}

func (r users) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.s.users, id)
	for k, it := range r.s.items {
		if it.UserID == id {
			delete(r.s.items, k)
		}
	}
	for k, t := range r.s.tokens {
		if t.UserID == id {
			delete(r.s.tokens, k)
		}
	}
	return nil
}

type items struct{ s *Store }

func (r items) owned(userID uuid.UUID) []model.ItemRecord {
	out := make([]model.ItemRecord, 0)
	for _, it := range r.s.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func (r items) List(_ context.Context, userID uuid.UUID, limit, offset int) ([]model.ItemRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.owned(userID)
	if offset >= len(all) {
		return []model.ItemRecord{}, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (r items) Count(_ context.Context, userID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.owned(userID)), nil
}

func (r items) Get(_ context.Context, userID, id uuid.UUID) (*model.ItemRecord, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	it, ok := r.s.items[id]
	if !ok || it.UserID != userID {
		return nil, errs.ErrNotFound
	}
	return &it, nil
}

func (r items) Create(_ context.Context, it *model.ItemRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.items[it.ID]; ok {
		return errs.ErrAlreadyExists
	}
	it.CreatedAt = r.s.now()
	it.UpdatedAt = it.CreatedAt
	r.s.items[it.ID] = *it
	return nil
}

func (r items) Update(_ context.Context, it *model.ItemRecord) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.items[it.ID]
	if !ok || cur.UserID != it.UserID {
		return errs.ErrNotFound
	}
	cur.Title, cur.Description, cur.IsFavorite = it.Title, it.Description, it.IsFavorite
	cur.UpdatedAt = r.s.now()
	r.s.items[it.ID] = cur
	*it = cur
	return nil
}

func (r items) Delete(_ context.Context, userID, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.items[id]
	if !ok || cur.UserID != userID {
		return errs.ErrNotFound
	}
	delete(r.s.items, id)
	return nil
}

type tokens struct{ s *Store }

func (r tokens) Save(_ context.Context, t model.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.tokens[t.JTI] = token{RefreshToken: t}
	return nil
}

func (r tokens) Rotate(_ context.Context, old uuid.UUID, next model.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.tokens[old]
	if !ok || cur.revoked || cur.UserID != next.UserID || !cur.ExpiresAt.After(r.s.now()) {
		return errs.ErrUnauthorized
	}
	cur.revoked = true
	r.s.tokens[old] = cur
	r.s.tokens[next.JTI] = token{RefreshToken: next}
	return nil
}

func (r tokens) Revoke(_ context.Context, jti uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if cur, ok := r.s.tokens[jti]; ok {
		cur.revoked = true
		r.s.tokens[jti] = cur
	}
	return nil
}
