package viewmodel

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/prefs"
	"github.com/and161185/itemsync/internal/store"
)

// ItemsAPI is the remote side of the item list. *api.Client satisfies it.
type ItemsAPI interface {
	ListItems(ctx context.Context, page, limit int) (model.ItemPage, error)
	CreateItem(ctx context.Context, d model.ItemDraft) (model.Item, error)
	UpdateItem(ctx context.Context, id string, d model.ItemDraft) (model.Item, error)
	DeleteItem(ctx context.Context, id string) error
}

// Snapshot is an immutable copy of the list state.
type Snapshot struct {
	Items    []model.Item
	Filtered []model.Item
	State    LoadingState[[]model.Item]
	Cursor   Pagination
	Search   string
}

// CanLoadMore mirrors Cursor.CanLoadMore.
func (s Snapshot) CanLoadMore() bool { return s.Cursor.CanLoadMore() }

// Option configures an ItemList.
type Option func(*ItemList)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(v *ItemList) { v.log = l } }

// WithSettings makes the list read its page size from, and record sync times to, s.
func WithSettings(s *prefs.Settings) Option { return func(v *ItemList) { v.settings = s } }

// WithPageSize fixes the page size when no settings are configured.
func WithPageSize(n int) Option { return func(v *ItemList) { v.pageSize = n } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(v *ItemList) { v.now = now } }

// ItemList synchronizes the item list between the server and the local store.
// Network calls run outside the state lock; results are applied on return.
type ItemList struct {
	api      ItemsAPI
	store    store.Store
	settings *prefs.Settings
	log      *zap.Logger
	now      func() time.Time
	pageSize int

	mu     sync.Mutex
	items  []model.Item
	state  LoadingState[[]model.Item]
	cursor Pagination
	search string
	subs   map[int]chan Snapshot
	nextID int
}

// NewItemList builds an idle list.
func NewItemList(api ItemsAPI, st store.Store, opts ...Option) *ItemList {
	v := &ItemList{
		api:      api,
		store:    st,
		log:      zap.NewNop(),
		now:      time.Now,
		pageSize: prefs.DefaultPageSize,
		state:    Idle[[]model.Item](),
		cursor:   NewPagination(),
		subs:     map[int]chan Snapshot{},
	}
	for _, o := range opts {
		o(v)
	}
	return v
}

// ValidateTitle trims title and rejects it when empty.
func ValidateTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", errs.Validation("title is required")
	}
	return t, nil
}

// LoadLocal replaces the in-memory items with the store content, newest first.
// A read failure is logged and recorded in the loading state; items keep their last value.
func (v *ItemList) LoadLocal(ctx context.Context) {
	items, err := v.store.List(ctx)

	v.mu.Lock()
	defer v.mu.Unlock()
	if err != nil {
		v.log.Error("load local items", zap.Error(err))
		v.state = Failed[[]model.Item](errs.Persistence(err))
		v.publishLocked()
		return
	}
	v.items = items
	v.state = Loaded(cloneItems(items))
	v.publishLocked()
}

// Refresh fetches the first page and merges it into the store by id:
// known items get the remote title and description, keeping their favorite flag;
// unknown ones are inserted. The store is committed once.
func (v *ItemList) Refresh(ctx context.Context) error {
	v.mu.Lock()
	v.state = Loading[[]model.Item]()
	v.publishLocked()
	v.mu.Unlock()

	page, err := v.api.ListItems(ctx, 1, v.limit(ctx))
	if err != nil {
		return v.failRefresh(errs.Wrap(err))
	}

	local, err := v.store.List(ctx)
	if err != nil {
		return v.failRefresh(errs.Persistence(err))
	}
	known := make(map[string]model.Item, len(local))
	for _, it := range local {
		known[it.ID] = it
	}

	var cs store.Changeset
	for _, remote := range dedupe(page.Items) {
		cur, ok := known[remote.ID]
		if !ok {
			cs.Upsert(remote)
			continue
		}
		cur.Title = remote.Title
		cur.Description = remote.Description
		if remote.UpdatedAt.After(cur.UpdatedAt) {
			cur.UpdatedAt = remote.UpdatedAt
		}
		cs.Upsert(cur)
	}
	if err := v.store.Commit(ctx, &cs); err != nil {
		return v.failRefresh(errs.Persistence(err))
	}

	merged, err := v.store.List(ctx)
	if err != nil {
		return v.failRefresh(errs.Persistence(err))
	}

	v.mu.Lock()
	v.items = merged
	v.state = Loaded(cloneItems(merged))
	v.cursor.Reset()
	if page.Page > 0 {
		v.cursor.Page = page.Page
	}
	v.cursor.HasMore = page.HasNextPage()
	v.publishLocked()
	v.mu.Unlock()

	v.log.Debug("items refreshed",
		zap.Int("received", len(page.Items)),
		zap.Int("changes", cs.Len()),
		zap.Bool("has_more", page.HasNextPage()),
	)
	if v.settings != nil {
		if err := v.settings.SetLastSyncedAt(ctx, v.now()); err != nil {
			v.log.Warn("record sync time", zap.Error(err))
		}
	}
	return nil
}

func (v *ItemList) failRefresh(err *errs.AppError) error {
	v.mu.Lock()
	v.state = Failed[[]model.Item](err)
	v.publishLocked()
	v.mu.Unlock()
	v.log.Info("refresh failed", zap.String("category", err.Category.String()), zap.Error(err))
	return err
}

// LoadMore fetches the next page and appends the items not seen yet.
// It is a no-op unless the cursor can load more.
func (v *ItemList) LoadMore(ctx context.Context) error {
	v.mu.Lock()
	if !v.cursor.CanLoadMore() {
		v.mu.Unlock()
		return nil
	}
	v.cursor.InFlight = true
	next := v.cursor.Page + 1
	v.publishLocked()
	v.mu.Unlock()

	page, err := v.api.ListItems(ctx, next, v.limit(ctx))
	if err != nil {
		return v.failLoadMore(errs.Wrap(err))
	}

	v.mu.Lock()
	seen := v.idsLocked()
	v.mu.Unlock()

	var (
		cs    store.Changeset
		fresh []model.Item
	)
	for _, it := range dedupe(page.Items) {
		if seen[it.ID] {
			continue
		}
		if _, err := v.store.Get(ctx, it.ID); err == nil {
			continue
		} else if !errors.Is(err, errs.ErrNotFound) {
			return v.failLoadMore(errs.Persistence(err))
		}
		cs.Upsert(it)
		fresh = append(fresh, it)
	}
	if err := v.store.Commit(ctx, &cs); err != nil {
		return v.failLoadMore(errs.Persistence(err))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	seen = v.idsLocked()
	for _, it := range fresh {
		if !seen[it.ID] {
			v.items = append(v.items, it)
		}
	}
	if page.Page > 0 {
		v.cursor.Page = page.Page
	} else {
		v.cursor.Page = next
	}
	v.cursor.HasMore = page.HasNextPage()
	v.cursor.InFlight = false
	v.cursor.Err = nil
	v.state = Loaded(cloneItems(v.items))
	v.publishLocked()
	return nil
}

func (v *ItemList) failLoadMore(err *errs.AppError) error {
	v.mu.Lock()
	v.cursor.InFlight = false
	v.cursor.Err = err
	v.publishLocked()
	v.mu.Unlock()
	v.log.Info("load more failed", zap.Error(err))
	return err
}

// RetryLoadMore clears a pending page error and loads the next page again.
func (v *ItemList) RetryLoadMore(ctx context.Context) error {
	v.mu.Lock()
	v.cursor.Err = nil
	v.mu.Unlock()
	return v.LoadMore(ctx)
}

// CreateItem creates an item remotely and puts it at the head of the list.
// The title is expected to be validated with ValidateTitle.
func (v *ItemList) CreateItem(ctx context.Context, title, description string) (model.Item, error) {
	it, err := v.api.CreateItem(ctx, model.ItemDraft{Title: title, Description: description})
	if err != nil {
		return model.Item{}, errs.Wrap(err)
	}

	var cs store.Changeset
	cs.Upsert(it)
	if err := v.store.Commit(ctx, &cs); err != nil {
		return it, errs.Persistence(err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.items = append([]model.Item{it}, v.removeLocked(it.ID)...)
	v.state = Loaded(cloneItems(v.items))
	v.publishLocked()
	return it, nil
}

// UpdateItem edits title and description remotely. The local favorite flag is kept.
func (v *ItemList) UpdateItem(ctx context.Context, item model.Item, title, description string) (model.Item, error) {
	fav := item.IsFavorite
	remote, err := v.api.UpdateItem(ctx, item.ID, model.ItemDraft{Title: title, Description: description, IsFavorite: &fav})
	if err != nil {
		return model.Item{}, errs.Wrap(err)
	}

	updated := item
	updated.Title = remote.Title
	updated.Description = remote.Description
	updated.UpdatedAt = remote.UpdatedAt
	if updated.UpdatedAt.IsZero() {
		updated.UpdatedAt = v.now().UTC()
	}

	var cs store.Changeset
	cs.Upsert(updated)
	if err := v.store.Commit(ctx, &cs); err != nil {
		return updated, errs.Persistence(err)
	}

	v.mu.Lock()
	v.replaceLocked(updated)
	v.publishLocked()
	v.mu.Unlock()
	return updated, nil
}

// DeleteItem deletes remotely first; only on success is the item removed locally.
func (v *ItemList) DeleteItem(ctx context.Context, id string) error {
	if err := v.api.DeleteItem(ctx, id); err != nil {
		return errs.Wrap(err)
	}

	var cs store.Changeset
	cs.Delete(id)
	cerr := v.store.Commit(ctx, &cs)

	v.mu.Lock()
	v.items = v.removeLocked(id)
	v.state = Loaded(cloneItems(v.items))
	v.publishLocked()
	v.mu.Unlock()

	if cerr != nil {
		v.log.Error("delete local item", zap.String("id", id), zap.Error(cerr))
		return errs.Persistence(cerr)
	}
	return nil
}

// DeleteItems deletes ids one by one and stops at the first failure.
// Items deleted before the failure stay deleted.
func (v *ItemList) DeleteItems(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if err := v.DeleteItem(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// ToggleFavorite flips the favorite flag locally. No remote call is made.
func (v *ItemList) ToggleFavorite(ctx context.Context, id string) (model.Item, error) {
	v.mu.Lock()
	it, ok := v.findLocked(id)
	v.mu.Unlock()
	if !ok {
		var err error
		if it, err = v.store.Get(ctx, id); err != nil {
			if errors.Is(err, errs.ErrNotFound) {
				return model.Item{}, errs.Wrap(err)
			}
			return model.Item{}, errs.Persistence(err)
		}
	}

	it.IsFavorite = !it.IsFavorite
	it.UpdatedAt = v.now().UTC()

	var cs store.Changeset
	cs.Upsert(it)
	if err := v.store.Commit(ctx, &cs); err != nil {
		return model.Item{}, errs.Persistence(err)
	}

	v.mu.Lock()
	v.replaceLocked(it)
	v.publishLocked()
	v.mu.Unlock()
	return it, nil
}

// SetSearch changes the filter applied by FilteredItems.
func (v *ItemList) SetSearch(q string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.search = q
	v.publishLocked()
}

// Items returns a copy of the in-memory sequence.
func (v *ItemList) Items() []model.Item {
	v.mu.Lock()
	defer v.mu.Unlock()
	return cloneItems(v.items)
}

// FilteredItems returns the items whose title or description contains the
// search text, case-insensitively. An empty search returns every item.
func (v *ItemList) FilteredItems() []model.Item {
	v.mu.Lock()
	defer v.mu.Unlock()
	return filter(v.items, v.search)
}

// Snapshot returns the current state.
func (v *ItemList) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.snapshotLocked()
}

// Subscribe returns a channel that always holds the latest snapshot, starting
// with the current one. Slow readers skip intermediate snapshots. The channel
// is closed by cancel.
func (v *ItemList) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs[id] = ch
	ch <- v.snapshotLocked()
	v.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			v.mu.Lock()
			delete(v.subs, id)
			close(ch)
			v.mu.Unlock()
		})
	}
	return ch, cancel
}

func (v *ItemList) publishLocked() {
	if len(v.subs) == 0 {
		return
	}
	snap := v.snapshotLocked()
	for _, ch := range v.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

func (v *ItemList) snapshotLocked() Snapshot {
	return Snapshot{
		Items:    cloneItems(v.items),
		Filtered: filter(v.items, v.search),
		State:    v.state,
		Cursor:   v.cursor,
		Search:   v.search,
	}
}

func (v *ItemList) limit(ctx context.Context) int {
	if v.settings == nil {
		return v.pageSize
	}
	n, err := v.settings.PageSize(ctx)
	if err != nil {
		v.log.Warn("read page size", zap.Error(err))
	}
	return n
}

func (v *ItemList) idsLocked() map[string]bool {
	seen := make(map[string]bool, len(v.items))
	for _, it := range v.items {
		seen[it.ID] = true
	}
	return seen
}

func (v *ItemList) findLocked(id string) (model.Item, bool) {
	for _, it := range v.items {
		if it.ID == id {
			return it, true
		}
	}
	return model.Item{}, false
}

func (v *ItemList) replaceLocked(it model.Item) {
	for i := range v.items {
		if v.items[i].ID == it.ID {
			next := cloneItems(v.items)
			next[i] = it
			v.items = next
			v.state = Loaded(cloneItems(next))
			return
		}
	}
}

// removeLocked returns a new slice without id.
func (v *ItemList) removeLocked(id string) []model.Item {
	out := make([]model.Item, 0, len(v.items))
	for _, it := range v.items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

func filter(items []model.Item, q string) []model.Item {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return cloneItems(items)
	}
	out := make([]model.Item, 0)
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Title), q) || strings.Contains(strings.ToLower(it.Description), q) {
			out = append(out, it)
		}
	}
	return out
}

// dedupe keeps the first occurrence of every id.
func dedupe(items []model.Item) []model.Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}

func cloneItems(items []model.Item) []model.Item {
	if items == nil {
		return nil
	}
	out := make([]model.Item, len(items))
	copy(out, items)
	return out
}
