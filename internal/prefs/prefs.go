// Package prefs holds user-facing settings as a typed struct over a key/value store.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/and161185/itemsync/internal/errs"
)

// KV is a JSON key/value store. Get returns an error wrapping errs.ErrNotFound
// for missing keys.
type KV interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// Keys of the stored settings.
const (
	KeyPageSize      = "page_size"
	KeyNotifications = "notifications_enabled"
	KeyAppearance    = "appearance"
	KeyLastSyncedAt  = "last_synced_at"
)

// Appearance is the preferred color scheme.
type Appearance string

const (
	AppearanceSystem Appearance = "system"
	AppearanceLight  Appearance = "light"
	AppearanceDark   Appearance = "dark"
)

// Page size bounds.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Preferences is a snapshot of every setting.
type Preferences struct {
	PageSize             int
	NotificationsEnabled bool
	Appearance           Appearance
	LastSyncedAt         time.Time // zero until the first successful refresh
}

// Defaults returns the values used for unset keys.
func Defaults() Preferences {
	return Preferences{
		PageSize:             DefaultPageSize,
		NotificationsEnabled: true,
		Appearance:           AppearanceSystem,
	}
}

// Settings reads and writes Preferences fields through a KV.
type Settings struct {
	kv KV
}

// New wraps kv.
func New(kv KV) *Settings { return &Settings{kv: kv} }

func get[T any](ctx context.Context, kv KV, key string, def T) (T, error) {
	var v T
	if err := kv.Get(ctx, key, &v); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return def, nil
		}
		return def, fmt.Errorf("prefs %s: %w", key, err)
	}
	return v, nil
}

// Load returns all settings, defaults filled in.
func (s *Settings) Load(ctx context.Context) (Preferences, error) {
	d := Defaults()
	var p Preferences
	var err error
	if p.PageSize, err = s.PageSize(ctx); err != nil {
		return d, err
	}
	if p.NotificationsEnabled, err = get(ctx, s.kv, KeyNotifications, d.NotificationsEnabled); err != nil {
		return d, err
	}
	if p.Appearance, err = get(ctx, s.kv, KeyAppearance, d.Appearance); err != nil {
		return d, err
	}
	if p.LastSyncedAt, err = s.LastSyncedAt(ctx); err != nil {
		return d, err
	}
	return p, nil
}

// PageSize is the number of items requested per page.
func (s *Settings) PageSize(ctx context.Context) (int, error) {
	n, err := get(ctx, s.kv, KeyPageSize, DefaultPageSize)
	if err != nil || n < 1 || n > MaxPageSize {
		return DefaultPageSize, err
	}
	return n, nil
}

func (s *Settings) SetPageSize(ctx context.Context, n int) error {
	if n < 1 || n > MaxPageSize {
		return errs.Validation(fmt.Sprintf("page size must be between 1 and %d", MaxPageSize))
	}
	return s.kv.Set(ctx, KeyPageSize, n)
}

func (s *Settings) SetNotificationsEnabled(ctx context.Context, on bool) error {
	return s.kv.Set(ctx, KeyNotifications, on)
}

func (s *Settings) SetAppearance(ctx context.Context, a Appearance) error {
	switch a {
	case AppearanceSystem, AppearanceLight, AppearanceDark:
		return s.kv.Set(ctx, KeyAppearance, a)
	default:
		return errs.Validation(fmt.Sprintf("unknown appearance %q", a))
	}
}

// LastSyncedAt is when the item list was last refreshed from the server.
func (s *Settings) LastSyncedAt(ctx context.Context) (time.Time, error) {
	return get(ctx, s.kv, KeyLastSyncedAt, time.Time{})
}

func (s *Settings) SetLastSyncedAt(ctx context.Context, t time.Time) error {
	return s.kv.Set(ctx, KeyLastSyncedAt, t.UTC())
}

// Reset removes every stored setting.
func (s *Settings) Reset(ctx context.Context) error {
	for _, k := range []string{KeyPageSize, KeyNotifications, KeyAppearance, KeyLastSyncedAt} {
		if err := s.kv.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

// SetString parses raw for the named setting and stores it. Used by the CLI.
func (s *Settings) SetString(ctx context.Context, key, raw string) error {
	raw = strings.TrimSpace(raw)
	switch key {
	case KeyPageSize:
		n, err := strconv.Atoi(raw)
		if err != nil {
			return errs.Validation("page size must be a number")
		}
		return s.SetPageSize(ctx, n)
	case KeyNotifications:
		on, err := strconv.ParseBool(raw)
		if err != nil {
			return errs.Validation("notifications must be true or false")
		}
		return s.SetNotificationsEnabled(ctx, on)
	case KeyAppearance:
		return s.SetAppearance(ctx, Appearance(strings.ToLower(raw)))
	default:
		return errs.Validation(fmt.Sprintf("unknown setting %q", key))
	}
}

// Memory is an in-process KV.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ KV = (*Memory)(nil)

func NewMemory() *Memory { return &Memory{data: map[string][]byte{}} }

func (m *Memory) Get(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	raw, ok := m.data[key]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("kv get %q: %w", key, errs.ErrNotFound)
	}
	return json.Unmarshal(raw, dest)
}

func (m *Memory) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kv set %q marshal: %w", key, err)
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
