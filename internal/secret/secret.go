// Package secret persists opaque credentials (session tokens) across runs.
package secret

import (
	"errors"
	"sync"
)

// Well-known keys.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

// ErrNotFound is returned by Load for a missing key.
var ErrNotFound = errors.New("secret not found")

// Store saves, loads and deletes string values by key.
type Store interface {
	Save(key, value string) error
	Load(key string) (string, error)
	Delete(key string) error
}

// Memory is a process-local Store.
type Memory struct {
	mu   sync.Mutex
	data map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{data: map[string]string{}} }

func (m *Memory) Save(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Load(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
