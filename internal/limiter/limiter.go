// Package limiter throttles failed sign-in attempts per (email, client IP).
package limiter

import (
	"context"
	"crypto/sha256"
	"strings"
	"sync"
	"time"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether login is currently allowed and, if not, how long to wait.
	Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, email string, ipHash []byte) error
	// Failure records a failed attempt; reaching the threshold places a block.
	Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error)
}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) []byte {
	h := sha256.Sum256([]byte(ip))
	return h[:]
}

func normEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Memory is an in-process Limiter with the same rules as PG.
type Memory struct {
	mu       sync.Mutex
	window   time.Duration
	maxFails int
	blockFor time.Duration
	now      func() time.Time
	entries  map[string]*entry
}

type entry struct {
	fails        int
	updatedAt    time.Time
	blockedUntil time.Time
}

var _ Limiter = (*Memory)(nil)

// NewMemory builds a Memory limiter.
func NewMemory(window time.Duration, maxFails int, blockFor time.Duration) *Memory {
	return &Memory{
		window:   window,
		maxFails: maxFails,
		blockFor: blockFor,
		now:      time.Now,
		entries:  map[string]*entry{},
	}
}

func memKey(email string, ipHash []byte) string { return normEmail(email) + "\x00" + string(ipHash) }

func (m *Memory) Allow(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[memKey(email, ipHash)]
	if !ok {
		return true, 0, nil
	}
	if now := m.now(); e.blockedUntil.After(now) {
		return false, e.blockedUntil.Sub(now), nil
	}
	return true, 0, nil
}

func (m *Memory) Success(_ context.Context, email string, ipHash []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, memKey(email, ipHash))
	return nil
}

func (m *Memory) Failure(_ context.Context, email string, ipHash []byte) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	k := memKey(email, ipHash)
	e, ok := m.entries[k]
	switch {
	case !ok:
		e = &entry{}
		m.entries[k] = e
		fallthrough
	case now.Sub(e.updatedAt) > m.window:
		e.fails = 0
	}
	e.fails++
	e.updatedAt = now

	if e.fails >= m.maxFails {
		e.fails = 0
		e.blockedUntil = now.Add(m.blockFor)
		return true, m.blockFor, nil
	}
	return false, 0, nil
}
