package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/secret"
	"github.com/and161185/itemsync/internal/wire"
)

// fakeBackend accepts exactly one valid access token and rotates it on refresh.
type fakeBackend struct {
	mu         sync.Mutex
	access     string
	refresh    string
	refreshOK  bool
	refreshes  atomic.Int32
	itemCalls  atomic.Int32
	refreshLag time.Duration
}

func (b *fakeBackend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		b.refreshes.Add(1)
		time.Sleep(b.refreshLag)
		var req wire.RefreshRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		defer b.mu.Unlock()
		if !b.refreshOK || req.RefreshToken != b.refresh {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		b.access = "access-2"
		b.refresh = "refresh-2"
		_ = json.NewEncoder(w).Encode(wire.AuthResponse{AccessToken: b.access, RefreshToken: b.refresh})
	})
	mux.HandleFunc("GET /users/me", func(w http.ResponseWriter, r *http.Request) {
		b.itemCalls.Add(1)
		b.mu.Lock()
		ok := r.Header.Get("Authorization") == "Bearer "+b.access
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"message":"expired"}`)
			return
		}
		_, _ = io.WriteString(w, `{"id":"u1","email":"a@b.c","name":"A"}`)
	})
	return mux
}

func newTestClient(t *testing.T, b *fakeBackend, tokens model.Tokens) (*Client, secret.Store) {
	t.Helper()
	srv := httptest.NewServer(b.handler(t))
	t.Cleanup(srv.Close)
	secrets := secret.NewMemory()
	c := NewClient(NewEngine(srv.URL), secrets, nil)
	require.NoError(t, c.SetSession(tokens))
	return c, secrets
}

func TestSendRefreshesOnceAndRetries(t *testing.T) {
	b := &fakeBackend{access: "access-1", refresh: "refresh-1", refreshOK: true}
	c, secrets := newTestClient(t, b, model.Tokens{AccessToken: "stale", RefreshToken: "refresh-1"})

	u, err := c.CurrentUser(context.Background())
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
	require.EqualValues(t, 1, b.refreshes.Load())
	require.EqualValues(t, 2, b.itemCalls.Load())

	require.Equal(t, "access-2", c.Session().AccessToken)
	stored, err := secrets.Load(secret.KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "refresh-2", stored)
}

func TestSendRefreshFailureClearsSession(t *testing.T) {
	b := &fakeBackend{access: "access-1", refresh: "refresh-1", refreshOK: false}
	c, secrets := newTestClient(t, b, model.Tokens{AccessToken: "stale", RefreshToken: "refresh-1"})

	_, err := c.CurrentUser(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, "Your session has expired. Please sign in again.", err.Error())
	require.EqualValues(t, 1, b.refreshes.Load())
	require.EqualValues(t, 1, b.itemCalls.Load())

	require.False(t, c.IsAuthenticated())
	_, err = secrets.Load(secret.KeyAccessToken)
	require.ErrorIs(t, err, secret.ErrNotFound)
}

func TestSendRetryUnauthorizedIsNotRefreshedAgain(t *testing.T) {
	b := &fakeBackend{access: "access-1", refresh: "refresh-1", refreshOK: true}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/refresh" {
			b.refreshes.Add(1)
			_ = json.NewEncoder(w).Encode(wire.AuthResponse{AccessToken: "new", RefreshToken: "r2"})
			return
		}
		b.itemCalls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(NewEngine(srv.URL), nil, nil)
	require.NoError(t, c.SetSession(model.Tokens{AccessToken: "old", RefreshToken: "r1"}))

	err := c.DeleteItem(context.Background(), "1")
	require.Equal(t, KindUnauthorized, KindOf(err))
	require.EqualValues(t, 1, b.refreshes.Load())
	require.EqualValues(t, 2, b.itemCalls.Load())
}

func TestSendNoRefreshWithoutRefreshToken(t *testing.T) {
	b := &fakeBackend{access: "access-1", refresh: "refresh-1", refreshOK: true}
	c, _ := newTestClient(t, b, model.Tokens{AccessToken: "stale"})

	_, err := c.CurrentUser(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Zero(t, b.refreshes.Load())
}

func TestConcurrentRefreshIsShared(t *testing.T) {
	b := &fakeBackend{access: "access-1", refresh: "refresh-1", refreshOK: true, refreshLag: 50 * time.Millisecond}
	c, _ := newTestClient(t, b, model.Tokens{AccessToken: "stale", RefreshToken: "refresh-1"})

	const n = 8
	var wg sync.WaitGroup
	errc := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.CurrentUser(context.Background())
			errc <- err
		}()
	}
	wg.Wait()
	close(errc)
	for err := range errc {
		require.NoError(t, err)
	}
	require.EqualValues(t, 1, b.refreshes.Load())
}

func TestRefreshSurvivesCancelledStarter(t *testing.T) {
	b := &fakeBackend{access: "access-1", refresh: "refresh-1", refreshOK: true, refreshLag: 300 * time.Millisecond}
	c, _ := newTestClient(t, b, model.Tokens{AccessToken: "stale", RefreshToken: "refresh-1"})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := c.CurrentUser(ctxA)
		errA <- err
	}()
	require.Eventually(t, func() bool { return b.refreshes.Load() == 1 }, time.Second, 5*time.Millisecond)

	errB := make(chan error, 1)
	go func() {
		_, err := c.CurrentUser(context.Background())
		errB <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancelA()

	require.Equal(t, KindCancelled, KindOf(<-errA))
	require.NoError(t, <-errB)
	require.EqualValues(t, 1, b.refreshes.Load())
	require.Equal(t, "access-2", c.Session().AccessToken)
	require.Equal(t, "refresh-2", c.Session().RefreshToken)
}

func TestRefreshCallerTimeoutKeepsSession(t *testing.T) {
	b := &fakeBackend{access: "access-1", refresh: "refresh-1", refreshOK: true, refreshLag: 300 * time.Millisecond}
	c, secrets := newTestClient(t, b, model.Tokens{AccessToken: "stale", RefreshToken: "refresh-1"})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err := c.CurrentUser(ctx)
	require.Equal(t, KindTimeout, KindOf(err))

	require.Eventually(t, func() bool { return c.Session().AccessToken == "access-2" }, 2*time.Second, 10*time.Millisecond)
	stored, err := secrets.Load(secret.KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "refresh-2", stored)
}

func TestRefreshTimeoutDoesNotClearSession(t *testing.T) {
	b := &fakeBackend{access: "access-1", refresh: "refresh-1", refreshOK: true, refreshLag: 300 * time.Millisecond}
	c, secrets := newTestClient(t, b, model.Tokens{AccessToken: "stale", RefreshToken: "refresh-1"})
	c.refreshTimeout = 50 * time.Millisecond

	_, err := c.CurrentUser(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, "refresh-1", c.Session().RefreshToken)
	require.True(t, c.IsAuthenticated())
	stored, err := secrets.Load(secret.KeyRefreshToken)
	require.NoError(t, err)
	require.Equal(t, "refresh-1", stored)
}

func TestRejected(t *testing.T) {
	require.True(t, rejected(Classify(http.StatusUnauthorized, nil)))
	require.True(t, rejected(Classify(http.StatusForbidden, nil)))
	require.True(t, rejected(Classify(http.StatusBadRequest, nil)))
	require.False(t, rejected(Classify(http.StatusServiceUnavailable, nil)))
	require.False(t, rejected(ClassifyTransport(context.Canceled)))
	require.False(t, rejected(ClassifyTransport(context.DeadlineExceeded)))
}

func TestLoginStoresSessionAndLogoutClears(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	var logoutAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/login":
			_ = json.NewEncoder(w).Encode(wire.AuthResponse{
				AccessToken:  access,
				RefreshToken: "r",
				User:         &wire.User{ID: "u1", Email: "a@b.c", Name: "A"},
			})
		case "/auth/logout":
			logoutAuth = r.Header.Get("Authorization")
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	secrets := secret.NewMemory()
	c := NewClient(NewEngine(srv.URL), secrets, nil)
	u, err := c.Login(context.Background(), model.Credentials{Email: "a@b.c", Password: "pw"})
	require.NoError(t, err)
	require.Equal(t, "A", u.Name)
	require.True(t, c.IsAuthenticated())
	require.True(t, c.Session().ExpiresAt.Equal(exp))

	restored := NewClient(NewEngine(srv.URL), secrets, nil)
	require.NoError(t, restored.Restore())
	require.Equal(t, access, restored.Session().AccessToken)

	require.NoError(t, c.Logout(context.Background()))
	require.Equal(t, "Bearer "+access, logoutAuth)
	require.False(t, c.IsAuthenticated())
	_, err = secrets.Load(secret.KeyRefreshToken)
	require.ErrorIs(t, err, secret.ErrNotFound)
}

func TestLogoutClearsEvenWhenOffline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	c := NewClient(NewEngine(addr), nil, nil)
	require.NoError(t, c.SetSession(model.Tokens{AccessToken: "a", RefreshToken: "r"}))
	err := c.Logout(context.Background())
	require.Equal(t, KindNetworkUnavailable, KindOf(err))
	require.False(t, c.IsAuthenticated())
}
