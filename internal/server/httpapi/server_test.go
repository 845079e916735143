package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/and161185/itemsync/internal/api"
	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/limiter"
	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/repository/memory"
	"github.com/and161185/itemsync/internal/secret"
	"github.com/and161185/itemsync/internal/service"
	"github.com/and161185/itemsync/internal/wire"
)

func init() { gin.SetMode(gin.TestMode) }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	st := memory.New()
	auth := service.NewAuthService(st.Users(), st.Tokens(), limiter.NewMemory(time.Minute, 2, time.Minute),
		[]byte("k"), 15*time.Minute, time.Hour)
	items := service.NewItemService(st.Items())
	srv := httptest.NewServer(New(auth, items, zap.NewNop()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func newClient(srv *httptest.Server) *api.Client {
	return api.NewClient(api.NewEngine(srv.URL), secret.NewMemory(), nil)
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body any) (*http.Response, wire.ErrorEnvelope) {
	t.Helper()
	var rd bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&rd).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var env wire.ErrorEnvelope
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp, env
}

func TestClientAgainstServer(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	c := newClient(srv)

	u, err := c.SignUp(ctx, model.SignUp{Email: "ann@example.com", Password: "password1", Name: "Ann"})
	require.NoError(t, err)
	require.Equal(t, "Ann", u.Name)
	require.True(t, c.IsAuthenticated())
	require.False(t, c.Session().ExpiresAt.IsZero())

	me, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, u.ID, me.ID)

	name := "Annie"
	me, err = c.UpdateUser(ctx, model.UserUpdate{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Annie", me.Name)

	var ids []string
	for _, title := range []string{"Milk", "Bread", "Eggs"} {
		it, err := c.CreateItem(ctx, model.ItemDraft{Title: title})
		require.NoError(t, err)
		ids = append(ids, it.ID)
	}

	p1, err := c.ListItems(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, p1.Items, 2)
	require.Equal(t, 3, p1.TotalItems)
	require.True(t, p1.HasNextPage())
	p2, err := c.ListItems(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, p2.Items, 1)
	require.False(t, p2.HasNextPage())

	fav := true
	up, err := c.UpdateItem(ctx, ids[0], model.ItemDraft{Title: "Oat milk", IsFavorite: &fav})
	require.NoError(t, err)
	require.Equal(t, "Oat milk", up.Title)
	require.True(t, up.IsFavorite)

	got, err := c.GetItem(ctx, ids[0])
	require.NoError(t, err)
	require.Equal(t, up.Title, got.Title)

	require.NoError(t, c.DeleteItem(ctx, ids[1]))
	_, err = c.GetItem(ctx, ids[1])
	require.Equal(t, api.KindNotFound, api.KindOf(err))

	require.NoError(t, c.Logout(ctx))
	require.False(t, c.IsAuthenticated())

	_, err = c.Login(ctx, model.Credentials{Email: "ann@example.com", Password: "password1"})
	require.NoError(t, err)
	require.NoError(t, c.DeleteAccount(ctx))
	require.False(t, c.IsAuthenticated())
	_, err = c.Login(ctx, model.Credentials{Email: "ann@example.com", Password: "password1"})
	require.ErrorIs(t, err, errs.ErrUnauthorized)
}

func TestRefreshRotation(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	c := newClient(srv)
	_, err := c.SignUp(ctx, model.SignUp{Email: "a@b.c", Password: "password1", Name: "A"})
	require.NoError(t, err)
	first := c.Session()

	resp, _ := do(t, srv, http.MethodPost, "/auth/refresh", "", wire.RefreshRequest{RefreshToken: first.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, env := do(t, srv, http.MethodPost, "/auth/refresh", "", wire.RefreshRequest{RefreshToken: first.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "unauthorized", env.Message)
}

func TestClientRecoversFromRejectedAccessToken(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	c := newClient(srv)
	_, err := c.SignUp(ctx, model.SignUp{Email: "a@b.c", Password: "password1", Name: "A"})
	require.NoError(t, err)

	s := c.Session()
	require.NoError(t, c.SetSession(model.Tokens{AccessToken: "not-a-jwt", RefreshToken: s.RefreshToken}))
	me, err := c.CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "a@b.c", me.Email)
	require.NotEqual(t, s.RefreshToken, c.Session().RefreshToken)
}

func TestErrorStatuses(t *testing.T) {
	srv := newTestServer(t)

	resp, env := do(t, srv, http.MethodPost, "/auth/signup", "", map[string]string{"email": "x"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.NotEmpty(t, env.Message)

	signup := wire.SignUpRequest{Email: "a@b.c", Password: "password1", Name: "A"}
	resp, _ = do(t, srv, http.MethodPost, "/auth/signup", "", signup)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, env = do(t, srv, http.MethodPost, "/auth/signup", "", signup)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "already exists", env.Message)

	resp, _ = do(t, srv, http.MethodGet, "/items", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = do(t, srv, http.MethodGet, "/users/me", "garbage", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, env = do(t, srv, http.MethodGet, "/nope", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "route not found", env.Message)

	bad := wire.Credentials{Email: "a@b.c", Password: "wrong-password"}
	resp, _ = do(t, srv, http.MethodPost, "/auth/login", "", bad)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, env = do(t, srv, http.MethodPost, "/auth/login", "", bad)
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "60", resp.Header.Get("Retry-After"))
	require.NotNil(t, env.RetryAfter)
	require.Equal(t, 60, *env.RetryAfter)
}

func TestItemRouteErrors(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)
	c := newClient(srv)
	_, err := c.SignUp(ctx, model.SignUp{Email: "a@b.c", Password: "password1", Name: "A"})
	require.NoError(t, err)
	tok := c.Session().AccessToken

	resp, _ := do(t, srv, http.MethodGet, "/items/not-a-uuid", tok, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, env := do(t, srv, http.MethodGet, "/items?page=x", tok, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "page must be a number", env.Message)
	resp, env = do(t, srv, http.MethodPost, "/items", tok, wire.ItemDraft{Title: "   "})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "title is required", env.Message)
}

func TestRecoverMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(Recover(zap.NewNop()))
	r.GET("/boom", func(*gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.JSONEq(t, `{"message":"internal error"}`, w.Body.String())
}

func TestStatusOf(t *testing.T) {
	cases := map[error]int{
		errs.Validation("x"):                          http.StatusBadRequest,
		errs.ErrUnauthorized:                          http.StatusUnauthorized,
		errs.ErrNotFound:                              http.StatusNotFound,
		errs.ErrAlreadyExists:                         http.StatusConflict,
		errs.ErrConflict:                              http.StatusConflict,
		&errs.RateLimitError{RetryAfter: time.Second}: http.StatusTooManyRequests,
		context.DeadlineExceeded:                      http.StatusInternalServerError,
	}
	for err, want := range cases {
		require.Equal(t, want, statusOf(err), err.Error())
	}
}

func TestPublicMessage(t *testing.T) {
	require.Equal(t, "title is required", publicMessage(http.StatusBadRequest, errs.Validation("title is required")))
	require.Equal(t, "already exists", publicMessage(http.StatusConflict, errs.ErrAlreadyExists))
	require.Equal(t, "conflict", publicMessage(http.StatusConflict, fmt.Errorf("update: %w", errs.ErrConflict)))
	require.Equal(t, "internal error", publicMessage(http.StatusInternalServerError, context.Canceled))
}
