package api

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/and161185/itemsync/internal/convert"
	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/secret"
	"github.com/and161185/itemsync/internal/wire"
)

// Client is the authenticated API client. It owns the session credentials,
// mirrors them into the secret store and refreshes the access token once when
// an authenticated call is rejected.
type Client struct {
	engine  *Engine
	secrets secret.Store
	log     *zap.Logger

	mu     sync.Mutex
	tokens model.Tokens

	refreshes      singleflight.Group
	refreshTimeout time.Duration
}

// NewClient wraps the engine. secrets may be nil, in which case credentials live in memory only.
func NewClient(engine *Engine, secrets secret.Store, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{engine: engine, secrets: secrets, log: log, refreshTimeout: DefaultTimeout}
}

// Restore reloads credentials saved by a previous run.
func (c *Client) Restore() error {
	if c.secrets == nil {
		return nil
	}
	access, err := c.secrets.Load(secret.KeyAccessToken)
	if err != nil && !errors.Is(err, secret.ErrNotFound) {
		return err
	}
	refresh, err := c.secrets.Load(secret.KeyRefreshToken)
	if err != nil && !errors.Is(err, secret.ErrNotFound) {
		return err
	}
	c.mu.Lock()
	c.tokens = model.Tokens{AccessToken: access, RefreshToken: refresh, ExpiresAt: tokenExpiry(access)}
	c.mu.Unlock()
	return nil
}

// Session returns a copy of the current credentials.
func (c *Client) Session() model.Tokens {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens
}

// IsAuthenticated reports whether an access token is held.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens.AccessToken != ""
}

// SetSession replaces the credentials and persists them.
func (c *Client) SetSession(t model.Tokens) error {
	if t.ExpiresAt.IsZero() {
		t.ExpiresAt = tokenExpiry(t.AccessToken)
	}
	c.mu.Lock()
	c.tokens = t
	c.mu.Unlock()

	if c.secrets == nil {
		return nil
	}
	if err := c.secrets.Save(secret.KeyAccessToken, t.AccessToken); err != nil {
		return err
	}
	return c.secrets.Save(secret.KeyRefreshToken, t.RefreshToken)
}

// ClearSession forgets the credentials in memory and in the secret store.
func (c *Client) ClearSession() {
	c.mu.Lock()
	c.tokens = model.Tokens{}
	c.mu.Unlock()

	if c.secrets == nil {
		return
	}
	for _, k := range []string{secret.KeyAccessToken, secret.KeyRefreshToken} {
		if err := c.secrets.Delete(k); err != nil {
			c.log.Warn("delete secret", zap.String("key", k), zap.Error(err))
		}
	}
}

// Send performs ep, refreshing the access token once on an unauthorized answer.
func (c *Client) Send(ctx context.Context, ep Endpoint, out any) error {
	stale := c.Session()
	err := c.engine.Do(ctx, ep, stale.AccessToken, out)
	if err == nil || KindOf(err) != KindUnauthorized || !ep.RequiresAuth() || stale.RefreshToken == "" {
		return err
	}

	if rerr := c.refresh(ctx, stale.AccessToken); rerr != nil {
		if ctx.Err() != nil {
			return ClassifyTransport(ctx.Err())
		}
		c.log.Info("token refresh failed", zap.Error(rerr))
		return err
	}
	// One retry only; its failures surface as-is.
	return c.engine.Do(ctx, ep, c.Session().AccessToken, out)
}

// refresh exchanges the refresh token for a new pair. Concurrent callers that
// observed the same stale access token share a single refresh call. The shared
// call outlives the caller that started it; each caller stops waiting when its
// own context ends.
func (c *Client) refresh(ctx context.Context, staleAccess string) error {
	ch := c.refreshes.DoChan("refresh:"+staleAccess, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
		defer cancel()
		return nil, c.doRefresh(rctx, staleAccess)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ClassifyTransport(ctx.Err())
	}
}

func (c *Client) doRefresh(ctx context.Context, staleAccess string) error {
	cur := c.Session()
	if cur.AccessToken != staleAccess && cur.AccessToken != "" {
		return nil // rotated meanwhile by another caller
	}
	if cur.RefreshToken == "" {
		return ErrUnauthorized
	}

	var resp wire.AuthResponse
	if err := c.engine.Do(ctx, RefreshToken(cur.RefreshToken), "", &resp); err != nil {
		if rejected(err) {
			c.log.Info("refresh token rejected, session cleared", zap.Error(err))
			c.ClearSession()
		}
		return err
	}
	if resp.AccessToken == "" {
		c.ClearSession()
		return newError(KindNoData, "refresh response without access token", nil)
	}
	next := model.Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	if next.RefreshToken == "" {
		next.RefreshToken = cur.RefreshToken
	}
	if err := c.SetSession(next); err != nil {
		c.log.Warn("persist refreshed tokens", zap.Error(err))
	}
	c.log.Debug("access token refreshed")
	return nil
}

// rejected reports whether the server refused the refresh token itself.
// Transport failures keep the session for a later attempt.
func rejected(err error) bool {
	switch KindOf(err) {
	case KindUnauthorized, KindForbidden, KindBadRequest:
		return true
	default:
		return false
	}
}

// tokenExpiry reads the exp claim without verifying the signature.
func tokenExpiry(token string) time.Time {
	if token == "" {
		return time.Time{}
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// --- Auth ---

func (c *Client) authenticate(ctx context.Context, ep Endpoint) (model.User, error) {
	var resp wire.AuthResponse
	if err := c.Send(ctx, ep, &resp); err != nil {
		return model.User{}, err
	}
	res := convert.FromWireAuth(resp)
	if res.Tokens.AccessToken == "" {
		return model.User{}, newError(KindNoData, "auth response without access token", nil)
	}
	if err := c.SetSession(res.Tokens); err != nil {
		return model.User{}, err
	}
	if res.User == nil {
		return model.User{}, nil
	}
	return *res.User, nil
}

// Login authenticates with email and password and stores the session.
func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.User, error) {
	return c.authenticate(ctx, Login(creds))
}

// SignUp registers a new account and stores the session.
func (c *Client) SignUp(ctx context.Context, s model.SignUp) (model.User, error) {
	return c.authenticate(ctx, SignUp(s))
}

// Logout tells the server (best effort) and always clears local credentials.
func (c *Client) Logout(ctx context.Context) error {
	err := c.engine.Do(ctx, Logout(), c.Session().AccessToken, nil)
	c.ClearSession()
	if err != nil && KindOf(err) != KindUnauthorized {
		return err
	}
	return nil
}

// CurrentUser fetches the profile of the signed-in user.
func (c *Client) CurrentUser(ctx context.Context) (model.User, error) {
	var u wire.User
	if err := c.Send(ctx, CurrentUser(), &u); err != nil {
		return model.User{}, err
	}
	return convert.FromWireUser(u), nil
}

// UpdateUser applies profile changes.
func (c *Client) UpdateUser(ctx context.Context, upd model.UserUpdate) (model.User, error) {
	var u wire.User
	if err := c.Send(ctx, UpdateUser(upd), &u); err != nil {
		return model.User{}, err
	}
	return convert.FromWireUser(u), nil
}

// DeleteAccount removes the account and clears the session.
func (c *Client) DeleteAccount(ctx context.Context) error {
	if err := c.Send(ctx, DeleteAccount(), nil); err != nil {
		return err
	}
	c.ClearSession()
	return nil
}

// --- Items ---

// ListItems fetches one page of items.
func (c *Client) ListItems(ctx context.Context, page, limit int) (model.ItemPage, error) {
	var p wire.ItemPage
	if err := c.Send(ctx, ListItems(page, limit), &p); err != nil {
		return model.ItemPage{}, err
	}
	return convert.FromWireItemPage(p), nil
}

// GetItem fetches a single item.
func (c *Client) GetItem(ctx context.Context, id string) (model.Item, error) {
	var it wire.Item
	if err := c.Send(ctx, GetItem(id), &it); err != nil {
		return model.Item{}, err
	}
	return convert.FromWireItem(it), nil
}

// CreateItem creates an item and returns it with its server-assigned id.
func (c *Client) CreateItem(ctx context.Context, d model.ItemDraft) (model.Item, error) {
	var it wire.Item
	if err := c.Send(ctx, CreateItem(d), &it); err != nil {
		return model.Item{}, err
	}
	return convert.FromWireItem(it), nil
}

// UpdateItem replaces the editable fields of an item.
func (c *Client) UpdateItem(ctx context.Context, id string, d model.ItemDraft) (model.Item, error) {
	var it wire.Item
	if err := c.Send(ctx, UpdateItem(id, d), &it); err != nil {
		return model.Item{}, err
	}
	return convert.FromWireItem(it), nil
}

// DeleteItem deletes an item by id.
func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.Send(ctx, DeleteItem(id), nil)
}
