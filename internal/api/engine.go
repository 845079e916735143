package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// DefaultTimeout bounds a single exchange when the caller's context has no deadline.
const DefaultTimeout = 30 * time.Second

const maxResponseBody = 4 << 20

// Doer is satisfied by *http.Client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Engine turns an endpoint plus a bearer token into a decoded response or a typed error.
// It holds no session state.
type Engine struct {
	baseURL string
	http    Doer
	log     *zap.Logger
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(d Doer) EngineOption { return func(e *Engine) { e.http = d } }

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) EngineOption { return func(e *Engine) { e.log = l } }

// NewEngine constructs an engine for the given base URL (e.g. "https://api.example.com/v1").
func NewEngine(baseURL string, opts ...EngineOption) *Engine {
	e := &Engine{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// BaseURL returns the configured base URL.
func (e *Engine) BaseURL() string { return e.baseURL }

// buildURL joins the base URL with the endpoint path and query.
func (e *Engine) buildURL(ep Endpoint) (string, error) {
	u, err := url.Parse(e.baseURL + ep.Path())
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", errors.New("base URL must be absolute")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}
	if q := ep.Query(); q != nil {
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// Do performs one exchange. When out is non-nil a 2xx body is decoded into it.
func (e *Engine) Do(ctx context.Context, ep Endpoint, token string, out any) error {
	target, err := e.buildURL(ep)
	if err != nil {
		return newError(KindInvalidTarget, err.Error(), err)
	}

	var body io.Reader
	if b := ep.Body(); b != nil {
		raw, err := json.Marshal(b)
		if err != nil {
			return newError(KindEncodeFailed, "", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, ep.Method(), target, body)
	if err != nil {
		return newError(KindInvalidTarget, err.Error(), err)
	}
	req.Header = ep.Headers()
	if ep.RequiresAuth() && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := e.http.Do(req)
	if err != nil {
		typed := ClassifyTransport(err)
		e.log.Debug("http",
			zap.String("op", ep.Operation().String()),
			zap.String("method", ep.Method()),
			zap.String("path", ep.Path()),
			zap.String("kind", typed.Kind.String()),
			zap.Duration("dur", time.Since(start)),
		)
		return typed
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return ClassifyTransport(err)
	}

	e.log.Debug("http",
		zap.String("op", ep.Operation().String()),
		zap.String("method", ep.Method()),
		zap.String("path", ep.Path()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("dur", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return ClassifyResponse(resp, raw)
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return newError(KindNoData, "", nil)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return newError(KindDecodeFailed, err.Error(), err)
	}
	return nil
}
