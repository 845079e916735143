package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/wire"
)

func TestEngineDoDecodesAndSendsBearer(t *testing.T) {
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/items", r.URL.Path)
		require.Equal(t, "2", r.URL.Query().Get("page"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"items":[{"id":"1","title":"A","is_favorite":true,"created_at":"2024-05-01T10:00:00Z","updated_at":"2024-05-01T10:00:00Z"}],"page":2,"limit":10,"total_items":11,"total_pages":2}`)
	}))
	defer srv.Close()

	e := NewEngine(srv.URL + "/v1/")
	var page wire.ItemPage
	require.NoError(t, e.Do(context.Background(), ListItems(2, 10), "tok", &page))
	require.Len(t, page.Items, 1)
	require.Equal(t, "A", page.Items[0].Title)
	require.True(t, page.Items[0].IsFavorite)
	require.True(t, page.Items[0].CreatedAt.Equal(created))
	require.Equal(t, 2, page.TotalPages)
}

func TestEngineOmitsBearerWhenNotRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Empty(t, r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "a@b.c", body["email"])
		_, _ = io.WriteString(w, `{"access_token":"a","refresh_token":"r"}`)
	}))
	defer srv.Close()

	var resp wire.AuthResponse
	err := NewEngine(srv.URL).Do(context.Background(), Login(model.Credentials{Email: "a@b.c", Password: "x"}), "tok", &resp)
	require.NoError(t, err)
	require.Equal(t, "a", resp.AccessToken)
}

func TestEngineFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		out    bool
		want   Kind
	}{
		{"not found", http.StatusNotFound, `{"message":"nope"}`, true, KindNotFound},
		{"server", http.StatusBadGateway, ``, true, KindServer},
		{"no data", http.StatusOK, ``, true, KindNoData},
		{"decode", http.StatusOK, `{"items":"oops"}`, true, KindDecodeFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			var page wire.ItemPage
			err := NewEngine(srv.URL).Do(context.Background(), ListItems(1, 10), "", &page)
			require.Error(t, err)
			require.Equal(t, tt.want, KindOf(err))
		})
	}
}

func TestEngineNilOutAcceptsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewEngine(srv.URL).Do(context.Background(), DeleteItem("1"), "t", nil))
}

func TestEngineInvalidTarget(t *testing.T) {
	err := NewEngine("not a url").Do(context.Background(), CurrentUser(), "", nil)
	require.Equal(t, KindInvalidTarget, KindOf(err))

	err = NewEngine("ftp://files.example.com").Do(context.Background(), CurrentUser(), "", nil)
	require.Equal(t, KindInvalidTarget, KindOf(err))
}

func TestEngineEncodeFailed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("request must not be sent")
	}))
	defer srv.Close()

	ep := Endpoint{op: OpCreateItem, body: map[string]any{"bad": make(chan int)}}
	err := NewEngine(srv.URL).Do(context.Background(), ep, "", nil)
	require.Equal(t, KindEncodeFailed, KindOf(err))
}

func TestEngineCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewEngine(srv.URL).Do(ctx, CurrentUser(), "", nil)
	require.Equal(t, KindCancelled, KindOf(err))
}

func TestEngineNetworkUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close()

	err := NewEngine(addr).Do(context.Background(), CurrentUser(), "", nil)
	require.Equal(t, KindNetworkUnavailable, KindOf(err))
	require.True(t, err.(*Error).IsRecoverable())
}
