package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/and161185/itemsync/internal/config"
	"github.com/and161185/itemsync/internal/server/httpapi"
)

func TestFlagsOverrideConfig(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ITEMSYNC_SERVER_JWT_KEY", "from-env")
	t.Setenv("ITEMSYNC_SERVER_ADDR", ":9000")

	f := flags{dsn: memoryDSN}
	cfg, err := f.load()
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Addr)
	require.Equal(t, "from-env", cfg.JWTKey)
	require.Equal(t, memoryDSN, cfg.DSN)

	f = flags{dsn: memoryDSN, addr: ":1", jwtKey: "flag"}
	cfg, err = f.load()
	require.NoError(t, err)
	require.Equal(t, ":1", cfg.Addr)
	require.Equal(t, "flag", cfg.JWTKey)
}

func TestLoadRequiresKey(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ITEMSYNC_SERVER_JWT_KEY", "")
	_, err := (&flags{dsn: memoryDSN}).load()
	require.Error(t, err)
}

func TestMemoryBackendServes(t *testing.T) {
	cfg := &config.Server{
		DSN: memoryDSN, JWTKey: "k", AccessTTL: time.Minute, RefreshTTL: time.Hour,
		Limiter: config.Limiter{Window: time.Minute, MaxFails: 5, BlockFor: time.Minute},
	}
	b, err := openBackend(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.close()

	srv := httptest.NewServer(httpapi.New(b.auth, b.items, nil).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := strings.NewReader(`{"email":"a@b.c","password":"password1","name":"A"}`)
	resp, err = http.Post(srv.URL+"/auth/signup", "application/json", body)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "itemsync-server dev")
}

func TestMigrateRejectsMemory(t *testing.T) {
	t.Chdir(t.TempDir())
	cmd := rootCmd()
	cmd.SetArgs([]string{"migrate", "--dsn", "memory"})
	require.Error(t, cmd.Execute())
}
