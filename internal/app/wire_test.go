package app

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wastewatch/wastewatch/internal/auth"
	"github.com/wastewatch/wastewatch/internal/session"
)

func mockBackend(t *testing.T) string {
	t.Helper()
	cfg := &Config{MockJWTSecret: "test", MockAccessTTL: time.Hour}
	srv := NewMockServer(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	require.NoError(t, srv.Seed("wastewatch"))
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return ts.URL + srv.Prefix()
}

func testConfig(baseURL string) *Config {
	return &Config{APIBaseURL: baseURL, APITimeout: 5 * time.Second, APICSRFCookie: "csrftoken", LogLevel: "error"}
}

func TestBuildRestoresSessionFromFileStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(mockBackend(t))
	cfg.TokenStore = TokenStoreFile
	cfg.TokenStoreDir = filepath.Join(t.TempDir(), "session")
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	rt, err := Build(ctx, BuildParams{Config: cfg, Logger: quiet})
	require.NoError(t, err)
	assert.Equal(t, session.StateAnonymous, rt.Sessions.Snapshot().State)
	_, err = rt.Auth.Login(ctx, auth.LoginForm{Username: "officer", Password: "wastewatch"})
	require.NoError(t, err)
	require.NoError(t, rt.Close())

	restarted, err := Build(ctx, BuildParams{Config: cfg, Logger: quiet})
	require.NoError(t, err)
	t.Cleanup(func() { _ = restarted.Close() })
	snap := restarted.Sessions.Snapshot()
	require.True(t, snap.Authenticated())
	assert.Equal(t, "officer", snap.User.Username)
	require.NoError(t, restarted.Dashboard.Load(ctx))
}

func TestBuildWithRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()
	cfg := testConfig(mockBackend(t))
	cfg.TokenStore = TokenStoreRedis
	cfg.RedisAddr = mr.Addr()
	cfg.TokenKeyPrefix = "ww:"

	rt, err := Build(ctx, BuildParams{Config: cfg, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })

	_, err = rt.Auth.Login(ctx, auth.LoginForm{Username: "citizen", Password: "wastewatch"})
	require.NoError(t, err)
	assert.True(t, mr.Exists("ww:accessToken"))
	assert.True(t, mr.Exists("ww:user"))
}

func TestBuildRequiresConfig(t *testing.T) {
	_, err := Build(context.Background(), BuildParams{})
	require.Error(t, err)
}
