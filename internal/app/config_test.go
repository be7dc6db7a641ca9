package app

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://127.0.0.1:8000/api")
	for _, key := range []string{"TOKEN_STORE", "LOG_LEVEL", "API_TIMEOUT", "API_CSRF_COOKIE", "MOCK_ACCESS_TTL", "APP_ENV"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, TokenStoreFile, cfg.TokenStore)
	assert.Equal(t, 15*time.Second, cfg.APITimeout)
	assert.Equal(t, "csrftoken", cfg.APICSRFCookie)
	assert.Equal(t, 60*time.Minute, cfg.MockAccessTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name, key, value, want string
	}{
		{"relative base url", "API_BASE_URL", "/api", "API_BASE_URL"},
		{"unknown store", "TOKEN_STORE", "sqlite", "TOKEN_STORE"},
		{"unknown level", "LOG_LEVEL", "loud", "LOG_LEVEL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("API_BASE_URL", "http://127.0.0.1:8000/api")
			t.Setenv("TOKEN_STORE", "memory")
			t.Setenv("LOG_LEVEL", "warn")
			t.Setenv(tc.key, tc.value)
			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestNewLoggerHonoursLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{LogFormat: "json", LogLevel: "info"}, &buf)
	logger.Debug("hidden")
	logger.Info("shown", slog.String("k", "v"))
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"k":"v"`)
}

func TestImageContentType(t *testing.T) {
	assert.Equal(t, "image/png", ImageContentType("photo.PNG"))
	assert.Equal(t, "image/webp", ImageContentType("a.webp"))
	assert.Empty(t, ImageContentType("notes.txt"))
}

func TestEnvFilesSkippedInTestMode(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\n"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".env.local"), 0o700))

	t.Setenv(testModeEnv, "1")
	assert.Empty(t, EnvFiles(dir))

	t.Setenv(testModeEnv, "")
	assert.Equal(t, []string{filepath.Join(dir, ".env")}, EnvFiles(dir))
}
