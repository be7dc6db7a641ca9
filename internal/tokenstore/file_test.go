package tokenstore

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackendWritesPrivateFiles(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permissions")
	}
	dir := filepath.Join(t.TempDir(), "session")
	backend, err := NewFileBackend(dir)
	require.NoError(t, err)

	require.NoError(t, backend.Set(context.Background(), "accessToken", "abc"))

	info, err := os.Stat(filepath.Join(dir, "accessToken"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	dirInfo, err := os.Stat(dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o700), dirInfo.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestFileBackendMissingKey(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	_, err = backend.Get(context.Background(), "user")
	require.ErrorIs(t, err, ErrKeyNotFound)
	require.NoError(t, backend.Delete(context.Background(), "user"))
}

func TestFileBackendRejectsPathKeys(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	require.Error(t, backend.Set(context.Background(), "../escape", "x"))
	_, err = backend.Get(context.Background(), "a/b")
	require.Error(t, err)
}

func TestNewFileBackendRequiresDir(t *testing.T) {
	_, err := NewFileBackend("  ")
	require.Error(t, err)
}
