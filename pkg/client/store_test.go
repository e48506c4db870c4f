package client

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fithub", "token.json")
	store := NewFileStore(path)

	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.Save(StoredToken{Token: "token-1", SessionID: "s-1"}))
	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, StoredToken{Token: "token-1", SessionID: "s-1"}, *got)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}

	require.NoError(t, store.Save(StoredToken{Token: "token-2", SessionID: "s-2"}))
	got, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, "token-2", got.Token)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	require.NoError(t, store.Clear())
	_, err = store.Load()
	require.ErrorIs(t, err, ErrNoToken)
	require.NoError(t, store.Clear())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFileStore(path).Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoToken)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, store.Save(StoredToken{Token: "t", SessionID: "s"}))
	got, err := store.Load()
	require.NoError(t, err)
	got.Token = "mutated"

	again, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "t", again.Token)

	require.NoError(t, store.Clear())
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNoToken)
}
