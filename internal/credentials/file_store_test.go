package credentials

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(FileStoreConfig{StorageDir: t.TempDir()})
	require.NoError(t, err)
	return s
}

func TestFileStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return newTestFileStore(t) })
}

func TestFileStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "portalctl")

	_, err := NewFileStore(FileStoreConfig{StorageDir: dir})
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	}
}

func TestFileStore_FileLayoutAndPermissions(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	require.NoError(t, s.Save(ctx, Credentials{AccessToken: "a1", RefreshToken: "r1"}))

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)

	var doc map[string]string
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, map[string]string{"access_token": "a1", "refresh_token": "r1"}, doc)

	// No temp files are left behind.
	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_ClearRemovesFile(t *testing.T) {
	ctx := context.Background()
	s := newTestFileStore(t)

	require.NoError(t, s.Save(ctx, Credentials{AccessToken: "a1", RefreshToken: "r1"}))
	require.NoError(t, s.Clear(ctx))

	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_SharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	writer, err := NewFileStore(FileStoreConfig{StorageDir: dir})
	require.NoError(t, err)
	reader, err := NewFileStore(FileStoreConfig{StorageDir: dir})
	require.NoError(t, err)

	require.NoError(t, writer.Save(ctx, Credentials{AccessToken: "a1", RefreshToken: "r1"}))

	creds, err := reader.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "a1", creds.AccessToken)
}

func TestFileStore_CorruptFile(t *testing.T) {
	s := newTestFileStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0600))

	ctx := context.Background()
	creds, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, creds)

	require.NoError(t, s.Save(ctx, Credentials{AccessToken: "a2", RefreshToken: "r2"}))
	creds, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, creds)
	assert.Equal(t, "a2", creds.AccessToken)

	require.NoError(t, os.WriteFile(s.Path(), []byte("{not json"), 0600))
	require.NoError(t, s.Clear(ctx))
	assert.NoFileExists(t, s.Path())
}
