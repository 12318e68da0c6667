package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markui/internal/config"
)

func newTestLocal(t *testing.T) (Storage, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := NewLocal(config.LocalStorageConfig{BaseDir: dir})
	require.NoError(t, err)
	return store, dir
}

func TestNewLocal(t *testing.T) {
	t.Run("creates base dir if missing", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "objects")
		_, err := NewLocal(config.LocalStorageConfig{BaseDir: dir})
		require.NoError(t, err)

		st, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, st.IsDir())
	})

	t.Run("empty base dir", func(t *testing.T) {
		_, err := NewLocal(config.LocalStorageConfig{})
		assert.Error(t, err)
	})
}

func TestLocalPutGet(t *testing.T) {
	store, dir := newTestLocal(t)
	ctx := context.Background()

	const body = "hello object"
	info, err := store.Put(ctx, "documents/abc.pdf", strings.NewReader(body), PutObjectOptions{ContentType: "application/pdf"})
	require.NoError(t, err)
	assert.Equal(t, "documents/abc.pdf", info.Key)
	assert.Equal(t, int64(len(body)), info.Size)
	assert.Equal(t, "application/pdf", info.ContentType)

	// No temp file left behind after the atomic rename.
	entries, err := os.ReadDir(filepath.Join(dir, "documents"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "abc.pdf", entries[0].Name())

	rc, got, err := store.Get(ctx, "documents/abc.pdf")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, body, string(data))
	assert.Equal(t, int64(len(body)), got.Size)
}

func TestLocalGetNotFound(t *testing.T) {
	store, _ := newTestLocal(t)

	_, _, err := store.Get(context.Background(), "documents/missing.pdf")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalDelete(t *testing.T) {
	store, _ := newTestLocal(t)
	ctx := context.Background()

	_, err := store.Put(ctx, "documents/gone.pdf", strings.NewReader("x"), PutObjectOptions{})
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "documents/gone.pdf"))
	assert.ErrorIs(t, store.Delete(ctx, "documents/gone.pdf"), ErrNotFound)
}

func TestLocalKeyTraversal(t *testing.T) {
	store, dir := newTestLocal(t)
	ctx := context.Background()

	// Path segments that try to escape the base dir stay confined to it.
	_, err := store.Put(ctx, "../escape.pdf", strings.NewReader("x"), PutObjectOptions{})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "escape.pdf"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(filepath.Dir(dir), "escape.pdf"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalPresignGet(t *testing.T) {
	dir := t.TempDir()

	t.Run("with base url", func(t *testing.T) {
		store, err := NewLocal(config.LocalStorageConfig{BaseDir: dir, BaseURL: "http://localhost:8080/files"})
		require.NoError(t, err)

		u, err := store.PresignGet(context.Background(), "documents/abc.pdf", 0)
		require.NoError(t, err)
		assert.Equal(t, "http://localhost:8080/files/documents/abc.pdf", u)
	})

	t.Run("without base url", func(t *testing.T) {
		store, err := NewLocal(config.LocalStorageConfig{BaseDir: dir})
		require.NoError(t, err)

		_, err = store.PresignGet(context.Background(), "documents/abc.pdf", 0)
		assert.Error(t, err)
	})
}
