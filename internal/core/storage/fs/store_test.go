package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenekit/internal/core/storage"
)

func TestStoreReadWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, storage.DriverFilesystem, s.Driver())

	require.NoError(t, s.Write(ctx, "levels/test.scene.yaml", []byte("name: Test\n")))
	require.NoError(t, s.Write(ctx, "levels/test.scene.yaml", []byte("name: Test2\n")))

	data, err := s.Read(ctx, "levels/test.scene.yaml")
	require.NoError(t, err)
	assert.Equal(t, "name: Test2\n", string(data))

	ok, err := s.Exists(ctx, "levels/test.scene.yaml")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Exists(ctx, "levels")
	require.NoError(t, err)
	assert.False(t, ok, "directories are not documents")
}

func TestStoreLeavesNoTempFiles(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	s, err := New(root)
	require.NoError(t, err)

	require.NoError(t, s.Write(context.Background(), "a.scene.yaml", []byte("x")))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.scene.yaml", entries[0].Name())
}

func TestStoreNotFoundAndInvalidKeys(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Read(ctx, "missing.scene.yaml")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "missing.scene.yaml"), storage.ErrNotFound)

	assert.ErrorIs(t, s.Write(ctx, "../escape.yaml", []byte("x")), storage.ErrInvalidKey)
	_, err = s.Read(ctx, "/abs.yaml")
	assert.ErrorIs(t, err, storage.ErrInvalidKey)
}

func TestStoreListAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	root := t.TempDir()
	s, err := New(root)
	require.NoError(t, err)

	for _, key := range []string{"b.scene.yaml", "levels/a.scene.yaml", "a.scene.yaml"} {
		require.NoError(t, s.Write(ctx, key, []byte("x")))
	}
	require.NoError(t, os.WriteFile(filepath.Join(root, ".tmp-123"), []byte("partial"), 0o644))

	keys, err := s.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.scene.yaml", "b.scene.yaml", "levels/a.scene.yaml"}, keys)

	keys, err = s.List(ctx, "levels/")
	require.NoError(t, err)
	assert.Equal(t, []string{"levels/a.scene.yaml"}, keys)

	require.NoError(t, s.Delete(ctx, "a.scene.yaml"))
	keys, err = s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	t.Parallel()
	s, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Write(ctx, "a.scene.yaml", []byte("x")), context.Canceled)
}
