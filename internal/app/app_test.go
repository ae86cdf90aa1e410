package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/scenekit/internal/config"
	"github.com/zeusync/scenekit/internal/core/events/bus"
	"github.com/zeusync/scenekit/internal/core/ids"
	"github.com/zeusync/scenekit/internal/core/observability/log"
	"github.com/zeusync/scenekit/internal/core/storage"
	"github.com/zeusync/scenekit/internal/core/storage/s3"
)

func TestOpenStorageDrivers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  config.StorageConfig
		want storage.Driver
	}{
		{name: "fs", cfg: config.StorageConfig{Driver: storage.DriverFilesystem, Root: filepath.Join(dir, "fs")}, want: storage.DriverFilesystem},
		{name: "default", cfg: config.StorageConfig{Root: filepath.Join(dir, "default")}, want: storage.DriverFilesystem},
		{name: "memory", cfg: config.StorageConfig{Driver: storage.DriverMemory}, want: storage.DriverMemory},
		{name: "sqlite", cfg: config.StorageConfig{Driver: storage.DriverSQLite, SQLite: config.SQLiteConfig{Path: filepath.Join(dir, "scenes.db")}}, want: storage.DriverSQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, err := OpenStorage(ctx, tt.cfg)
			require.NoError(t, err)
			defer func() { _ = docs.Close() }()
			assert.Equal(t, tt.want, docs.Driver())

			require.NoError(t, docs.Write(ctx, "a.scene.yaml", []byte("name: A\n")))
			data, err := docs.Read(ctx, "a.scene.yaml")
			require.NoError(t, err)
			assert.Equal(t, "name: A\n", string(data))
		})
	}
}

func TestOpenStorageErrors(t *testing.T) {
	ctx := context.Background()

	_, err := OpenStorage(ctx, config.StorageConfig{Driver: "tape"})
	assert.ErrorIs(t, err, storage.ErrUnknownDriver)

	_, err = OpenStorage(ctx, config.StorageConfig{Driver: storage.DriverS3})
	assert.ErrorIs(t, err, s3.ErrBucketRequired)
}

func newTestRoot(t *testing.T, cfg *config.Config) *Root {
	t.Helper()
	ctx := context.Background()

	logger := log.Nop()
	alloc := ids.NewAllocator()
	reg, err := ProvideRegistry()
	require.NoError(t, err)
	events := bus.New()
	store := ProvideStore(alloc, reg, events, logger)
	docs, closeDocs, err := ProvideStorage(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(closeDocs)
	mgr, closeMgr, err := ProvideManager(store, reg, docs, alloc, events, logger)
	require.NoError(t, err)
	t.Cleanup(closeMgr)

	return NewRoot(cfg, logger, alloc, reg, events, store, docs, mgr)
}

func TestRootAutoload(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Storage.Driver = storage.DriverMemory
	cfg.Scenes.Autoload = []string{"menu.scene.yaml", "missing.scene.yaml", "level.scene.yaml"}

	root := newTestRoot(t, cfg)
	assert.NotEmpty(t, root.Session)
	require.NoError(t, root.Storage.Write(ctx, "menu.scene.yaml", []byte("name: Menu\nentity_data:\n  Cursor:\n    Position: {x: 1, y: 1}\n")))
	require.NoError(t, root.Storage.Write(ctx, "level.scene.yaml", []byte("name: Level\nentity_data: {}\n")))

	err := root.Autoload(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Contains(t, err.Error(), "missing.scene.yaml")

	scenes := root.Scenes.Scenes()
	require.Len(t, scenes, 2)
	assert.Equal(t, "Menu", scenes[0].Name)
	assert.Equal(t, 1, scenes[0].Members)
	assert.Equal(t, "Level", scenes[1].Name)
	assert.True(t, scenes[1].Target)
}

func TestProvideLoggerRejectsBadLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Log.Level = "loud"
	_, err := ProvideLogger(cfg)
	assert.Error(t, err)
}
