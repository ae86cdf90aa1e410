package app

import (
	"context"
	"fmt"

	"github.com/zeusync/scenekit/internal/config"
	"github.com/zeusync/scenekit/internal/core/storage"
	"github.com/zeusync/scenekit/internal/core/storage/fs"
	"github.com/zeusync/scenekit/internal/core/storage/memory"
	"github.com/zeusync/scenekit/internal/core/storage/s3"
	"github.com/zeusync/scenekit/internal/core/storage/sqlite"
)

// OpenStorage opens the scene document store selected by cfg.Driver.
func OpenStorage(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	switch cfg.Driver {
	case storage.DriverFilesystem, "":
		store, err := fs.New(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("open fs storage: %w", err)
		}
		return store, nil
	case storage.DriverMemory:
		return memory.New(), nil
	case storage.DriverSQLite:
		store, err := sqlite.New(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite storage: %w", err)
		}
		return store, nil
	case storage.DriverS3:
		store, err := s3.New(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("open s3 storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: %q", storage.ErrUnknownDriver, cfg.Driver)
	}
}
