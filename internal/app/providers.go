package app

import (
	"context"

	"github.com/google/wire"

	"github.com/zeusync/scenekit/internal/config"
	"github.com/zeusync/scenekit/internal/core/events/bus"
	"github.com/zeusync/scenekit/internal/core/ids"
	"github.com/zeusync/scenekit/internal/core/models"
	"github.com/zeusync/scenekit/internal/core/observability/log"
	"github.com/zeusync/scenekit/internal/core/schema/registry"
	"github.com/zeusync/scenekit/internal/core/storage"
	"github.com/zeusync/scenekit/internal/game/components"
	"github.com/zeusync/scenekit/internal/scene"
)

// ProviderSet builds a Root from a context and a *config.Config.
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ids.NewAllocator,
	ProvideRegistry,
	bus.New,
	ProvideStore,
	ProvideStorage,
	ProvideManager,
	NewRoot,
)

func ProvideLogger(cfg *config.Config) (log.Log, error) {
	logCfg, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	logger, err := log.New(logCfg)
	if err != nil {
		return nil, err
	}
	return logger, nil
}

// ProvideRegistry returns a registry holding the demo components.
func ProvideRegistry() (*registry.Registry, error) {
	reg := registry.New()
	if err := components.Register(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

func ProvideStore(alloc *ids.Allocator, reg *registry.Registry, events bus.EventBus, logger log.Log) models.Store {
	return models.NewMemStore(alloc, reg, events, logger)
}

func ProvideStorage(ctx context.Context, cfg *config.Config) (storage.Store, func(), error) {
	docs, err := OpenStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, err
	}
	return docs, func() { _ = docs.Close() }, nil
}

func ProvideManager(
	store models.Store,
	reg *registry.Registry,
	docs storage.Store,
	alloc *ids.Allocator,
	events bus.EventBus,
	logger log.Log,
) (*scene.Manager, func(), error) {
	mgr, err := scene.NewManager(store, reg, docs, alloc, events, logger)
	if err != nil {
		return nil, nil, err
	}
	return mgr, mgr.Close, nil
}
