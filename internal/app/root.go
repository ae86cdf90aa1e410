// Package app holds the session root shared by the console and the binary,
// and the providers that build it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/zeusync/scenekit/internal/config"
	"github.com/zeusync/scenekit/internal/core/events/bus"
	"github.com/zeusync/scenekit/internal/core/ids"
	"github.com/zeusync/scenekit/internal/core/models"
	"github.com/zeusync/scenekit/internal/core/observability/log"
	"github.com/zeusync/scenekit/internal/core/schema/registry"
	"github.com/zeusync/scenekit/internal/core/storage"
	"github.com/zeusync/scenekit/internal/scene"
)

// Root is everything a session owns. Console commands receive it whole.
type Root struct {
	// Session identifies this run in logs.
	Session  string
	Config   *config.Config
	Logger   log.Log
	IDs      *ids.Allocator
	Registry *registry.Registry
	Events   bus.EventBus
	Store    models.Store
	Storage  storage.Store
	Scenes   *scene.Manager
}

func NewRoot(
	cfg *config.Config,
	logger log.Log,
	alloc *ids.Allocator,
	reg *registry.Registry,
	events bus.EventBus,
	store models.Store,
	docs storage.Store,
	scenes *scene.Manager,
) *Root {
	session := uuid.NewString()
	return &Root{
		Session:  session,
		Config:   cfg,
		Logger:   logger.With(log.String("session", session)),
		IDs:      alloc,
		Registry: reg,
		Events:   events,
		Store:    store,
		Storage:  docs,
		Scenes:   scenes,
	}
}

// Autoload loads the scenes listed in the configuration, in order. A scene
// that fails to load is logged and skipped; the failures are returned joined.
func (r *Root) Autoload(ctx context.Context) error {
	if r.Config == nil {
		return nil
	}

	var errs []error
	for _, key := range r.Config.Scenes.Autoload {
		id, err := r.Scenes.LoadScene(ctx, key)
		if err != nil {
			r.Logger.Warn("autoload failed", log.String("path", key), log.Error(err))
			errs = append(errs, fmt.Errorf("autoload %s: %w", key, err))
			continue
		}
		r.Logger.Debug("autoloaded scene", log.String("path", key), log.Uint64("scene", uint64(id)))
	}
	return errors.Join(errs...)
}
