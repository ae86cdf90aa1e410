//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/zeusync/scenekit/internal/app"
	"github.com/zeusync/scenekit/internal/config"
)

// InitializeRoot builds the session root. The returned cleanup closes the
// scene manager and the document store.
func InitializeRoot(ctx context.Context, cfg *config.Config) (*app.Root, func(), error) {
	wire.Build(app.ProviderSet)
	return nil, nil, nil
}
