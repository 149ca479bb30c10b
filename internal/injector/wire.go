//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"context"

	"github.com/google/wire"

	"github.com/zeusync/jo/internal/config"
	"github.com/zeusync/jo/internal/core/observability/log"
	"github.com/zeusync/jo/internal/runner"
)

var providers = wire.NewSet(
	ProvideLogger,
	wire.Bind(new(log.Log), new(*log.Logger)),
	ProvideSources,
	ProvideEngine,
	ProvideBus,
	ProvideHub,
	ProvideFeedServer,
	runner.New,
)

func InitializeRunner(ctx context.Context, cfg *config.Config) (*runner.Runner, func(), error) {
	wire.Build(providers)
	return nil, nil, nil
}
