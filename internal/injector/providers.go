package injector

import (
	"context"
	"fmt"

	"github.com/zeusync/jo/internal/config"
	"github.com/zeusync/jo/internal/core/events/bus"
	"github.com/zeusync/jo/internal/core/observability/log"
	"github.com/zeusync/jo/internal/core/scripting/engine"
	"github.com/zeusync/jo/internal/core/scripting/script"
	"github.com/zeusync/jo/internal/feed"
)

// ProvideLogger builds the process logger; the cleanup flushes it.
func ProvideLogger(cfg *config.Config) (*log.Logger, func(), error) {
	logger, err := log.NewWithConfig(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideSources loads the configured modules followed by the inline scripts
// in name order.
func ProvideSources(ctx context.Context, cfg *config.Config, logger log.Log) ([]script.Source, error) {
	sources, err := script.NewLoader(cfg.Scripts.Paths, logger).Load(ctx, cfg.Scripts.Modules)
	if err != nil {
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	for _, name := range cfg.Scripts.InlineNames() {
		sources = append(sources, script.NewInline(name, cfg.Scripts.Inline[name]))
	}
	return sources, nil
}

func ProvideEngine(cfg *config.Config, sources []script.Source, logger log.Log) (*engine.Engine, error) {
	return engine.New(cfg.Engine, sources, logger)
}

func ProvideBus(logger log.Log) bus.EventBus {
	b := bus.New()
	b.AddObserver(bus.NewLogObserver(logger))
	return b
}

// ProvideHub builds the feed hub and subscribes it to b.
func ProvideHub(sources []script.Source, b bus.EventBus, logger log.Log) (*feed.Hub, error) {
	hub := feed.NewHub(script.Fingerprint(sources), logger)
	if _, err := hub.Attach(b); err != nil {
		return nil, err
	}
	return hub, nil
}

func ProvideFeedServer(hub *feed.Hub, logger log.Log) *feed.Server {
	return feed.NewServer(hub, logger)
}
