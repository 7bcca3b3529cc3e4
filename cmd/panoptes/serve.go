package main

import (
	"context"

	"github.com/adamkirk/panoptes/internal/app"
	"github.com/adamkirk/panoptes/internal/config"
	"github.com/adamkirk/panoptes/internal/services"
)

func serve(ctx context.Context, cfg *config.Config) error {
	return app.New(cfg,
		app.WithBuilderOptions(services.WithStoreMonitorOptions(storeMonitorOptions(cfg)...)),
	).Run(ctx)
}

func storeMonitorOptions(cfg *config.Config) []services.StoreMonitorOption {
	return []services.StoreMonitorOption{
		services.WithPingInterval(cfg.StoreMonitor.PingInterval()),
		services.WithPingTimeout(cfg.StoreMonitor.PingTimeout()),
		services.WithMaxFailures(cfg.StoreMonitor.MaxFailures),
	}
}
