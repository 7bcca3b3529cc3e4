package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/adamkirk/panoptes/internal/apirouter"
	"github.com/adamkirk/panoptes/internal/config"
	"github.com/adamkirk/panoptes/internal/ingestion"
	"github.com/adamkirk/panoptes/internal/logging"
	"github.com/adamkirk/panoptes/internal/redis"
	"github.com/adamkirk/panoptes/internal/webhookstore"
	"github.com/adamkirk/panoptes/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// ServiceBuilder wires the store, router and workers for the configured
// service and keeps track of what has to be released on shutdown.
type ServiceBuilder struct {
	ctx        context.Context
	cfg        *config.Config
	logger     *logging.Logger
	supervisor *worker.WorkerSupervisor

	storeMonitorOpts []StoreMonitorOption
	cleanupFuncs     []func(context.Context, *logging.LoggerWithCtx)
}

type BuilderOption func(*ServiceBuilder)

// WithStoreMonitorOptions tunes the store monitor worker.
func WithStoreMonitorOptions(opts ...StoreMonitorOption) BuilderOption {
	return func(b *ServiceBuilder) {
		b.storeMonitorOpts = append(b.storeMonitorOpts, opts...)
	}
}

func NewServiceBuilder(ctx context.Context, cfg *config.Config, logger *logging.Logger, opts ...BuilderOption) *ServiceBuilder {
	b := &ServiceBuilder{
		ctx:    ctx,
		cfg:    cfg,
		logger: logger,
		supervisor: worker.NewWorkerSupervisor(logger,
			worker.WithShutdownTimeout(cfg.ShutdownTimeout()+time.Second)),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildWorkers registers the HTTP server and the store monitor on the
// supervisor and returns it ready to run.
func (b *ServiceBuilder) BuildWorkers() (*worker.WorkerSupervisor, error) {
	b.logger.Debug("building API service workers")

	store, err := b.buildStore()
	if err != nil {
		b.logger.Error("webhook store setup failed", zap.Error(err))
		return nil, err
	}

	b.logger.Debug("initializing webhook store", zap.String("driver", string(b.cfg.Store.Driver)))
	if err := store.Init(b.ctx); err != nil {
		b.logger.Error("webhook store initialization failed", zap.Error(err))
		return nil, err
	}

	ingestor := ingestion.NewGithubIngestor(store)

	router := apirouter.NewRouter(
		apirouter.RouterConfig{
			ServiceName:        b.cfg.ServiceName,
			GinMode:            b.cfg.GinMode,
			DebugErrorsEnabled: b.cfg.API.DebugErrorsEnabled,
			AccessLogEnabled:   b.cfg.API.AccessLog.Enabled,
		},
		b.logger,
		b.supervisor.GetHealthTracker(),
		ingestor,
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", b.cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	b.supervisor.Register(NewHTTPServerWorker(httpServer, b.cfg.ShutdownTimeout(), b.logger))
	b.supervisor.Register(NewStoreMonitorWorker(store, b.logger, b.storeMonitorOpts...))

	b.logger.Info("API service workers built successfully")
	return b.supervisor, nil
}

func (b *ServiceBuilder) buildStore() (webhookstore.WebhookStore, error) {
	storeCfg := webhookstore.Config{Driver: string(b.cfg.Store.Driver)}

	switch b.cfg.Store.Driver {
	case config.StoreDriverRedis:
		b.logger.Debug("initializing Redis client for webhook store")
		client, err := redis.NewClient(b.ctx, b.cfg.Store.Redis.ToConfig())
		if err != nil {
			return nil, err
		}
		b.cleanupFuncs = append(b.cleanupFuncs, func(ctx context.Context, logger *logging.LoggerWithCtx) {
			if err := client.Close(); err != nil {
				logger.Error("error closing redis client", zap.Error(err))
			}
		})
		storeCfg.RedisClient = client

	case config.StoreDriverPostgres:
		b.logger.Debug("initializing postgres pool for webhook store")
		pool, err := pgxpool.New(b.ctx, b.cfg.Store.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("postgres pool: %w", err)
		}
		b.cleanupFuncs = append(b.cleanupFuncs, func(ctx context.Context, logger *logging.LoggerWithCtx) {
			pool.Close()
			logger.Debug("postgres pool closed")
		})
		storeCfg.PgPool = pool
	}

	return webhookstore.New(storeCfg)
}

// Cleanup runs the registered cleanup functions in reverse order.
func (b *ServiceBuilder) Cleanup(ctx context.Context) {
	logger := b.logger.Ctx(ctx)
	for i := len(b.cleanupFuncs) - 1; i >= 0; i-- {
		b.cleanupFuncs[i](ctx, &logger)
	}
}
