// Package app runs the panoptes service: migrations, store, workers and
// graceful shutdown.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adamkirk/panoptes/internal/config"
	"github.com/adamkirk/panoptes/internal/logging"
	"github.com/adamkirk/panoptes/internal/otel"
	"github.com/adamkirk/panoptes/internal/services"
	"go.uber.org/zap"
)

const cleanupTimeout = 10 * time.Second

type App struct {
	config      *config.Config
	logger      *logging.Logger
	builderOpts []services.BuilderOption
}

type Option func(*App)

// WithLogger replaces the logger built from the config.
func WithLogger(logger *logging.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

func WithBuilderOptions(opts ...services.BuilderOption) Option {
	return func(a *App) {
		a.builderOpts = append(a.builderOpts, opts...)
	}
}

func New(cfg *config.Config, opts ...Option) *App {
	a := &App{
		config: cfg,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run blocks until ctx is cancelled, SIGINT or SIGTERM is received, or the
// workers exit on their own.
func (a *App) Run(ctx context.Context) error {
	logger := a.logger
	if logger == nil {
		var err error
		logger, err = logging.NewLogger(
			logging.WithLogLevel(a.config.LogLevel),
			logging.WithLogFormat(a.config.LogFormat),
		)
		if err != nil {
			return err
		}
		defer logger.Sync()
	}
	return run(ctx, a.config, logger, a.builderOpts)
}

func run(mainContext context.Context, cfg *config.Config, logger *logging.Logger, builderOpts []services.BuilderOption) error {
	logger.Info("starting panoptes", cfg.LogConfigurationSummary()...)

	if err := runMigration(mainContext, cfg, logger); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(mainContext)
	defer cancel()

	if otelCfg := cfg.ToOTelConfig(); otelCfg.Enabled() {
		otelShutdown, err := otel.SetupOTelSDK(ctx, otelCfg)
		if err != nil {
			logger.Error("opentelemetry setup failed", zap.Error(err))
			return err
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cleanupTimeout)
			defer shutdownCancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				logger.Error("opentelemetry shutdown failed", zap.Error(err))
			}
		}()
	}

	logger.Debug("building services")
	builder := services.NewServiceBuilder(ctx, cfg, logger, builderOpts...)

	// Cleanup must run even when building fails halfway.
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cleanupTimeout)
		defer shutdownCancel()
		builder.Cleanup(shutdownCtx)
		logger.Info("panoptes shutdown complete")
	}()

	supervisor, err := builder.BuildWorkers()
	if err != nil {
		logger.Error("failed to build workers", zap.Error(err))
		return err
	}

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(termChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- supervisor.Run(ctx)
	}()

	var exitErr error
	select {
	case sig := <-termChan:
		logger.Info("shutdown signal received", zap.String("signal", sig.String()))
		cancel()
		exitErr = shutdownError(logger, <-errChan)
	case <-mainContext.Done():
		logger.Info("context cancelled")
		exitErr = shutdownError(logger, <-errChan)
	case err := <-errChan:
		if mainContext.Err() != nil {
			exitErr = shutdownError(logger, err)
		} else if err != nil {
			logger.Error("workers exited unexpectedly", zap.Error(err))
			exitErr = err
		}
	}

	return exitErr
}

// shutdownError filters the error the supervisor returns on a requested
// shutdown. context.Canceled is the expected outcome.
func shutdownError(logger *logging.Logger, err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	logger.Error("error during graceful shutdown", zap.Error(err))
	return err
}
