package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/adamkirk/panoptes/internal/logging"
	"github.com/adamkirk/panoptes/internal/worker"
	"go.uber.org/zap"
)

// HTTPServerWorker wraps an HTTP server as a worker.
type HTTPServerWorker struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          *logging.Logger
}

// NewHTTPServerWorker creates a new HTTP server worker. The server is given
// shutdownTimeout to drain in-flight requests once the context is cancelled.
func NewHTTPServerWorker(server *http.Server, shutdownTimeout time.Duration, logger *logging.Logger) worker.Worker {
	return &HTTPServerWorker{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
	}
}

func (w *HTTPServerWorker) Name() string {
	return "http-server"
}

// Run starts the HTTP server and blocks until context is cancelled or server fails.
func (w *HTTPServerWorker) Run(ctx context.Context) error {
	logger := w.logger.Ctx(ctx)
	logger.Info("http server listening", zap.String("addr", w.server.Addr))

	errChan := make(chan error, 1)
	go func() {
		if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		if err := w.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("error shutting down http server", zap.Error(err))
			return err
		}
		logger.Info("http server shut down")
		return nil

	case err := <-errChan:
		logger.Error("http server error", zap.Error(err))
		return err
	}
}
