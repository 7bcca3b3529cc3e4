package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNoWorkers        = errors.New("no workers registered")
	ErrAllWorkersExited = errors.New("all workers have exited unexpectedly")
	ErrShutdownTimeout  = errors.New("shutdown timeout exceeded")
)

// Logger is a minimal logging interface for structured logging with zap.
type Logger interface {
	Info(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
}

// WorkerSupervisor manages and supervises multiple workers.
// It tracks their health and handles graceful shutdown.
type WorkerSupervisor struct {
	workers         map[string]Worker
	health          *HealthTracker
	logger          Logger
	shutdownTimeout time.Duration // 0 means no timeout
}

type SupervisorOption func(*WorkerSupervisor)

// WithShutdownTimeout sets the maximum time to wait for workers to shutdown gracefully.
// After this timeout, Run() returns even if workers haven't finished.
func WithShutdownTimeout(timeout time.Duration) SupervisorOption {
	return func(r *WorkerSupervisor) {
		r.shutdownTimeout = timeout
	}
}

func NewWorkerSupervisor(logger Logger, opts ...SupervisorOption) *WorkerSupervisor {
	r := &WorkerSupervisor{
		workers: make(map[string]Worker),
		health:  NewHealthTracker(),
		logger:  logger,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a worker to the supervisor.
// Panics if a worker with the same name is already registered.
func (r *WorkerSupervisor) Register(w Worker) {
	if _, exists := r.workers[w.Name()]; exists {
		panic(fmt.Sprintf("worker %s already registered", w.Name()))
	}
	r.workers[w.Name()] = w
	r.logger.Debug("worker registered", zap.String("worker", w.Name()))
}

func (r *WorkerSupervisor) GetHealthTracker() *HealthTracker {
	return r.health
}

// Run starts all registered workers and supervises them.
// It blocks until every worker has exited or the context is cancelled.
//
// A failing worker is marked failed but does not stop the others, so the
// HTTP server keeps answering probes and the orchestrator can see the
// failure and restart the container.
//
// Returns ctx.Err() on cancellation, ErrAllWorkersExited when every worker
// returned on its own, and ErrShutdownTimeout when a configured shutdown
// timeout elapses first.
func (r *WorkerSupervisor) Run(ctx context.Context) error {
	if len(r.workers) == 0 {
		r.logger.Warn("no workers registered")
		return ErrNoWorkers
	}

	r.logger.Info("starting workers", zap.Int("count", len(r.workers)))

	var wg sync.WaitGroup
	for name, w := range r.workers {
		wg.Add(1)
		r.health.MarkHealthy(name)
		go func(name string, w Worker) {
			defer wg.Done()

			r.logger.Info("worker starting", zap.String("worker", name))

			err := w.Run(ctx)
			switch {
			case err != nil && !errors.Is(err, context.Canceled):
				r.logger.Error("worker failed",
					zap.String("worker", name),
					zap.Error(err))
				r.health.MarkFailed(name)
			case ctx.Err() == nil:
				r.logger.Warn("worker exited before shutdown", zap.String("worker", name))
				r.health.MarkFailed(name)
			default:
				r.logger.Info("worker stopped gracefully", zap.String("worker", name))
			}
		}(name, w)
	}
	r.health.MarkStarted()

	select {
	case <-ctx.Done():
		r.logger.Info("context cancelled, shutting down workers")
		if r.shutdownTimeout > 0 {
			if err := r.waitWithTimeout(&wg, r.shutdownTimeout); err != nil {
				return err
			}
			return ctx.Err()
		}
		wg.Wait()
		return ctx.Err()
	case <-r.waitForWorkers(&wg):
		if err := ctx.Err(); err != nil {
			return err
		}
		r.logger.Warn("all workers have exited")
		return ErrAllWorkersExited
	}
}

// waitForWorkers converts WaitGroup.Wait() into a channel that can be used in select.
func (r *WorkerSupervisor) waitForWorkers(wg *sync.WaitGroup) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

func (r *WorkerSupervisor) waitWithTimeout(wg *sync.WaitGroup, timeout time.Duration) error {
	select {
	case <-r.waitForWorkers(wg):
		r.logger.Info("all workers shutdown gracefully")
		return nil
	case <-time.After(timeout):
		r.logger.Warn("shutdown timeout exceeded, some workers may still be running",
			zap.Duration("timeout", timeout))
		return fmt.Errorf("%w (%v)", ErrShutdownTimeout, timeout)
	}
}
