package services

import (
	"context"
	"fmt"
	"time"

	"github.com/adamkirk/panoptes/internal/logging"
	"github.com/adamkirk/panoptes/internal/worker"
	"go.uber.org/zap"
)

const (
	defaultStorePingInterval = 15 * time.Second
	defaultStorePingTimeout  = 5 * time.Second
	defaultStoreMaxFailures  = 3
)

// Pinger is the part of the webhook store the monitor needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

type StoreMonitorOption func(*StoreMonitorWorker)

func WithPingInterval(d time.Duration) StoreMonitorOption {
	return func(w *StoreMonitorWorker) {
		w.interval = d
	}
}

func WithPingTimeout(d time.Duration) StoreMonitorOption {
	return func(w *StoreMonitorWorker) {
		w.timeout = d
	}
}

// WithMaxFailures sets how many consecutive failed pings are tolerated
// before the worker exits with an error.
func WithMaxFailures(n int) StoreMonitorOption {
	return func(w *StoreMonitorWorker) {
		w.maxFailures = n
	}
}

// StoreMonitorWorker pings the webhook store on an interval. It fails once
// the store has been unreachable for maxFailures pings in a row, which marks
// the service unready.
type StoreMonitorWorker struct {
	store       Pinger
	interval    time.Duration
	timeout     time.Duration
	maxFailures int
	logger      *logging.Logger
}

func NewStoreMonitorWorker(store Pinger, logger *logging.Logger, opts ...StoreMonitorOption) worker.Worker {
	w := &StoreMonitorWorker{
		store:       store,
		interval:    defaultStorePingInterval,
		timeout:     defaultStorePingTimeout,
		maxFailures: defaultStoreMaxFailures,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *StoreMonitorWorker) Name() string {
	return "store-monitor"
}

func (w *StoreMonitorWorker) Run(ctx context.Context) error {
	logger := w.logger.Ctx(ctx)
	logger.Info("store monitor running", zap.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		pingCtx, cancel := context.WithTimeout(ctx, w.timeout)
		err := w.store.Ping(pingCtx)
		cancel()

		if err == nil {
			if failures > 0 {
				logger.Info("webhook store reachable again", zap.Int("failed_pings", failures))
			}
			failures = 0
			continue
		}
		if ctx.Err() != nil {
			return nil
		}

		failures++
		logger.Warn("webhook store ping failed",
			zap.Int("consecutive_failures", failures),
			zap.Error(err))
		if failures >= w.maxFailures {
			return fmt.Errorf("webhook store unreachable after %d pings: %w", failures, err)
		}
	}
}
