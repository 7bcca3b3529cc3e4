package worker

import "context"

// Worker is a long-running process owned by a WorkerSupervisor.
//
// Run must block until ctx is cancelled or a fatal error occurs. Returning
// nil or context.Canceled after cancellation is a graceful stop; any other
// return is recorded as a failure and flips the readiness probe.
type Worker interface {
	// Name identifies the worker in logs and in the health summary, e.g. "http-server".
	Name() string

	Run(ctx context.Context) error
}
