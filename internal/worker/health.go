package worker

import (
	"sync"
	"time"
)

const (
	WorkerStatusHealthy = "healthy"
	WorkerStatusFailed  = "failed"
)

// WorkerHealth represents the health status of a single worker.
// Error details are NOT exposed.
type WorkerHealth struct {
	Status    string    `json:"status"`
	LastCheck time.Time `json:"last_check"`
}

// HealthTracker tracks the health status of all workers and whether the
// supervisor has finished launching them. It is safe for concurrent use.
type HealthTracker struct {
	mu        sync.RWMutex
	workers   map[string]WorkerHealth
	startedAt *time.Time
	now       func() time.Time
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		workers: make(map[string]WorkerHealth),
		now:     time.Now,
	}
}

func (h *HealthTracker) MarkHealthy(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.workers[name] = WorkerHealth{
		Status:    WorkerStatusHealthy,
		LastCheck: h.now(),
	}
}

func (h *HealthTracker) MarkFailed(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.workers[name] = WorkerHealth{
		Status:    WorkerStatusFailed,
		LastCheck: h.now(),
	}
}

// MarkStarted records that every registered worker has been launched.
// Calling it more than once keeps the first timestamp.
func (h *HealthTracker) MarkStarted() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.startedAt != nil {
		return
	}
	now := h.now()
	h.startedAt = &now
}

// IsStarted reports whether MarkStarted has been called.
func (h *HealthTracker) IsStarted() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.startedAt != nil
}

// IsHealthy returns true if all workers are healthy.
func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.isHealthyLocked()
}

// GetStatus returns the overall health status with details of all workers.
func (h *HealthTracker) GetStatus() map[string]interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()

	workers := make(map[string]WorkerHealth, len(h.workers))
	for name, w := range h.workers {
		workers[name] = w
	}

	status := WorkerStatusHealthy
	if !h.isHealthyLocked() {
		status = WorkerStatusFailed
	}

	return map[string]interface{}{
		"status":    status,
		"started":   h.startedAt != nil,
		"timestamp": h.now().UTC(),
		"workers":   workers,
	}
}

// caller must hold read lock
func (h *HealthTracker) isHealthyLocked() bool {
	for _, w := range h.workers {
		if w.Status != WorkerStatusHealthy {
			return false
		}
	}
	return true
}
