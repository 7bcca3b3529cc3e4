package apirouter

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthReporter is satisfied by worker.HealthTracker.
type HealthReporter interface {
	IsStarted() bool
	IsHealthy() bool
	GetStatus() map[string]interface{}
}

type ProbeHandlers struct {
	health HealthReporter
}

func NewProbeHandlers(health HealthReporter) *ProbeHandlers {
	return &ProbeHandlers{health: health}
}

// Startup answers 204 with no body once every worker has been launched.
func (h *ProbeHandlers) Startup(c *gin.Context) {
	if !h.health.IsStarted() {
		c.Error(NewErrServiceUnavailable("service starting", nil))
		return
	}
	c.Status(http.StatusNoContent)
}

// Liveness answers 204 for as long as the process can serve HTTP.
func (h *ProbeHandlers) Liveness(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Readiness answers 204 when the service has started and every worker is
// healthy.
func (h *ProbeHandlers) Readiness(c *gin.Context) {
	if !h.health.IsStarted() || !h.health.IsHealthy() {
		c.Error(NewErrServiceUnavailable("service not ready", h.health.GetStatus()))
		return
	}
	c.Status(http.StatusNoContent)
}

// Healthz reports per-worker health as JSON.
func (h *ProbeHandlers) Healthz(c *gin.Context) {
	status := h.health.GetStatus()
	if h.health.IsHealthy() {
		c.JSON(http.StatusOK, status)
		return
	}
	c.JSON(http.StatusServiceUnavailable, status)
}
