package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReadyChecker reports whether a backing dependency can serve traffic.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}

// SystemHandler serves liveness and readiness probes.
type SystemHandler struct {
	BaseHandler
	version string
	checks  map[string]ReadyChecker
}

// NewSystemHandler creates the system handler. checks maps a dependency
// name to its readiness probe.
func NewSystemHandler(version string, checks map[string]ReadyChecker) *SystemHandler {
	return &SystemHandler{version: version, checks: checks}
}

// Health is the liveness probe.
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{"status": "ok", "version": h.version})
}

// Ready is the readiness probe: every dependency must answer.
// GET /ready
func (h *SystemHandler) Ready(c *gin.Context) {
	status := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check.Ready(c.Request.Context()); err != nil {
			status[name] = err.Error()
			healthy = false
		} else {
			status[name] = "ok"
		}
	}

	if !healthy {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": status})
		return
	}
	h.Success(c, gin.H{"status": "ready", "checks": status})
}
