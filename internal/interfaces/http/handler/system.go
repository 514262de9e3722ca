package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthChecker reports whether a backing dependency is reachable
type HealthChecker interface {
	Healthy(ctx context.Context) error
}

// SystemHandler serves liveness and readiness probes
type SystemHandler struct {
	BaseHandler
	checks map[string]HealthChecker
}

// NewSystemHandler creates a system handler with named dependency checks
func NewSystemHandler(checks map[string]HealthChecker, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{BaseHandler: NewBaseHandler(logger), checks: checks}
}

// RegisterRoutes wires the probe endpoints
func (h *SystemHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
	rg.GET("/ready", h.Ready)
}

// Health reports process liveness
func (h *SystemHandler) Health(c *gin.Context) {
	h.Success(c, gin.H{"status": "ok"})
}

// Ready reports whether every backing dependency answers
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	results := gin.H{}
	for name, check := range h.checks {
		if err := check.Healthy(ctx); err != nil {
			h.logger.Warn("dependency unhealthy", zap.String("dependency", name), zap.Error(err))
			results[name] = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	c.JSON(status, results)
}
