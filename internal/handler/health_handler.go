// internal/handler/health_handler.go
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pilite-service/internal/config"
	"pilite-service/internal/protocol"
	"pilite-service/internal/utils"
)

// DisplayStatus is the transport view the health checks need
type DisplayStatus interface {
	IsOpen() bool
	Stats() (protocol.ProtocolStats, bool)
}

// DatabaseChecker is implemented by database.DB
type DatabaseChecker interface {
	HealthCheck(ctx context.Context) error
	GetStats() map[string]interface{}
}

// HealthHandler handles health check requests
type HealthHandler struct {
	display   DisplayStatus
	db        DatabaseChecker
	config    *config.Config
	startTime time.Time
	logger    *utils.ServiceLogger
}

// NewHealthHandler creates a new health handler. db may be nil when the
// command history is disabled.
func NewHealthHandler(display DisplayStatus, db DatabaseChecker, config *config.Config, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		display:   display,
		db:        db,
		config:    config,
		startTime: time.Now(),
		logger:    utils.NewServiceLogger(logger, "health-handler"),
	}
}

// HealthCheck reports display and database state. A disconnected display
// degrades the service; a failing database makes it unhealthy.
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	health := &HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now(),
		Service:   h.config.App.Name,
		Version:   h.config.App.Version,
		Uptime:    time.Since(h.startTime).String(),
		Checks:    make(map[string]CheckResult),
	}

	display := CheckResult{Status: "healthy", Message: "Display connected"}
	if !h.display.IsOpen() {
		display = CheckResult{Status: "degraded", Message: "Display not connected, commands are dropped"}
		health.Status = "degraded"
	}
	if stats, ok := h.display.Stats(); ok {
		display.Data = map[string]interface{}{
			"bytes_written":      stats.BytesWritten,
			"writes":             stats.OperationCount,
			"error_count":        stats.ErrorCount,
			"last_activity":      stats.LastActivity,
			"average_latency_ms": stats.AverageLatency.Milliseconds(),
		}
	}
	health.Checks["display"] = display

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := h.db.HealthCheck(ctx); err != nil {
			h.logger.Error("Database health check failed", zap.Error(err))
			health.Status = "unhealthy"
			health.Checks["database"] = CheckResult{
				Status:  "unhealthy",
				Message: err.Error(),
			}
		} else {
			health.Checks["database"] = CheckResult{
				Status:  "healthy",
				Message: "Database connection OK",
				Data:    h.db.GetStats(),
			}
		}
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, health)
}

// ReadinessCheck reports ready once the display connection is open
func (h *HealthHandler) ReadinessCheck(c *gin.Context) {
	if !h.display.IsOpen() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "display not connected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now(),
	})
}

// LivenessCheck for Kubernetes liveness probe
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "alive",
		"timestamp": time.Now(),
	})
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]CheckResult `json:"checks"`
}

// CheckResult represents individual check result
type CheckResult struct {
	Status  string                 `json:"status"`
	Message string                 `json:"message,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
}
