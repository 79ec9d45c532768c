package handlers

import (
	"context"
	"net/http"
	"time"

	"telugulearn/internal/observability"
	"telugulearn/internal/version"

	"github.com/gin-gonic/gin"
)

// healthCheckTimeout bounds the database ping of /health
const healthCheckTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	db          Pinger
	serviceName string
	logger      *observability.Logger
}

// NewHealthHandler creates a new HealthHandler instance
func NewHealthHandler(db Pinger, serviceName string, logger *observability.Logger) *HealthHandler {
	return &HealthHandler{db: db, serviceName: serviceName, logger: logger}
}

// Health answers 200 when the database responds and 503 otherwise
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	database := "ok"
	status := http.StatusOK
	if h.db == nil {
		database = "not configured"
	} else if err := h.db.PingContext(ctx); err != nil {
		h.logger.Warn(ctx, "Health check database ping failed", map[string]interface{}{"error": err.Error()})
		database = "unavailable"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   http.StatusText(status),
		"service":  h.serviceName,
		"database": database,
	})
}

// Version returns build information
func (h *HealthHandler) Version(c *gin.Context) {
	respondOK(c, "Version", gin.H{
		"service":   h.serviceName,
		"version":   version.Version,
		"commit":    version.Commit,
		"buildTime": version.BuildTime,
	})
}
