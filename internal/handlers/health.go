package handlers

import (
	"context"
	"time"

	"github.com/codingspiderfox/ledgersync/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// HealthHandler provides enhanced health check endpoints.
type HealthHandler struct {
	db     *gorm.DB
	outbox *services.Outbox
	queue  services.TaskQueue
}

func NewHealthHandler(db *gorm.DB, outbox *services.Outbox, queue services.TaskQueue) *HealthHandler {
	return &HealthHandler{db: db, outbox: outbox, queue: queue}
}

// CheckHealth returns the health status of all subsystems.
// A mirror outage degrades the service; the store being down fails it.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	overall := "healthy"
	status := 200

	// Database check
	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
		overall, status = "unhealthy", 503
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "error: " + err.Error()
		overall, status = "unhealthy", 503
	}

	// Search mirror
	mirrorStatus := "ok"
	if err := h.outbox.Index().Ping(ctx); err != nil {
		mirrorStatus = "error: " + err.Error()
		if overall == "healthy" {
			overall = "degraded"
		}
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	components := gin.H{
		"database":   dbStatus,
		"mirror":     mirrorStatus,
		"queue_mode": queueMode,
	}
	if dbStatus == "ok" {
		if stats, err := h.outbox.Stats(ctx); err == nil {
			components["outbox"] = stats
		}
	}

	c.JSON(status, gin.H{
		"status":     overall,
		"service":    "ledgersync",
		"components": components,
	})
}
