package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/codingspiderfox/ledgersync/backend/internal/mirror"
	"github.com/codingspiderfox/ledgersync/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var startTime = time.Now()

// MetricsHandler renders Prometheus text format metrics.
type MetricsHandler struct {
	db     *gorm.DB
	outbox *services.Outbox
	index  *mirror.Instrumented
	queue  services.TaskQueue
}

// NewMetricsHandler takes an optional instrumented index; nil skips the
// per-entity mirror counters.
func NewMetricsHandler(db *gorm.DB, outbox *services.Outbox, index *mirror.Instrumented, queue services.TaskQueue) *MetricsHandler {
	return &MetricsHandler{db: db, outbox: outbox, index: index, queue: queue}
}

// Metrics GET /metrics
func (h *MetricsHandler) Metrics(c *gin.Context) {
	var b strings.Builder

	// -- Runtime metrics --
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "ledgersync_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
	writeGauge(&b, "ledgersync_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "ledgersync_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))
	writeGauge(&b, "ledgersync_memory_sys_bytes", "Total memory obtained from OS in bytes", float64(m.Sys))
	writeGauge(&b, "ledgersync_gc_runs_total", "Total number of GC runs", float64(m.NumGC))

	// -- Database metrics --
	if h.db != nil {
		if sqlDB, err := h.db.DB(); err == nil {
			stats := sqlDB.Stats()
			writeGauge(&b, "ledgersync_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
			writeGauge(&b, "ledgersync_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
			writeGauge(&b, "ledgersync_db_idle_connections", "Number of idle DB connections", float64(stats.Idle))
		}
	}

	// -- Queue metrics --
	queueAsync := 0.0
	if h.queue != nil && h.queue.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "ledgersync_queue_async_enabled", "Whether async queue (Redis) is enabled (1=yes, 0=no)", queueAsync)

	// -- Outbox metrics --
	if h.outbox != nil {
		if stats, err := h.outbox.Stats(c.Request.Context()); err == nil {
			writeGauge(&b, "ledgersync_outbox_events_total", "Change events in the outbox", float64(stats.Total))
			writeGauge(&b, "ledgersync_outbox_events_pending", "Change events not yet applied to the mirror", float64(stats.Pending))
			writeGauge(&b, "ledgersync_outbox_events_failed", "Pending change events with at least one failed attempt", float64(stats.Failed))
			lag := 0.0
			if stats.OldestPending != nil {
				lag = time.Since(*stats.OldestPending).Seconds()
			}
			writeGauge(&b, "ledgersync_outbox_lag_seconds", "Age of the oldest pending change event", lag)
		}
	}

	// -- Mirror metrics --
	if h.index != nil {
		snapshot := h.index.Snapshot()
		for _, entity := range h.index.EntityTypes() {
			counts := snapshot[entity]
			writeLabeled(&b, "ledgersync_mirror_saves_total", entity, float64(counts.Saves))
			writeLabeled(&b, "ledgersync_mirror_deletes_total", entity, float64(counts.Deletes))
			writeLabeled(&b, "ledgersync_mirror_failures_total", entity, float64(counts.Failures))
		}
	}

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}

func writeLabeled(b *strings.Builder, name, entity string, value float64) {
	fmt.Fprintf(b, "%s{entity=%q} %g\n", name, entity, value)
}
