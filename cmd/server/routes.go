package main

import (
	"github.com/codingspiderfox/ledgersync/backend/internal/handlers"
	"github.com/codingspiderfox/ledgersync/backend/internal/middleware"
	"github.com/codingspiderfox/ledgersync/backend/internal/models"
	"github.com/codingspiderfox/ledgersync/backend/internal/services"
	"github.com/codingspiderfox/ledgersync/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS())

	// Health check & metrics
	healthHandler := handlers.NewHealthHandler(models.GetDB(), svc.outbox, services.GetTaskQueue())
	r.GET("/health", healthHandler.CheckHealth)
	metricsHandler := handlers.NewMetricsHandler(models.GetDB(), svc.outbox, svc.index, services.GetTaskQueue())
	r.GET("/metrics", metricsHandler.Metrics)

	// Search reads only the mirror and is rate limited per client
	api := r.Group("/api")
	search := api.Group("/_search", svc.searchLimiter.Middleware())
	handlers.RegisterResources(api, search, svc.resources, svc.cfg.Search.PageSize)
}
