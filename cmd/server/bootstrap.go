package main

import (
	"context"
	"time"

	"github.com/codingspiderfox/ledgersync/backend/internal/config"
	"github.com/codingspiderfox/ledgersync/backend/internal/middleware"
	"github.com/codingspiderfox/ledgersync/backend/internal/mirror"
	"github.com/codingspiderfox/ledgersync/backend/internal/models"
	"github.com/codingspiderfox/ledgersync/backend/internal/services"
	"github.com/codingspiderfox/ledgersync/backend/pkg/logger"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	cfg           *config.Config
	index         *mirror.Instrumented
	outbox        *services.Outbox
	taskQueue     services.TaskQueue
	worker        *services.Worker
	relay         *services.RelayService
	resources     *services.Resources
	searchLimiter *middleware.RateLimiter
}

// bootstrap initializes all application dependencies: database, search
// mirror, queue, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Search mirror
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	backend, err := mirror.New(ctx, &cfg.Search)
	if err != nil {
		logger.Fatalf("Failed to open search mirror: %v", err)
	}
	index := mirror.NewInstrumented(backend)
	outbox := services.NewOutbox(models.GetDB(), index)

	// Initialize task queue (uses Redis if enabled, otherwise inline)
	taskQueue := services.InitTaskQueue(cfg, services.OutboxProcessor(outbox))

	// Start async worker if the queue reached Redis
	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis)
		if worker != nil {
			worker.SetProcessor(services.OutboxProcessor(outbox))
			if err := worker.Start(); err != nil {
				logger.Fatalf("Failed to start mirror worker: %v", err)
			}
		}
	}

	resources := services.NewResources(services.SyncDeps{
		DB:     models.GetDB(),
		Outbox: outbox,
		Queue:  taskQueue,
	})

	// Relay catches up on events the queue did not deliver
	relay := services.NewRelayService(models.GetDB(), outbox, cfg.Sync)
	if err := relay.StartScheduler(); err != nil {
		logger.Fatalf("Failed to start relay scheduler: %v", err)
	}

	return &appServices{
		cfg:           cfg,
		index:         index,
		outbox:        outbox,
		taskQueue:     taskQueue,
		worker:        worker,
		relay:         relay,
		resources:     resources,
		searchLimiter: middleware.NewSearchRateLimiter(cfg.RateLimit),
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.relay.StopScheduler()
	logger.Info().Msg("Relay scheduler stopped")

	s.searchLimiter.Stop()

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
	if err := s.index.Close(); err != nil {
		logger.Warn().Err(err).Msg("Failed to close search mirror")
	}
	if sqlDB, err := models.GetDB().DB(); err == nil {
		_ = sqlDB.Close()
	}
}
