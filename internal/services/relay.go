package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/codingspiderfox/ledgersync/backend/internal/config"
	"github.com/codingspiderfox/ledgersync/backend/internal/models"
	"github.com/codingspiderfox/ledgersync/backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

const (
	relayLockName = "outbox_relay"
	purgeLockName = "outbox_purge"
	lockKey       = "global"
	lockTTL       = 5 * time.Minute
)

// RelayService re-applies change events that the dispatcher did not get
// into the mirror, and purges processed ones.
type RelayService struct {
	db            *gorm.DB
	outbox        *Outbox
	cfg           config.SyncConfig
	owner         string
	log           zerolog.Logger
	cronScheduler *cron.Cron
}

func NewRelayService(db *gorm.DB, outbox *Outbox, cfg config.SyncConfig) *RelayService {
	host, _ := os.Hostname()
	return &RelayService{
		db:     db,
		outbox: outbox,
		cfg:    cfg,
		owner:  fmt.Sprintf("%s-%s", host, uuid.NewString()),
		log:    logger.Component("relay"),
	}
}

// StartScheduler runs the relay and purge passes on their cron schedules.
func (s *RelayService) StartScheduler() error {
	s.cronScheduler = cron.New()

	if _, err := s.cronScheduler.AddFunc(s.cfg.RelaySchedule, func() {
		if _, err := s.RunLocked(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("Relay pass failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid relay schedule %q: %w", s.cfg.RelaySchedule, err)
	}

	if _, err := s.cronScheduler.AddFunc(s.cfg.PurgeSchedule, func() {
		if _, err := s.PurgeLocked(context.Background()); err != nil {
			s.log.Error().Err(err).Msg("Outbox purge failed")
		}
	}); err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", s.cfg.PurgeSchedule, err)
	}

	s.cronScheduler.Start()
	s.log.Info().Str("relay", s.cfg.RelaySchedule).Str("purge", s.cfg.PurgeSchedule).
		Int("max_retries", s.cfg.MaxRetries).Msg("Relay scheduler started")
	return nil
}

func (s *RelayService) StopScheduler() {
	if s.cronScheduler != nil {
		<-s.cronScheduler.Stop().Done()
	}
}

// RunLocked runs one relay pass if no other instance holds the relay lock.
func (s *RelayService) RunLocked(ctx context.Context) (int, error) {
	ok, err := models.AcquireLock(s.db.WithContext(ctx), relayLockName, lockKey, s.owner, lockTTL)
	if err != nil {
		return 0, err
	}
	if !ok {
		s.log.Debug().Msg("Relay lock held elsewhere, skipping pass")
		return 0, nil
	}
	defer func() {
		if err := models.ReleaseLock(s.db, relayLockName, lockKey, s.owner); err != nil {
			s.log.Warn().Err(err).Msg("Failed to release relay lock")
		}
	}()
	return s.RunOnce(ctx)
}

// RunOnce re-applies pending events older than the grace period and returns
// how many reached the mirror.
func (s *RelayService) RunOnce(ctx context.Context) (int, error) {
	cutoff := s.outbox.now().Add(-s.cfg.GracePeriod)
	events, err := s.outbox.Pending(ctx, cutoff, s.cfg.MaxRetries, s.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending change events: %w", err)
	}
	if len(events) == 0 {
		return 0, nil
	}

	s.log.Info().Int("count", len(events)).Msg("Relaying pending change events")

	applied := 0
	for i := range events {
		ev := &events[i]
		if err := s.outbox.ApplyEvent(ctx, ev); err != nil {
			if ev.RetryCount >= s.cfg.MaxRetries {
				s.log.Error().Uint64("event_id", ev.ID).Str("entity", ev.EntityType).Str("id", ev.EntityID).
					Msg("Change event exceeded max retries, giving up")
			}
			continue
		}
		applied++
	}
	return applied, nil
}

func (s *RelayService) PurgeLocked(ctx context.Context) (int64, error) {
	ok, err := models.AcquireLock(s.db.WithContext(ctx), purgeLockName, lockKey, s.owner, lockTTL)
	if err != nil || !ok {
		return 0, err
	}
	defer func() {
		if err := models.ReleaseLock(s.db, purgeLockName, lockKey, s.owner); err != nil {
			s.log.Warn().Err(err).Msg("Failed to release purge lock")
		}
	}()
	return s.Purge(ctx)
}

// Purge drops processed events older than the retention period.
func (s *RelayService) Purge(ctx context.Context) (int64, error) {
	before := s.outbox.now().AddDate(0, 0, -s.cfg.RetentionDays)
	n, err := s.outbox.Purge(ctx, before)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int64("count", n).Msg("Purged processed change events")
	}
	return n, nil
}
