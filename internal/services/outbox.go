package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/codingspiderfox/ledgersync/backend/internal/mirror"
	"github.com/codingspiderfox/ledgersync/backend/internal/models"
	"github.com/codingspiderfox/ledgersync/backend/pkg/logger"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// OutboxStats summarises the change_events table.
type OutboxStats struct {
	Total         int64      `json:"total"`
	Processed     int64      `json:"processed"`
	Pending       int64      `json:"pending"`
	Failed        int64      `json:"failed"`
	OldestPending *time.Time `json:"oldest_pending,omitempty"`
}

// Outbox applies recorded change events to the search mirror.
type Outbox struct {
	db    *gorm.DB
	index mirror.Index
	log   zerolog.Logger
	now   func() time.Time
}

func NewOutbox(db *gorm.DB, index mirror.Index) *Outbox {
	return &Outbox{
		db:    db,
		index: index,
		log:   logger.Component("outbox"),
		now:   time.Now,
	}
}

func (o *Outbox) Index() mirror.Index { return o.index }

// RecordChange writes an event on tx. Call it inside the transaction of the
// mutation it describes.
func RecordChange(tx *gorm.DB, entityType, entityID string, op models.ChangeOperation, payload []byte) (*models.ChangeEvent, error) {
	ev := &models.ChangeEvent{
		EntityType: entityType,
		EntityID:   entityID,
		Operation:  op,
		ChangedAt:  time.Now().UTC(),
		Payload:    string(payload),
	}
	if err := tx.Create(ev).Error; err != nil {
		return nil, fmt.Errorf("failed to record %s of %s %s: %w", op, entityType, entityID, err)
	}
	return ev, nil
}

// Apply loads an event by id and applies it.
func (o *Outbox) Apply(ctx context.Context, eventID uint64) error {
	var ev models.ChangeEvent
	if err := o.db.WithContext(ctx).First(&ev, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// purged or never committed
			o.log.Warn().Uint64("event_id", eventID).Msg("Change event not found, skipping")
			return nil
		}
		return err
	}
	return o.ApplyEvent(ctx, &ev)
}

// ApplyEvent writes one event to the mirror. Processed events are skipped,
// and so are events with a newer event for the same entity: the newer one
// carries the current state.
func (o *Outbox) ApplyEvent(ctx context.Context, ev *models.ChangeEvent) error {
	if ev.IsProcessed() {
		return nil
	}

	superseded, err := o.superseded(ctx, ev)
	if err != nil {
		return err
	}
	if superseded {
		o.log.Debug().Uint64("event_id", ev.ID).Str("entity", ev.EntityType).Str("id", ev.EntityID).
			Msg("Change event superseded")
		return o.markProcessed(ctx, ev)
	}

	if err := o.write(ctx, ev); err != nil {
		ev.MarkError(err.Error())
		if uerr := o.db.WithContext(ctx).Model(ev).Updates(map[string]any{
			"error_message": ev.ErrorMessage,
			"retry_count":   ev.RetryCount,
		}).Error; uerr != nil {
			o.log.Error().Err(uerr).Uint64("event_id", ev.ID).Msg("Failed to record mirror error")
		}
		o.log.Warn().Err(err).Uint64("event_id", ev.ID).Str("entity", ev.EntityType).Str("id", ev.EntityID).
			Int("retry_count", ev.RetryCount).Msg("Mirror write failed")
		return err
	}
	return o.markProcessed(ctx, ev)
}

func (o *Outbox) write(ctx context.Context, ev *models.ChangeEvent) error {
	switch ev.Operation {
	case models.ChangeOperationUpsert:
		body, err := mirror.DecodeBody([]byte(ev.Payload))
		if err != nil {
			return fmt.Errorf("corrupt payload: %w", err)
		}
		return o.index.Save(ctx, mirror.Document{EntityType: ev.EntityType, ID: ev.EntityID, Body: body})
	case models.ChangeOperationDelete:
		return o.index.Delete(ctx, ev.EntityType, ev.EntityID)
	default:
		return fmt.Errorf("unknown operation %q", ev.Operation)
	}
}

func (o *Outbox) superseded(ctx context.Context, ev *models.ChangeEvent) (bool, error) {
	var n int64
	err := o.db.WithContext(ctx).Model(&models.ChangeEvent{}).
		Where("entity_type = ? AND entity_id = ? AND id > ?", ev.EntityType, ev.EntityID, ev.ID).
		Count(&n).Error
	return n > 0, err
}

func (o *Outbox) markProcessed(ctx context.Context, ev *models.ChangeEvent) error {
	ev.MarkProcessed(o.now())
	return o.db.WithContext(ctx).Model(ev).Updates(map[string]any{
		"processed_at":  ev.ProcessedAt,
		"error_message": "",
	}).Error
}

// Pending returns unprocessed events changed before cutoff that still have
// retries left, oldest first.
func (o *Outbox) Pending(ctx context.Context, cutoff time.Time, maxRetries, limit int) ([]models.ChangeEvent, error) {
	var events []models.ChangeEvent
	err := o.db.WithContext(ctx).
		Where("processed_at IS NULL AND changed_at <= ? AND retry_count < ?", cutoff.UTC(), maxRetries).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// Purge removes processed events older than before.
func (o *Outbox) Purge(ctx context.Context, before time.Time) (int64, error) {
	res := o.db.WithContext(ctx).
		Where("processed_at IS NOT NULL AND processed_at < ?", before.UTC()).
		Delete(&models.ChangeEvent{})
	return res.RowsAffected, res.Error
}

func (o *Outbox) Stats(ctx context.Context) (*OutboxStats, error) {
	db := o.db.WithContext(ctx).Model(&models.ChangeEvent{})
	stats := &OutboxStats{}
	if err := db.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("processed_at IS NOT NULL").Count(&stats.Processed).Error; err != nil {
		return nil, err
	}
	if err := db.Session(&gorm.Session{}).Where("processed_at IS NULL AND retry_count > 0").Count(&stats.Failed).Error; err != nil {
		return nil, err
	}
	stats.Pending = stats.Total - stats.Processed

	if stats.Pending > 0 {
		var oldest models.ChangeEvent
		if err := db.Session(&gorm.Session{}).Where("processed_at IS NULL").Order("id ASC").First(&oldest).Error; err == nil {
			at := oldest.ChangedAt
			stats.OldestPending = &at
		}
	}
	return stats, nil
}
