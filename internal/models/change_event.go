package models

import (
	"time"
)

type ChangeOperation string

const (
	ChangeOperationUpsert ChangeOperation = "UPSERT"
	ChangeOperationDelete ChangeOperation = "DELETE"
)

// ChangeEvent is an outbox row written in the same transaction as the
// primary-store mutation it describes. The dispatcher and the relay apply
// it to the search mirror.
type ChangeEvent struct {
	ID           uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	EntityType   string          `gorm:"size:100;not null;index:idx_change_entity" json:"entity_type"`
	EntityID     string          `gorm:"size:100;not null;index:idx_change_entity" json:"entity_id"`
	Operation    ChangeOperation `gorm:"size:20;not null" json:"operation"`
	ChangedAt    time.Time       `gorm:"not null;index" json:"changed_at"`
	ProcessedAt  *time.Time      `gorm:"index" json:"processed_at,omitempty"`
	ErrorMessage string          `gorm:"type:text" json:"error_message,omitempty"`
	RetryCount   int             `gorm:"default:0" json:"retry_count"`
	// Payload is the full JSON document for UPSERT events.
	Payload string `gorm:"type:text" json:"payload,omitempty"`
}

func (ChangeEvent) TableName() string { return "change_events" }

func (e *ChangeEvent) IsProcessed() bool {
	return e.ProcessedAt != nil
}

func (e *ChangeEvent) MarkProcessed(at time.Time) {
	at = at.UTC()
	e.ProcessedAt = &at
	e.ErrorMessage = ""
}

func (e *ChangeEvent) MarkError(msg string) {
	e.ErrorMessage = msg
	e.RetryCount++
}
