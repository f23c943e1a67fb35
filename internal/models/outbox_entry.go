package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	OutboxStatusPending  = "PENDING"
	OutboxStatusInFlight = "IN_FLIGHT"
	OutboxStatusSent     = "SENT"
	OutboxStatusFailed   = "FAILED"
)

const (
	OutboxKindSettlementRecorded = "settlement.recorded"
	OutboxKindBatchCommitted     = "batch.committed"
)

// OutboxEntry is a durable record of a domain event pending delivery to the
// external sink. Lifecycle: PENDING → IN_FLIGHT (claimed under lease) →
// SENT, or back to PENDING with retries incremented and next_attempt_at
// pushed out; FAILED once retries exceed the configured bound.
type OutboxEntry struct {
	ID             string         `gorm:"primaryKey;type:text"`
	MarketID       string         `gorm:"type:text;not null;index"`
	Kind           string         `gorm:"type:varchar(50);not null;index"`
	Payload        datatypes.JSON `gorm:"type:jsonb;not null"`
	Status         string         `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_outbox_claim,priority:1"`
	Retries        int            `gorm:"not null;default:0"`
	LastError      *string        `gorm:"type:text"`
	NextAttemptAt  time.Time      `gorm:"type:timestamptz;not null;index:idx_outbox_claim,priority:2"`
	LeaseExpiresAt *time.Time     `gorm:"type:timestamptz"`
	CreatedAt      time.Time      `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt      time.Time      `gorm:"type:timestamptz;autoUpdateTime"`
}

func (OutboxEntry) TableName() string {
	return "outbox_entries"
}
