package models

import (
	"time"
)

// Batch commits a set of settled markets under one Merkle root (hex).
type Batch struct {
	ID         string    `gorm:"primaryKey;type:text"`
	MerkleRoot string    `gorm:"type:varchar(64);not null"`
	CreatedAt  time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Batch) TableName() string {
	return "batches"
}

// BatchItem links one market into a batch. The extra unique index on
// market_id keeps a market from appearing in two batches.
type BatchItem struct {
	BatchID  string `gorm:"primaryKey;type:text"`
	MarketID string `gorm:"primaryKey;type:text;uniqueIndex"`
}

func (BatchItem) TableName() string {
	return "batch_items"
}
