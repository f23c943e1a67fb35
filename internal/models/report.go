package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Report is one value observation for a market from an external source.
// The (market_id, idempotency_key) pair makes retried submissions collapse
// onto the first row.
type Report struct {
	ID             string          `gorm:"primaryKey;type:text"`
	MarketID       string          `gorm:"type:text;not null;index;uniqueIndex:uniq_report_market_key,priority:1"`
	Source         string          `gorm:"type:varchar(100);not null"`
	Value          decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	IdempotencyKey string          `gorm:"type:varchar(100);not null;uniqueIndex:uniq_report_market_key,priority:2"`
	CreatedAt      time.Time       `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (Report) TableName() string {
	return "reports"
}
