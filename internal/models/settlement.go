package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settlement is the finalized outcome for a market. The unique index on
// market_id is the arbiter for at-most-one settlement per market; rows are
// immutable once written.
type Settlement struct {
	ID        string          `gorm:"primaryKey;type:text"`
	MarketID  string          `gorm:"type:text;not null;uniqueIndex"`
	Outcome   decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	DecidedAt time.Time       `gorm:"type:timestamptz;not null"`
	CreatedAt time.Time       `gorm:"type:timestamptz;autoCreateTime"`
}

func (Settlement) TableName() string {
	return "settlements"
}
