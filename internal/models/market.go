package models

import (
	"time"
)

const (
	MarketStatusOpen     = "OPEN"
	MarketStatusResolved = "RESOLVED"
)

type Market struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Question  string    `gorm:"type:text;not null"`
	ClosesAt  time.Time `gorm:"type:timestamptz;not null;index"`
	Status    string    `gorm:"type:varchar(20);not null;default:'OPEN';index"`
	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Market) TableName() string {
	return "markets"
}
