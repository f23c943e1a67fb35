package models

import (
	"time"

	"gorm.io/datatypes"
)

// SystemSetting is a key/value switch row; feature toggles store a JSON bool.
type SystemSetting struct {
	Key         string         `gorm:"primaryKey;type:varchar(100)"`
	Value       datatypes.JSON `gorm:"type:jsonb;not null"`
	Description string         `gorm:"type:text"`
	CreatedAt   time.Time      `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"type:timestamptz;autoUpdateTime"`
}

func (SystemSetting) TableName() string {
	return "system_settings"
}
