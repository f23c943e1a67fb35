package db

import (
	"oracle/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Market{},
		&models.Report{},
		&models.Settlement{},
		&models.Batch{},
		&models.BatchItem{},
		&models.OutboxEntry{},
		&models.SystemSetting{},
	)
}
