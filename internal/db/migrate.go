package db

import (
	"fmt"

	"github.com/stickerpress/curator/internal/models"
	"gorm.io/gorm"
)

// AllModels returns the list of GORM models for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Asset{},
		&models.ClassificationRecord{},
		&models.ReprocessJob{},
	}
}

// AutoMigrate creates or updates all Curator tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
