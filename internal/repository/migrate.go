package repository

import (
	"cash-application-engine/internal/models"

	"gorm.io/gorm"
)

// Migrate creates or updates every table the engine uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(models.All()...)
}
