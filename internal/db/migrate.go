package db

import (
	"fmt"

	"github.com/zulandar/tracewell/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model for migration.
func AllModels() []interface{} {
	return []interface{}{
		&models.Story{},
		&models.Approval{},
		&models.TestCase{},
		&models.TestStep{},
		&models.TestExecution{},
		&models.StepResult{},
		&models.Defect{},
		&models.AuditEntry{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}
