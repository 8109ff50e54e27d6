package database

import (
	"gorm.io/gorm"

	"github.com/noah-isme/exampilot-api/internal/models"
)

// Migrate creates or updates the tables owned by the service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Submission{},
		&models.Evaluation{},
		&models.ResourceMaterial{},
		&models.GeneratedContent{},
		&models.MockPaper{},
		&models.Question{},
	)
}
