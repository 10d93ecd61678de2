package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/campusloop/assess-api/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate applies the schema for every persisted entity. Ordering matters:
// parents before children so foreign keys resolve.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Assignment{},
		&models.Criteria{},
		&models.Submission{},
		&models.SubmissionFile{},
		&models.CriteriaScore{},
		&models.CourseContent{},
		&models.QuizAttempt{},
		&models.QuestionResponse{},
		&models.ActivityLog{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	return nil
}
