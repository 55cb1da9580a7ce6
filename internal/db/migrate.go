package db

import (
	"fmt"

	"go_library/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Models lists every table owned by the service
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Category{},
		&model.Book{},
		&model.Borrow{},
		&model.Fee{},
		&model.LibraryEvent{},
	}
}

// Migrate runs database migrations for all models
func Migrate(gormDB *gorm.DB, log *logrus.Entry) error {
	log.Info("Starting database migration...")

	models := Models()
	if err := gormDB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Infof("Database migration completed successfully (%d tables)", len(models))
	return nil
}
