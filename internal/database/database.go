package database

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/pcos-screening-api/internal/models"
)

// Connect opens the submission store with the configured driver.
func Connect(driver, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn must not be empty", driver)
	}

	gormConfig := &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}

	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	return db, nil
}

// Migrate creates or updates the screening tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.ScreeningModels()...); err != nil {
		return fmt.Errorf("failed to migrate screening tables: %w", err)
	}
	return nil
}
