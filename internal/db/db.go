package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/grvc/ambassadors/internal/models"
)

// DSNParams are appended to a bare sqlite path.
const DSNParams = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"

// Open opens (creating if needed) the sqlite database at path and migrates it.
func Open(path string) (*gorm.DB, error) {
	conn, err := gorm.Open(sqlite.Open(path+DSNParams), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single writer; cap the pool accordingly.
	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := conn.AutoMigrate(&models.Registration{}); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	// Composite index GORM doesn't auto-create from struct tags.
	if err := conn.Exec("CREATE INDEX IF NOT EXISTS idx_reg_church_submitted ON registrations(church_id, submitted_at)").Error; err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return conn, nil
}

// Close releases the underlying connection pool.
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
