// Package sqlitedb opens GORM SQLite handles the way every storage module in
// this service expects them.
package sqlitedb

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// PathFromURL converts a sqlite:///path URL to a file path. Anything that is
// not a sqlite URL is returned unchanged.
func PathFromURL(url string) string {
	if rest, ok := strings.CutPrefix(url, "sqlite:///"); ok {
		return rest
	}
	if rest, ok := strings.CutPrefix(url, "sqlite://"); ok {
		return rest
	}
	return url
}

// Open opens the database at path. SQLite allows one writer at a time and an
// in-memory database exists per connection, so the pool is limited to a single
// connection. Foreign keys are enabled for cascading deletes.
func Open(path string, debug bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}
