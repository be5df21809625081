package database

import (
	"errors"
	"fmt"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL driver
	_ "github.com/jinzhu/gorm/dialects/sqlite"   // SQLite driver
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"tableside/internal/config"
	"tableside/internal/models"
)

// Open connects to the relational database named by cfg
func Open(cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	if cfg.Driver == "sqlite3" {
		// SQLite allows one writer; a single connection keeps writers queued
		// instead of failing with "database is locked".
		db.DB().SetMaxOpenConns(1)
	}
	db.LogMode(false)
	return db, nil
}

// Migrate creates or updates every table the service uses
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.Comment{},
		&models.OrderSequence{},
		&models.Customer{},
		&models.Staff{},
		&models.Coupon{},
		&models.FoodItem{},
	).Error
}

// isUniqueViolation recognises duplicate-key errors from both drivers
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
