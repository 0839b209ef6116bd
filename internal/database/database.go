package database

import (
	"fmt"

	"github.com/boursa/brokerage-api/internal/database/migrations"
	"github.com/boursa/brokerage-api/internal/orders"
	"github.com/boursa/brokerage-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddCouponSchedules(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.AddDocuments(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate other schemas
	err = db.AutoMigrate(
		&types.Client{},
		&types.Order{},
		&orders.Workflow{},
		&orders.IdempotencyRecord{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
