package migrations

import (
	"github.com/boursa/brokerage-api/internal/types"
	"gorm.io/gorm"
)

func AddCouponSchedules(db *gorm.DB) error {
	if err := db.AutoMigrate(&types.CouponRate{}); err != nil {
		return err
	}

	if err := db.AutoMigrate(&types.Security{}); err != nil {
		return err
	}

	return nil
}
