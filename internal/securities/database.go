package securities

import (
	"errors"

	"github.com/boursa/brokerage-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateSecurity(security *types.Security) error {
	return d.db.Create(security).Error
}

func (d *Database) GetSecurity(securityID string) (*types.Security, error) {
	var security types.Security
	err := d.db.Preload("CouponSchedule").
		Where("security_id = ?", securityID).
		First(&security).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &security, nil
}

func (d *Database) ListSecurities(securityType types.SecurityType, market types.Market) ([]types.Security, error) {
	query := d.db.Preload("CouponSchedule")
	if securityType != "" {
		query = query.Where("type = ?", securityType)
	}
	if market != "" {
		query = query.Where("market_type = ?", market)
	}

	var securities []types.Security
	if err := query.Order("created_at desc").Find(&securities).Error; err != nil {
		return nil, err
	}
	return securities, nil
}

func (d *Database) UpdateSecurity(security *types.Security) error {
	return d.db.Save(security).Error
}

// DeleteSecurity removes a security and its coupon schedule in one transaction
func (d *Database) DeleteSecurity(securityID string) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("security_id = ?", securityID).Delete(&types.CouponRate{}).Error; err != nil {
		tx.Rollback()
		return err
	}

	result := tx.Where("security_id = ?", securityID).Delete(&types.Security{})
	if result.Error != nil {
		tx.Rollback()
		return result.Error
	}
	if result.RowsAffected == 0 {
		tx.Rollback()
		return gorm.ErrRecordNotFound
	}

	return tx.Commit().Error
}

// ReplaceCouponSchedule swaps the coupon schedule of a security
func (d *Database) ReplaceCouponSchedule(securityID string, schedule []types.CouponRate) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Where("security_id = ?", securityID).Delete(&types.CouponRate{}).Error; err != nil {
		tx.Rollback()
		return err
	}

	for i := range schedule {
		schedule[i].SecurityID = securityID
		if err := tx.Create(&schedule[i]).Error; err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit().Error
}
