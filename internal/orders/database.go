package orders

import (
	"errors"
	"time"

	"github.com/boursa/brokerage-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) GetOrder(orderID string) (*types.Order, error) {
	var order types.Order
	if err := d.db.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (d *Database) GetOrderForOwner(orderID, ownerID string) (*types.Order, error) {
	var order types.Order
	if err := d.db.Where("order_id = ? AND (owner_id = ? OR client_id = ?)", orderID, ownerID, ownerID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

func (d *Database) UpdateOrder(order *types.Order) error {
	return d.db.Save(order).Error
}

// GetSecurity resolves the security an order references
func (d *Database) GetSecurity(securityID string) (*types.Security, error) {
	var security types.Security
	if err := d.db.Where("security_id = ?", securityID).First(&security).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &security, nil
}

// GetClient resolves the client an order is placed for
func (d *Database) GetClient(clientID string) (*types.Client, error) {
	var client types.Client
	if err := d.db.Where("client_id = ?", clientID).First(&client).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &client, nil
}

// CreateOrderWithIdempotency creates a new order and idempotency record in a transaction
func (d *Database) CreateOrderWithIdempotency(order *types.Order, idempotencyKey string) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(order).Error; err != nil {
		tx.Rollback()
		return err
	}

	// A key whose earlier record has expired may be reused; clear the stale
	// row so the unique index accepts the new one
	if err := tx.Unscoped().
		Where("idempotency_key = ? AND expires_at <= ?", idempotencyKey, time.Now()).
		Delete(&IdempotencyRecord{}).Error; err != nil {
		tx.Rollback()
		return err
	}

	record := IdempotencyRecord{
		IdempotencyKey: idempotencyKey,
		ResourceID:     order.OrderID,
		ResourceType:   "order",
		ExpiresAt:      time.Now().Add(24 * time.Hour),
	}

	if err := tx.Create(&record).Error; err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}

// GetIdempotencyRecord retrieves an idempotency record by key
func (d *Database) GetIdempotencyRecord(key string) (*IdempotencyRecord, error) {
	var record IdempotencyRecord
	if err := d.db.Where("idempotency_key = ?", key).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &record, nil
		}
		return nil, err
	}
	return &record, nil
}

func (d *Database) CreateWorkflow(workflow *Workflow) error {
	return d.db.Create(workflow).Error
}

func (d *Database) GetWorkflow(workflowID string) (*Workflow, error) {
	var workflow Workflow
	if err := d.db.Where("workflow_id = ?", workflowID).First(&workflow).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &workflow, nil
}

func (d *Database) UpdateWorkflow(workflow *Workflow) error {
	return d.db.Save(workflow).Error
}

// GetOrdersAwaitingDocumentBefore returns orders still waiting for their
// signed bulletin that were created before the cutoff.
func (d *Database) GetOrdersAwaitingDocumentBefore(cutoff time.Time) ([]types.Order, error) {
	var orders []types.Order
	err := d.db.Where("status = ? AND created_at < ?", types.OrderStatusPendingDocument, cutoff).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}
