package clients

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

func (d *Database) CreateClient(client *types.Client) error {
	return d.db.Create(client).Error
}

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

func (d *Database) ListClients() ([]types.Client, error) {
	var clients []types.Client
	if err := d.db.Order("name asc").Find(&clients).Error; err != nil {
		return nil, err
	}
	return clients, nil
}
