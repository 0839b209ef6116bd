package documents

import (
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateDocument(document *Document) error {
	return d.db.Create(document).Error
}

func (d *Database) ListDocumentsByKey(key string) ([]Document, error) {
	var documents []Document
	if err := d.db.Where("key = ?", key).Order("created_at asc").Find(&documents).Error; err != nil {
		return nil, err
	}
	return documents, nil
}
