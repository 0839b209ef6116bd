package migrations

import (
	"github.com/boursa/brokerage-api/internal/documents"
	"gorm.io/gorm"
)

func AddDocuments(db *gorm.DB) error {
	return db.AutoMigrate(&documents.Document{})
}
