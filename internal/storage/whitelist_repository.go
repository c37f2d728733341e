package storage

import (
	"tg-profileguard/internal/models"

	"gorm.io/gorm"
)

// WhitelistRepository handles database operations for PhotoWhitelist
type WhitelistRepository struct {
	db *gorm.DB
}

// NewWhitelistRepository creates a new WhitelistRepository
func NewWhitelistRepository(db *gorm.DB) *WhitelistRepository {
	return &WhitelistRepository{db: db}
}

// MigrateTable ensures the PhotoWhitelist table exists
func (r *WhitelistRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.PhotoWhitelist{})
}

// Create inserts a new whitelist entry
func (r *WhitelistRepository) Create(record *models.PhotoWhitelist) error {
	return r.db.Create(record).Error
}

// Get returns the whitelist entry for a user, or nil if absent
func (r *WhitelistRepository) Get(userID int64) (*models.PhotoWhitelist, error) {
	var record models.PhotoWhitelist
	result := r.db.Where("user_id = ?", userID).First(&record)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, result.Error
	}
	return &record, nil
}

// GetAll retrieves all whitelist entries
func (r *WhitelistRepository) GetAll() ([]*models.PhotoWhitelist, error) {
	var records []*models.PhotoWhitelist
	result := r.db.Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

// Delete removes the whitelist entry for a user
func (r *WhitelistRepository) Delete(userID int64) error {
	result := r.db.Where("user_id = ?", userID).Delete(&models.PhotoWhitelist{})
	return result.Error
}
