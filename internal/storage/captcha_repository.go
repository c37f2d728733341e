package storage

import (
	"tg-profileguard/internal/models"

	"gorm.io/gorm"
)

// CaptchaRepository handles database operations for PendingCaptcha
type CaptchaRepository struct {
	db *gorm.DB
}

// NewCaptchaRepository creates a new CaptchaRepository
func NewCaptchaRepository(db *gorm.DB) *CaptchaRepository {
	return &CaptchaRepository{db: db}
}

// MigrateTable ensures the PendingCaptcha table exists
func (r *CaptchaRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.PendingCaptcha{})
}

// Create inserts a new pending captcha
func (r *CaptchaRepository) Create(record *models.PendingCaptcha) error {
	return r.db.Create(record).Error
}

// GetAll retrieves all pending captchas
func (r *CaptchaRepository) GetAll() ([]*models.PendingCaptcha, error) {
	var records []*models.PendingCaptcha
	result := r.db.Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

// Delete removes the pending captcha for a user in a group
func (r *CaptchaRepository) Delete(groupID, userID int64) error {
	result := r.db.Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.PendingCaptcha{})
	return result.Error
}
