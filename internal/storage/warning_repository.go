package storage

import (
	"time"

	"tg-profileguard/internal/models"

	"gorm.io/gorm"
)

// WarningRepository handles database operations for WarningRecord
type WarningRepository struct {
	db *gorm.DB
}

// NewWarningRepository creates a new WarningRepository
func NewWarningRepository(db *gorm.DB) *WarningRepository {
	return &WarningRepository{db: db}
}

// MigrateTable ensures the WarningRecord table exists
func (r *WarningRepository) MigrateTable() error {
	return r.db.AutoMigrate(&models.WarningRecord{})
}

// Save upserts a warning record keyed by (group_id, user_id)
func (r *WarningRepository) Save(record *models.WarningRecord) error {
	var existing models.WarningRecord
	result := r.db.Where("group_id = ? AND user_id = ?", record.GroupID, record.UserID).First(&existing)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			record.CreatedAt = time.Now()
			record.UpdatedAt = time.Now()
			return r.db.Create(record).Error
		}
		return result.Error
	}

	record.ID = existing.ID
	record.CreatedAt = existing.CreatedAt
	record.UpdatedAt = time.Now()

	return r.db.Save(record).Error
}

// GetAll retrieves all warning records
func (r *WarningRepository) GetAll() ([]*models.WarningRecord, error) {
	var records []*models.WarningRecord
	result := r.db.Find(&records)
	if result.Error != nil {
		return nil, result.Error
	}
	return records, nil
}

// Delete removes the record for a user in a group
func (r *WarningRepository) Delete(groupID, userID int64) error {
	result := r.db.Where("group_id = ? AND user_id = ?", groupID, userID).
		Delete(&models.WarningRecord{})
	return result.Error
}

// LoadIntoStore loads all persisted records into the in-memory ledger
func LoadIntoStore(store *models.LedgerStore) error {
	if DB == nil {
		return nil
	}

	repo := NewWarningRepository(DB)
	records, err := repo.GetAll()
	if err != nil {
		return err
	}

	for _, record := range records {
		store.Put(record)
	}

	return nil
}
