package models

import "time"

// PhotoWhitelist records users whose profile photo an admin has
// verified manually because privacy settings hide it from the bot.
// Whitelisted users pass the photo half of the profile check without
// an API call.
type PhotoWhitelist struct {
	ID                uint   `gorm:"primaryKey;autoIncrement"`
	UserID            int64  `gorm:"uniqueIndex;not null"`
	VerifiedByAdminID int64  `gorm:"not null"`
	Notes             string `gorm:"type:text"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
