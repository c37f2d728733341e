package models

import "time"

// PendingCaptcha is an unanswered join challenge. Persisted so that a
// restart can recover challenges whose timeout was still pending.
type PendingCaptcha struct {
	ID        uint  `gorm:"primaryKey;autoIncrement"`
	GroupID   int64 `gorm:"index;not null"`
	UserID    int64 `gorm:"index;not null"`
	ChatID    int64 `gorm:"not null"`
	MessageID int   `gorm:"not null"`
	UserName  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
