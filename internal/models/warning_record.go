package models

import "time"

// Restriction attribution. The ledger only ever writes "system"; an
// admin-imposed restriction is inferred at the transport boundary and
// never stored (see the DM flow).
const (
	RestrictedByNone   = ""
	RestrictedBySystem = "system"
	RestrictedByAdmin  = "admin"
)

// WarningRecord is the unit of enforcement state for one user in one
// group: how many non-compliant messages they have sent this episode,
// when the episode started, and whether they have been restricted.
type WarningRecord struct {
	ID            uint       `gorm:"primaryKey;autoIncrement"`
	GroupID       int64      `gorm:"uniqueIndex:idx_group_user;not null"`
	UserID        int64      `gorm:"uniqueIndex:idx_group_user;not null"`
	WarningCount  int        `gorm:"not null;default:0"`
	FirstWarnedAt *time.Time `gorm:"index"`
	IsRestricted  bool       `gorm:"default:false"`
	RestrictedBy  string     `gorm:"default:''"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Overdue reports whether the record has aged past the time threshold
// without being restricted.
func (r *WarningRecord) Overdue(now time.Time, ageThreshold time.Duration) bool {
	if r.IsRestricted || r.FirstWarnedAt == nil {
		return false
	}
	return now.Sub(*r.FirstWarnedAt) >= ageThreshold
}
