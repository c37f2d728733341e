package enforcer

import (
	"context"
	"time"

	"tg-profileguard/internal/checker"
	"tg-profileguard/internal/models"
)

// MemberStatus is the transport-reported membership state of a user in
// the monitored group.
type MemberStatus int

const (
	StatusUnknown MemberStatus = iota
	StatusMember
	StatusAdministrator
	StatusRestricted
	StatusLeft
	StatusBanned
)

// Transport is the messaging surface the engine dispatches side
// effects to. Implementations are bound to the monitored group and its
// warning topic; every call may fail with a retryable error and must
// carry its own bounded timeout.
type Transport interface {
	// SendTopicMessage posts to the warning topic.
	SendTopicMessage(ctx context.Context, text string) error
	// SendDirect replies in a private chat.
	SendDirect(ctx context.Context, chatID int64, text string) error
	// RestrictMember mutes a user in the group.
	RestrictMember(ctx context.Context, userID int64) error
	// LiftRestriction restores the group's default permissions.
	LiftRestriction(ctx context.Context, userID int64) error
	// MemberStatus reports the user's membership state.
	MemberStatus(ctx context.Context, userID int64) (MemberStatus, error)
	// MemberDisplayName returns the user's display name for mentions.
	MemberDisplayName(ctx context.Context, userID int64) (string, error)
}

// ProfileChecker is the boolean oracle for profile completeness.
type ProfileChecker interface {
	Check(ctx context.Context, userID int64, username string) (checker.Result, error)
}

// Ledger is the per-(group, user) enforcement state with the atomic
// operations the engine and the sweep coordinate through.
type Ledger interface {
	GetOrCreate(groupID, userID int64) models.WarningRecord
	RecordWarning(groupID, userID int64) models.WarningRecord
	MarkRestricted(groupID, userID int64, by string) (models.WarningRecord, bool)
	ResetEpisode(groupID, userID int64) models.WarningRecord
	ListOverdue(groupID int64, now time.Time, ageThreshold time.Duration) []models.WarningRecord
}

// Member identifies a message sender.
type Member struct {
	UserID      int64
	Username    string
	DisplayName string
}
