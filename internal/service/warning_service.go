package service

import (
	"sync"
	"time"

	"tg-profileguard/internal/logger"
	"tg-profileguard/internal/models"
	"tg-profileguard/internal/storage"
)

// WarningLedger is the authoritative enforcement state. The in-memory
// store is the runtime source of truth; when a repository is attached,
// every mutation is written through before the next operation on the
// ledger can start, so the persisted order matches the linearized
// in-memory order. Transport side effects never happen under this
// lock: callers act on the returned records after the method returns.
type WarningLedger struct {
	mu    sync.Mutex
	store *models.LedgerStore
	repo  *storage.WarningRepository
}

// NewWarningLedger creates a ledger over the given store. repo may be
// nil when database support is disabled.
func NewWarningLedger(store *models.LedgerStore, repo *storage.WarningRepository) *WarningLedger {
	return &WarningLedger{store: store, repo: repo}
}

// GetOrCreate returns the record for (groupID, userID), creating a
// zero-state record if the user has never failed a profile check.
func (l *WarningLedger) GetOrCreate(groupID, userID int64) models.WarningRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.GetOrCreate(groupID, userID, time.Now())
}

// RecordWarning increments the warning count for one qualifying
// non-compliant message and returns the post-update record.
func (l *WarningLedger) RecordWarning(groupID, userID int64) models.WarningRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := l.store.RecordWarning(groupID, userID, time.Now())
	l.persist(&record)
	return record
}

// MarkRestricted transitions the record to restricted. The boolean is
// true only for the one caller that actually performed the transition;
// racing callers observe false and must suppress their side effect.
func (l *WarningLedger) MarkRestricted(groupID, userID int64, by string) (models.WarningRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, changed := l.store.MarkRestricted(groupID, userID, by, time.Now())
	if changed {
		l.persist(&record)
	}
	return record, changed
}

// ResetEpisode clears the record to zero state, starting a fresh
// episode. Used by the unrestriction flow and admin verification.
func (l *WarningLedger) ResetEpisode(groupID, userID int64) models.WarningRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := l.store.ResetEpisode(groupID, userID, time.Now())
	l.persist(&record)
	return record
}

// ListOverdue returns a snapshot of warned, unrestricted records whose
// age meets the threshold.
func (l *WarningLedger) ListOverdue(groupID int64, now time.Time, ageThreshold time.Duration) []models.WarningRecord {
	return l.store.ListOverdue(groupID, now, ageThreshold)
}

// persist writes a record through to the repository. Failures are
// logged and do not roll back the in-memory mutation: the store stays
// authoritative for this run and the next successful write catches up.
func (l *WarningLedger) persist(record *models.WarningRecord) {
	if l.repo == nil {
		return
	}
	if err := l.repo.Save(record); err != nil {
		logger.Warningf("Error persisting warning record for user %d in group %d: %v",
			record.UserID, record.GroupID, err)
	}
}
