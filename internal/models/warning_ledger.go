package models

import (
	"sync"
	"time"
)

type ledgerKey struct {
	GroupID int64
	UserID  int64
}

// LedgerStore holds all warning records in memory, keyed by
// (group, user). Every operation takes the store lock, so operations
// on the same key are linearizable: two near-simultaneous messages
// from one user cannot both observe count 0, and the escalation path
// and the sweep cannot both win a restriction.
type LedgerStore struct {
	mu      sync.RWMutex
	records map[ledgerKey]*WarningRecord
}

// NewLedgerStore creates an empty ledger store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		records: make(map[ledgerKey]*WarningRecord),
	}
}

func (s *LedgerStore) getOrCreateLocked(groupID, userID int64, now time.Time) *WarningRecord {
	key := ledgerKey{GroupID: groupID, UserID: userID}
	if record, ok := s.records[key]; ok {
		return record
	}
	record := &WarningRecord{
		GroupID:   groupID,
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.records[key] = record
	return record
}

// GetOrCreate returns a copy of the record for (groupID, userID),
// creating a zero-state record if none exists.
func (s *LedgerStore) GetOrCreate(groupID, userID int64, now time.Time) WarningRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.getOrCreateLocked(groupID, userID, now)
}

// RecordWarning increments the warning count and sets FirstWarnedAt on
// the 0→1 transition. Restricted records are returned unchanged:
// further increments after restriction must not occur.
func (s *LedgerStore) RecordWarning(groupID, userID int64, now time.Time) WarningRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.getOrCreateLocked(groupID, userID, now)
	if record.IsRestricted {
		return *record
	}

	record.WarningCount++
	if record.WarningCount == 1 {
		first := now
		record.FirstWarnedAt = &first
	}
	record.UpdatedAt = now
	return *record
}

// MarkRestricted flips the record to restricted and attributes it.
// Returns false without mutating if the record is already restricted;
// the caller uses the return value to decide whether to perform the
// transport-level restriction, so at most one side effect is issued
// per episode no matter how many paths race here.
func (s *LedgerStore) MarkRestricted(groupID, userID int64, by string, now time.Time) (WarningRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.getOrCreateLocked(groupID, userID, now)
	if record.IsRestricted {
		return *record, false
	}

	record.IsRestricted = true
	record.RestrictedBy = by
	if record.FirstWarnedAt == nil {
		// restricted ⇒ warned: anchor the episode here
		first := now
		record.FirstWarnedAt = &first
	}
	record.UpdatedAt = now
	return *record, true
}

// ResetEpisode clears the record back to zero state. The record itself
// is retained so history is not lost while the user remains a member.
func (s *LedgerStore) ResetEpisode(groupID, userID int64, now time.Time) WarningRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := s.getOrCreateLocked(groupID, userID, now)
	record.WarningCount = 0
	record.FirstWarnedAt = nil
	record.IsRestricted = false
	record.RestrictedBy = RestrictedByNone
	record.UpdatedAt = now
	return *record
}

// ListOverdue returns copies of all warned, not-yet-restricted records
// whose age meets the threshold. The result is a snapshot: iterating
// it is safe while other keys are concurrently mutated.
func (s *LedgerStore) ListOverdue(groupID int64, now time.Time, ageThreshold time.Duration) []WarningRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var overdue []WarningRecord
	for key, record := range s.records {
		if key.GroupID != groupID {
			continue
		}
		if record.Overdue(now, ageThreshold) {
			overdue = append(overdue, *record)
		}
	}
	return overdue
}

// Put inserts a record, replacing any existing entry for its key.
// Used to load persisted state at startup.
func (s *LedgerStore) Put(record *WarningRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *record
	s.records[ledgerKey{GroupID: record.GroupID, UserID: record.UserID}] = &copied
}

// Len returns the number of records in the store.
func (s *LedgerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
