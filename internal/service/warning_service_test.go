package service

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-profileguard/internal/models"
)

const (
	testGroupID = int64(-100777)
	testUserID  = int64(11)
)

func newMemoryLedger() *WarningLedger {
	return NewWarningLedger(models.NewLedgerStore(), nil)
}

// TestWarningLedger_ConcurrentWarnings verifies no increments are lost
// under parallel message handling.
func TestWarningLedger_ConcurrentWarnings(t *testing.T) {
	ledger := newMemoryLedger()

	const messages = 100
	var wg sync.WaitGroup
	for i := 0; i < messages; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ledger.RecordWarning(testGroupID, testUserID)
		}()
	}
	wg.Wait()

	record := ledger.GetOrCreate(testGroupID, testUserID)
	assert.Equal(t, messages, record.WarningCount)
	assert.NotNil(t, record.FirstWarnedAt)
}

// TestWarningLedger_ConcurrentRestriction verifies the escalation path
// and the sweep cannot both win the transition.
func TestWarningLedger_ConcurrentRestriction(t *testing.T) {
	ledger := newMemoryLedger()
	ledger.RecordWarning(testGroupID, testUserID)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, changed := ledger.MarkRestricted(testGroupID, testUserID, models.RestrictedBySystem); changed {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.True(t, ledger.GetOrCreate(testGroupID, testUserID).IsRestricted)
}

// TestWarningLedger_EpisodeLifecycle walks warn → restrict → reset.
func TestWarningLedger_EpisodeLifecycle(t *testing.T) {
	ledger := newMemoryLedger()

	warned := ledger.RecordWarning(testGroupID, testUserID)
	assert.Equal(t, 1, warned.WarningCount)

	restricted, changed := ledger.MarkRestricted(testGroupID, testUserID, models.RestrictedBySystem)
	require.True(t, changed)
	assert.Equal(t, models.RestrictedBySystem, restricted.RestrictedBy)

	reset := ledger.ResetEpisode(testGroupID, testUserID)
	assert.Equal(t, 0, reset.WarningCount)
	assert.False(t, reset.IsRestricted)
	assert.Nil(t, reset.FirstWarnedAt)
}

// TestWarningLedger_ListOverdue verifies the service delegates the
// snapshot scan.
func TestWarningLedger_ListOverdue(t *testing.T) {
	ledger := newMemoryLedger()
	ledger.RecordWarning(testGroupID, testUserID)

	overdue := ledger.ListOverdue(testGroupID, time.Now().Add(time.Hour), 30*time.Minute)
	require.Len(t, overdue, 1)
	assert.Equal(t, testUserID, overdue[0].UserID)

	none := ledger.ListOverdue(testGroupID, time.Now(), 30*time.Minute)
	assert.Empty(t, none)
}

// TestWhitelistService covers the in-memory add/remove paths without a
// repository.
func TestWhitelistService(t *testing.T) {
	whitelist := NewWhitelistService(nil)

	assert.False(t, whitelist.Contains(testUserID))

	require.NoError(t, whitelist.Add(testUserID, 1))
	assert.True(t, whitelist.Contains(testUserID))
	assert.Error(t, whitelist.Add(testUserID, 1), "double verification is rejected")

	require.NoError(t, whitelist.Remove(testUserID))
	assert.False(t, whitelist.Contains(testUserID))
	assert.Error(t, whitelist.Remove(testUserID))
}

// TestCaptchaService_RemoveGate verifies the timeout path and the
// verify path cannot both act on one challenge.
func TestCaptchaService_RemoveGate(t *testing.T) {
	captcha := NewCaptchaService(nil)

	captcha.Add(&models.PendingCaptcha{GroupID: testGroupID, UserID: testUserID})

	assert.True(t, captcha.Remove(testGroupID, testUserID))
	assert.False(t, captcha.Remove(testGroupID, testUserID))
}
