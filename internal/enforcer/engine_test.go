package enforcer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tg-profileguard/internal/checker"
	"tg-profileguard/internal/models"
	"tg-profileguard/internal/policy"
	"tg-profileguard/internal/service"
)

const (
	testGroupID = int64(-100555)
	testUserID  = int64(7)
)

type sentDM struct {
	ChatID int64
	Text   string
}

// fakeTransport records side effects instead of calling Telegram.
type fakeTransport struct {
	topicMessages []string
	directs       []sentDM
	restricted    []int64
	lifted        []int64

	statuses  map[int64]MemberStatus
	names     map[int64]string
	statusErr error
	liftErr   error
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		statuses: make(map[int64]MemberStatus),
		names:    make(map[int64]string),
	}
}

func (f *fakeTransport) SendTopicMessage(ctx context.Context, text string) error {
	f.topicMessages = append(f.topicMessages, text)
	return nil
}

func (f *fakeTransport) SendDirect(ctx context.Context, chatID int64, text string) error {
	f.directs = append(f.directs, sentDM{ChatID: chatID, Text: text})
	return nil
}

func (f *fakeTransport) RestrictMember(ctx context.Context, userID int64) error {
	f.restricted = append(f.restricted, userID)
	return nil
}

func (f *fakeTransport) LiftRestriction(ctx context.Context, userID int64) error {
	if f.liftErr != nil {
		return f.liftErr
	}
	f.lifted = append(f.lifted, userID)
	return nil
}

func (f *fakeTransport) MemberStatus(ctx context.Context, userID int64) (MemberStatus, error) {
	if f.statusErr != nil {
		return StatusUnknown, f.statusErr
	}
	if status, ok := f.statuses[userID]; ok {
		return status, nil
	}
	return StatusMember, nil
}

func (f *fakeTransport) MemberDisplayName(ctx context.Context, userID int64) (string, error) {
	if name, ok := f.names[userID]; ok {
		return name, nil
	}
	return "", errors.New("not found")
}

// fakeChecker returns canned profile results per user.
type fakeChecker struct {
	results map[int64]checker.Result
	err     error
}

func (f *fakeChecker) Check(ctx context.Context, userID int64, username string) (checker.Result, error) {
	if f.err != nil {
		return checker.Result{}, f.err
	}
	return f.results[userID], nil
}

func newTestEngine(mode policy.Mode, threshold int) (*Engine, *service.WarningLedger, *fakeTransport, *fakeChecker) {
	ledger := service.NewWarningLedger(models.NewLedgerStore(), nil)
	transport := newFakeTransport()
	profiles := &fakeChecker{results: make(map[int64]checker.Result)}

	engine := New(Options{
		GroupID:              testGroupID,
		Mode:                 mode,
		WarningThreshold:     threshold,
		TimeThresholdMinutes: 30,
		RulesLink:            "https://t.me/c/100555/1/2",
		DMLink:               "https://t.me/profileguard_bot",
	}, ledger, profiles, transport)

	return engine, ledger, transport, profiles
}

func testMember(userID int64) Member {
	return Member{UserID: userID, Username: "", DisplayName: fmt.Sprintf("Member %d", userID)}
}

// TestHandleGroupMessage_CompliantUserUntouched verifies a complete
// profile never mutates the ledger or produces messages.
func TestHandleGroupMessage_CompliantUserUntouched(t *testing.T) {
	engine, ledger, transport, profiles := newTestEngine(policy.ModeProgressive, 3)
	profiles.results[testUserID] = checker.Result{HasProfilePhoto: true, HasUsername: true}

	for i := 0; i < 4; i++ {
		require.NoError(t, engine.HandleGroupMessage(context.Background(), testMember(testUserID)))
	}

	record := ledger.GetOrCreate(testGroupID, testUserID)
	assert.Equal(t, 0, record.WarningCount)
	assert.Nil(t, record.FirstWarnedAt)
	assert.Empty(t, transport.topicMessages)
	assert.Empty(t, transport.restricted)
}

// TestHandleGroupMessage_CompliantMessageKeepsEpisode verifies a later
// compliant message does not reset an open episode.
func TestHandleGroupMessage_CompliantMessageKeepsEpisode(t *testing.T) {
	engine, ledger, _, profiles := newTestEngine(policy.ModeProgressive, 3)

	profiles.results[testUserID] = checker.Result{}
	require.NoError(t, engine.HandleGroupMessage(context.Background(), testMember(testUserID)))

	profiles.results[testUserID] = checker.Result{HasProfilePhoto: true, HasUsername: true}
	require.NoError(t, engine.HandleGroupMessage(context.Background(), testMember(testUserID)))

	record := ledger.GetOrCreate(testGroupID, testUserID)
	assert.Equal(t, 1, record.WarningCount)
	assert.NotNil(t, record.FirstWarnedAt)
}

// TestProgressiveEscalation walks one user through warn, silence, and
// restriction at the threshold.
func TestProgressiveEscalation(t *testing.T) {
	engine, ledger, transport, profiles := newTestEngine(policy.ModeProgressive, 3)
	profiles.results[testUserID] = checker.Result{HasUsername: true}

	ctx := context.Background()
	member := testMember(testUserID)

	// Message 1: warning.
	require.NoError(t, engine.HandleGroupMessage(ctx, member))
	require.Len(t, transport.topicMessages, 1)
	assert.Contains(t, transport.topicMessages[0], "a public profile photo")
	assert.Empty(t, transport.restricted)

	// Message 2: counted silently.
	require.NoError(t, engine.HandleGroupMessage(ctx, member))
	assert.Len(t, transport.topicMessages, 1)

	// Message 3: threshold reached, restriction plus one notice.
	require.NoError(t, engine.HandleGroupMessage(ctx, member))
	assert.Equal(t, []int64{testUserID}, transport.restricted)
	require.Len(t, transport.topicMessages, 2)
	assert.Contains(t, transport.topicMessages[1], "restricted")

	// Message 4: already restricted, nothing more happens.
	require.NoError(t, engine.HandleGroupMessage(ctx, member))
	assert.Len(t, transport.restricted, 1)
	assert.Len(t, transport.topicMessages, 2)

	record := ledger.GetOrCreate(testGroupID, testUserID)
	assert.Equal(t, 3, record.WarningCount)
	assert.True(t, record.IsRestricted)
	assert.Equal(t, models.RestrictedBySystem, record.RestrictedBy)
}

// TestWarnOnly_SingleWarningNoCountRestriction verifies warn-only mode
// warns exactly once per episode and never restricts on count.
func TestWarnOnly_SingleWarningNoCountRestriction(t *testing.T) {
	engine, ledger, transport, profiles := newTestEngine(policy.ModeWarnOnly, 3)
	profiles.results[testUserID] = checker.Result{HasProfilePhoto: true}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, engine.HandleGroupMessage(ctx, testMember(testUserID)))
	}

	assert.Len(t, transport.topicMessages, 1)
	assert.Contains(t, transport.topicMessages[0], "a username")
	assert.Empty(t, transport.restricted)

	record := ledger.GetOrCreate(testGroupID, testUserID)
	assert.Equal(t, 5, record.WarningCount)
	assert.False(t, record.IsRestricted)
}

// TestThresholdOne_RestrictsWithoutWarning verifies a threshold of one
// skips the warning entirely.
func TestThresholdOne_RestrictsWithoutWarning(t *testing.T) {
	engine, _, transport, profiles := newTestEngine(policy.ModeProgressive, 1)
	profiles.results[testUserID] = checker.Result{}

	require.NoError(t, engine.HandleGroupMessage(context.Background(), testMember(testUserID)))

	assert.Equal(t, []int64{testUserID}, transport.restricted)
	require.Len(t, transport.topicMessages, 1)
	assert.Contains(t, transport.topicMessages[0], "restricted")
}

// TestHandleGroupMessage_CheckFailureIsNotPenalized verifies a failed
// profile check neither warns nor mutates state.
func TestHandleGroupMessage_CheckFailureIsNotPenalized(t *testing.T) {
	engine, ledger, transport, profiles := newTestEngine(policy.ModeProgressive, 3)
	profiles.err = errors.New("api down")

	err := engine.HandleGroupMessage(context.Background(), testMember(testUserID))
	assert.Error(t, err)

	record := ledger.GetOrCreate(testGroupID, testUserID)
	assert.Equal(t, 0, record.WarningCount)
	assert.Empty(t, transport.topicMessages)
}

// TestSweepTick_RestrictsOverdue verifies the time trigger fires for a
// warned user who went silent.
func TestSweepTick_RestrictsOverdue(t *testing.T) {
	engine, ledger, transport, profiles := newTestEngine(policy.ModeWarnOnly, 3)
	profiles.results[testUserID] = checker.Result{}
	transport.names[testUserID] = "Silent One"

	require.NoError(t, engine.HandleGroupMessage(context.Background(), testMember(testUserID)))
	require.Len(t, transport.topicMessages, 1)

	engine.SweepTick(context.Background(), time.Now().Add(31*time.Minute))

	assert.Equal(t, []int64{testUserID}, transport.restricted)
	require.Len(t, transport.topicMessages, 2)
	assert.Contains(t, transport.topicMessages[1], "Silent One")

	record := ledger.GetOrCreate(testGroupID, testUserID)
	assert.True(t, record.IsRestricted)
	assert.Equal(t, models.RestrictedBySystem, record.RestrictedBy)
}

// TestSweepTick_BeforeThresholdDoesNothing verifies the sweep leaves
// young episodes alone.
func TestSweepTick_BeforeThresholdDoesNothing(t *testing.T) {
	engine, _, transport, profiles := newTestEngine(policy.ModeWarnOnly, 3)
	profiles.results[testUserID] = checker.Result{}

	require.NoError(t, engine.HandleGroupMessage(context.Background(), testMember(testUserID)))

	engine.SweepTick(context.Background(), time.Now().Add(29*time.Minute))

	assert.Empty(t, transport.restricted)
	assert.Len(t, transport.topicMessages, 1)
}

// TestSweepTick_SkipsAlreadyRestricted verifies the dual-trigger race
// resolves to a single restriction and a single notice.
func TestSweepTick_SkipsAlreadyRestricted(t *testing.T) {
	engine, _, transport, profiles := newTestEngine(policy.ModeProgressive, 3)
	profiles.results[testUserID] = checker.Result{}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, engine.HandleGroupMessage(ctx, testMember(testUserID)))
	}
	require.Len(t, transport.restricted, 1)
	noticesBefore := len(transport.topicMessages)

	engine.SweepTick(ctx, time.Now().Add(31*time.Minute))

	assert.Len(t, transport.restricted, 1)
	assert.Len(t, transport.topicMessages, noticesBefore)
}

// TestSweepTick_RetiresKickedMember verifies an overdue record for a
// kicked user is retired instead of restricted.
func TestSweepTick_RetiresKickedMember(t *testing.T) {
	engine, ledger, transport, profiles := newTestEngine(policy.ModeWarnOnly, 3)
	profiles.results[testUserID] = checker.Result{}
	transport.statuses[testUserID] = StatusBanned

	require.NoError(t, engine.HandleGroupMessage(context.Background(), testMember(testUserID)))

	engine.SweepTick(context.Background(), time.Now().Add(31*time.Minute))

	assert.Empty(t, transport.restricted)
	assert.Len(t, transport.topicMessages, 1)

	record := ledger.GetOrCreate(testGroupID, testUserID)
	assert.Equal(t, 0, record.WarningCount)
	assert.False(t, record.IsRestricted)
}

// TestSweepTick_IsolatesStatusFailures verifies one failing lookup
// does not block the rest of the batch.
func TestSweepTick_IsolatesStatusFailures(t *testing.T) {
	engine, _, transport, profiles := newTestEngine(policy.ModeWarnOnly, 3)
	otherUser := testUserID + 1
	profiles.results[testUserID] = checker.Result{}
	profiles.results[otherUser] = checker.Result{}

	ctx := context.Background()
	require.NoError(t, engine.HandleGroupMessage(ctx, testMember(testUserID)))
	require.NoError(t, engine.HandleGroupMessage(ctx, testMember(otherUser)))

	// Fail the lookup for one user only.
	transport.statuses[testUserID] = StatusMember
	transport.statuses[otherUser] = StatusMember
	transport.statusErr = nil

	failing := newFailingStatusTransport(transport, testUserID)
	engineWithFailure := New(engine.opts, engine.ledger, engine.checker, failing)

	engineWithFailure.SweepTick(ctx, time.Now().Add(31*time.Minute))

	assert.Equal(t, []int64{otherUser}, transport.restricted)
}

// failingStatusTransport wraps a fakeTransport and fails MemberStatus
// for one user.
type failingStatusTransport struct {
	*fakeTransport
	failFor int64
}

func newFailingStatusTransport(inner *fakeTransport, failFor int64) *failingStatusTransport {
	return &failingStatusTransport{fakeTransport: inner, failFor: failFor}
}

func (f *failingStatusTransport) MemberStatus(ctx context.Context, userID int64) (MemberStatus, error) {
	if userID == f.failFor {
		return StatusUnknown, errors.New("lookup failed")
	}
	return f.fakeTransport.MemberStatus(ctx, userID)
}
