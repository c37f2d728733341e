// Package enforcer implements the warning/restriction state machine:
// the per-message escalation path, the periodic reconciliation pass,
// and the DM unrestriction flow. All coordination between the racing
// paths goes through the ledger's atomic MarkRestricted; transport
// side effects are only issued by the caller that won the transition.
package enforcer

import (
	"context"
	"fmt"
	"time"

	"tg-profileguard/internal/logger"
	"tg-profileguard/internal/models"
	"tg-profileguard/internal/policy"
)

// Options carries the enforcement configuration the engine needs.
type Options struct {
	GroupID              int64
	Mode                 policy.Mode
	WarningThreshold     int
	TimeThresholdMinutes int
	RulesLink            string
	// DMLink is the deep link to the bot's private chat, shown in
	// restriction notices.
	DMLink string
}

// Engine drives enforcement against the ledger and the transport.
type Engine struct {
	opts      Options
	ledger    Ledger
	checker   ProfileChecker
	transport Transport
}

// New creates an enforcement engine.
func New(opts Options, ledger Ledger, checker ProfileChecker, transport Transport) *Engine {
	return &Engine{opts: opts, ledger: ledger, checker: checker, transport: transport}
}

// HandleGroupMessage processes one qualifying group message: runs the
// profile check, updates the ledger, and dispatches the decided side
// effect. Compliant messages never mutate the ledger; a prior episode
// is only ever reset by the unrestriction flow.
func (e *Engine) HandleGroupMessage(ctx context.Context, sender Member) error {
	result, err := e.checker.Check(ctx, sender.UserID, sender.Username)
	if err != nil {
		// No penalty on a failed check; the next message retries.
		return fmt.Errorf("profile check failed for user %d: %w", sender.UserID, err)
	}

	if result.IsComplete() {
		return nil
	}

	updated := e.ledger.RecordWarning(e.opts.GroupID, sender.UserID)
	action := policy.Decide(false, e.opts.Mode, e.opts.WarningThreshold, policy.RecordView{
		WarningCount: updated.WarningCount,
		IsRestricted: updated.IsRestricted,
	})

	switch action {
	case policy.ActionWarn:
		e.sendWarning(ctx, sender, result.MissingText())
	case policy.ActionRestrict:
		e.restrictByCount(ctx, sender, updated.WarningCount, result.MissingText())
	}

	return nil
}

func (e *Engine) sendWarning(ctx context.Context, sender Member, missingText string) {
	mention := MentionHTML(sender.UserID, sender.DisplayName)
	display := thresholdDisplay(e.opts.TimeThresholdMinutes)

	var text string
	if e.opts.Mode == policy.ModeProgressive {
		text = fmt.Sprintf(warnProgressiveTemplate, mention, missingText,
			e.opts.WarningThreshold, display, e.opts.RulesLink)
	} else {
		text = fmt.Sprintf(warnOnlyTemplate, mention, missingText, display, e.opts.RulesLink)
	}

	if err := e.transport.SendTopicMessage(ctx, text); err != nil {
		// Ledger state is already committed; the failed notice is not
		// retried for this event.
		logger.Warningf("Error sending warning for user %d: %v", sender.UserID, err)
		return
	}
	logger.Infof("Warned user %d (%s) for missing: %s", sender.UserID, sender.DisplayName, missingText)
}

func (e *Engine) restrictByCount(ctx context.Context, sender Member, messageCount int, missingText string) {
	_, changed := e.ledger.MarkRestricted(e.opts.GroupID, sender.UserID, models.RestrictedBySystem)
	if !changed {
		// Another path already committed the restriction; suppress the
		// duplicate side effect.
		logger.Debugf("User %d already restricted, skipping duplicate notice", sender.UserID)
		return
	}

	if err := e.transport.RestrictMember(ctx, sender.UserID); err != nil {
		logger.Warningf("Error restricting user %d: %v", sender.UserID, err)
	}

	mention := MentionHTML(sender.UserID, sender.DisplayName)
	text := fmt.Sprintf(restrictedByCountTemplate, mention, messageCount, missingText,
		e.opts.RulesLink, e.opts.DMLink)
	if err := e.transport.SendTopicMessage(ctx, text); err != nil {
		logger.Warningf("Error sending restriction notice for user %d: %v", sender.UserID, err)
	}

	logger.Infof("Restricted user %d (%s) after %d messages", sender.UserID, sender.DisplayName, messageCount)
}

// SweepTick runs one reconciliation pass: every warned, unrestricted
// record past the time threshold is restricted, so enforcement cannot
// be evaded by going silent. Records the message path restricted in
// the meantime are skipped silently; per-record failures are isolated
// so the rest of the batch still runs.
func (e *Engine) SweepTick(ctx context.Context, now time.Time) {
	overdue := e.ledger.ListOverdue(e.opts.GroupID, now, time.Duration(e.opts.TimeThresholdMinutes)*time.Minute)
	if len(overdue) == 0 {
		logger.Debugf("No overdue warnings to process")
		return
	}

	logger.Infof("Processing %d overdue warnings", len(overdue))
	for _, record := range overdue {
		e.restrictOverdue(ctx, record)
	}
}

func (e *Engine) restrictOverdue(ctx context.Context, record models.WarningRecord) {
	status, err := e.transport.MemberStatus(ctx, record.UserID)
	if err != nil {
		logger.Warningf("Error checking status of overdue user %d: %v", record.UserID, err)
		return
	}

	// A kicked member cannot rejoin on their own; retire the episode
	// instead of restricting.
	if status == StatusBanned {
		e.ledger.ResetEpisode(e.opts.GroupID, record.UserID)
		logger.Infof("Skipped overdue restriction for user %d: user was kicked", record.UserID)
		return
	}

	_, changed := e.ledger.MarkRestricted(e.opts.GroupID, record.UserID, models.RestrictedBySystem)
	if !changed {
		// Restricted via the message-count path since the snapshot was
		// taken. Expected race resolution, not an error.
		return
	}

	if err := e.transport.RestrictMember(ctx, record.UserID); err != nil {
		logger.Warningf("Error restricting overdue user %d: %v", record.UserID, err)
	}

	mention := e.mentionForUser(ctx, record.UserID)
	text := fmt.Sprintf(restrictedByTimeTemplate, mention,
		thresholdDisplay(e.opts.TimeThresholdMinutes), e.opts.RulesLink, e.opts.DMLink)
	if err := e.transport.SendTopicMessage(ctx, text); err != nil {
		logger.Warningf("Error sending overdue restriction notice for user %d: %v", record.UserID, err)
	}

	logger.Infof("Restricted user %d after %d minutes without profile completion",
		record.UserID, e.opts.TimeThresholdMinutes)
}

// mentionForUser builds a mention for a user known only by ID. The
// sweep has no message to take a display name from.
func (e *Engine) mentionForUser(ctx context.Context, userID int64) string {
	name, err := e.transport.MemberDisplayName(ctx, userID)
	if err != nil || name == "" {
		name = fmt.Sprintf("User %d", userID)
	}
	return MentionHTML(userID, name)
}
