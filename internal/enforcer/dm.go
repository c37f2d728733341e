package enforcer

import (
	"context"
	"fmt"

	"tg-profileguard/internal/logger"
	"tg-profileguard/internal/models"
)

// HandleDirectMessage runs the unrestriction flow for a private
// message from a user. The flow only ever lifts restrictions this
// system imposed: a restriction observed on the transport but not
// attributed to the system in the ledger is treated as admin-imposed
// and left alone.
func (e *Engine) HandleDirectMessage(ctx context.Context, sender Member, chatID int64) error {
	status, err := e.transport.MemberStatus(ctx, sender.UserID)
	if err != nil {
		// Tell the user to retry rather than giving a false denial.
		logger.Warningf("Error checking membership of user %d: %v", sender.UserID, err)
		return e.transport.SendDirect(ctx, chatID, dmRetryLaterText)
	}

	if status == StatusUnknown || status == StatusLeft || status == StatusBanned {
		logger.Infof("DM from user %d: not a member of group %d", sender.UserID, e.opts.GroupID)
		return e.transport.SendDirect(ctx, chatID, dmNotInGroupText)
	}

	record := e.ledger.GetOrCreate(e.opts.GroupID, sender.UserID)

	if !record.IsRestricted || record.RestrictedBy != models.RestrictedBySystem {
		// Restricted on Telegram but not by us: an admin imposed it,
		// and the system must never lift a restriction it did not
		// itself impose.
		if status == StatusRestricted {
			logger.Infof("DM from user %d: restriction not imposed by this bot", sender.UserID)
			return e.transport.SendDirect(ctx, chatID, dmAdminRestrictedText)
		}
		logger.Infof("DM from user %d: no active restriction", sender.UserID)
		return e.transport.SendDirect(ctx, chatID, dmNoRestrictionText)
	}

	result, err := e.checker.Check(ctx, sender.UserID, sender.Username)
	if err != nil {
		logger.Warningf("Error checking profile of user %d: %v", sender.UserID, err)
		return e.transport.SendDirect(ctx, chatID, dmRetryLaterText)
	}

	if !result.IsComplete() {
		logger.Infof("DM from user %d: still missing %s", sender.UserID, result.MissingText())
		text := fmt.Sprintf(dmIncompleteTemplate, result.MissingText(), e.opts.RulesLink)
		return e.transport.SendDirect(ctx, chatID, text)
	}

	// We restricted them but Telegram no longer reports the
	// restriction: an admin lifted it manually. Just retire our state.
	if status != StatusRestricted {
		e.ledger.ResetEpisode(e.opts.GroupID, sender.UserID)
		logger.Infof("User %d already unrestricted externally, episode reset", sender.UserID)
		return e.transport.SendDirect(ctx, chatID, dmAlreadyUnrestrictedText)
	}

	if err := e.transport.LiftRestriction(ctx, sender.UserID); err != nil {
		logger.Warningf("Error lifting restriction for user %d: %v", sender.UserID, err)
		return e.transport.SendDirect(ctx, chatID, dmRetryLaterText)
	}

	e.ledger.ResetEpisode(e.opts.GroupID, sender.UserID)
	logger.Infof("Unrestricted user %d via DM", sender.UserID)
	return e.transport.SendDirect(ctx, chatID, dmUnrestrictedText)
}
