// Package policy decides what the bot does about a single message from
// a user with a known warning record. It is a pure decision table: the
// caller performs the ledger mutation first and the transport side
// effect after.
package policy

import "tg-profileguard/internal/config"

// Action is the enforcement decision for one message.
type Action int

const (
	ActionNone Action = iota
	ActionWarn
	ActionRestrict
)

func (a Action) String() string {
	switch a {
	case ActionWarn:
		return "warn"
	case ActionRestrict:
		return "restrict"
	default:
		return "none"
	}
}

// Mode is the enforcement mode.
type Mode int

const (
	// ModeWarnOnly warns once per episode and never restricts on
	// message count. Time-based restriction still applies.
	ModeWarnOnly Mode = iota
	// ModeProgressive warns on the first message and restricts when
	// the count reaches the message threshold.
	ModeProgressive
)

// ParseMode maps the configured mode name to a Mode. Unknown names
// fall back to warn-only, the less aggressive behavior.
func ParseMode(name string) Mode {
	if name == config.ModeProgressive {
		return ModeProgressive
	}
	return ModeWarnOnly
}

// RecordView is the slice of a warning record the evaluator reads.
type RecordView struct {
	WarningCount int
	IsRestricted bool
}

// Decide returns the action for a message given the profile check
// result and the post-increment record. Compliant users always get
// ActionNone: past non-compliance is never punished retroactively.
// A warning is issued only on the 0→1 count transition of an episode;
// in progressive mode the restriction fires exactly when the count
// reaches the threshold, unless the user is already restricted.
func Decide(profileOK bool, mode Mode, messageThreshold int, record RecordView) Action {
	if profileOK {
		return ActionNone
	}
	if record.IsRestricted {
		return ActionNone
	}

	if mode == ModeProgressive && record.WarningCount >= messageThreshold {
		return ActionRestrict
	}
	if record.WarningCount == 1 {
		return ActionWarn
	}
	return ActionNone
}
