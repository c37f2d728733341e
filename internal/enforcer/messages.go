package enforcer

import (
	"fmt"
	"strings"
)

// Notice templates. Sent with HTML parse mode; user mentions are
// tg://user links so they work for users without a username.

const (
	warnOnlyTemplate = "⚠️ Hi %s, please add %s to comply with the group rules.\n" +
		"You will be restricted after %s.\n\n" +
		"📖 <a href=\"%s\">Read the group rules</a>"

	warnProgressiveTemplate = "⚠️ Hi %s, please add %s to comply with the group rules.\n" +
		"You will be restricted after %d messages or %s.\n\n" +
		"📖 <a href=\"%s\">Read the group rules</a>"

	restrictedByCountTemplate = "🚫 %s has been restricted after %d messages.\n" +
		"Please add %s to comply with the group rules.\n\n" +
		"📖 <a href=\"%s\">Read the group rules</a>\n" +
		"✉️ <a href=\"%s\">Message the bot directly to lift the restriction</a>"

	restrictedByTimeTemplate = "🚫 %s has been restricted for not completing their profile within %s.\n\n" +
		"📖 <a href=\"%s\">Read the group rules</a>\n" +
		"✉️ <a href=\"%s\">Message the bot directly to lift the restriction</a>"

	dmNotInGroupText = "❌ You are not a member of the group.\n" +
		"Please join the group first."

	dmIncompleteTemplate = "❌ You do not meet the requirements yet.\n\n" +
		"Please add %s first, then message this bot again.\n\n" +
		"📖 <a href=\"%s\">Read the group rules</a>"

	dmNoRestrictionText = "ℹ️ You have no restriction from this bot.\n" +
		"If you were restricted by an admin, please contact the group admins directly."

	dmAdminRestrictedText = "ℹ️ Your restriction was imposed by an admin, not by this bot.\n" +
		"Please contact the group admins directly."

	dmAlreadyUnrestrictedText = "ℹ️ You are no longer restricted in the group.\n" +
		"Welcome back!"

	dmUnrestrictedText = "✅ Congratulations! You meet the requirements now.\n" +
		"Your restriction in the group has been lifted. Welcome back!"

	dmRetryLaterText = "⚠️ Something went wrong while checking your status.\n" +
		"Please try again in a moment."
)

// MentionHTML returns an HTML link mentioning a user by display name.
func MentionHTML(userID int64, displayName string) string {
	name := displayName
	name = strings.ReplaceAll(name, "&", "&amp;")
	name = strings.ReplaceAll(name, "<", "&lt;")
	name = strings.ReplaceAll(name, ">", "&gt;")
	return fmt.Sprintf("<a href=\"tg://user?id=%d\">%s</a>", userID, name)
}

// thresholdDisplay renders the time threshold as whole hours when
// possible, minutes otherwise.
func thresholdDisplay(minutes int) string {
	if minutes >= 60 {
		hours := minutes / 60
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	if minutes == 1 {
		return "1 minute"
	}
	return fmt.Sprintf("%d minutes", minutes)
}
