package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-profileguard/internal/bot"
	"tg-profileguard/internal/enforcer"
	"tg-profileguard/internal/logger"
	"tg-profileguard/internal/models"
	"tg-profileguard/internal/service"
)

// handleCommand intercepts admin commands in a DM. It returns false
// for anything else, including /start, so plain messages fall through
// to the unrestriction flow.
func handleCommand(ctx *th.Context, tgBot *telego.Bot, message telego.Message) (bool, error) {
	if !strings.HasPrefix(message.Text, "/") {
		return false, nil
	}

	fields := strings.Fields(message.Text)
	command := strings.TrimSuffix(fields[0], "@"+bot.GetInfo().Username)

	switch command {
	case "/verify":
		return true, handleVerify(ctx, message, fields[1:])
	case "/unverify":
		return true, handleUnverify(ctx, message, fields[1:])
	}
	return false, nil
}

// handleVerify marks a user's photo requirement as manually satisfied
// and clears any enforcement episode the requirement caused.
func handleVerify(ctx *th.Context, message telego.Message, args []string) error {
	userID, ok := requireAdminCommand(ctx, message, args, "/verify")
	if !ok {
		return nil
	}

	if err := service.Whitelist().Add(userID, message.From.ID); err != nil {
		return transport.SendDirect(ctx, message.Chat.ID,
			fmt.Sprintf("ℹ️ User %d is already verified.", userID))
	}
	logger.Infof("Admin %d verified photo for user %d", message.From.ID, userID)

	clearEpisodeAfterVerify(ctx, userID)

	return transport.SendDirect(ctx, message.Chat.ID,
		fmt.Sprintf("✅ User %d is now verified. Their profile photo requirement is waived.", userID))
}

// handleUnverify removes a manual photo verification. Enforcement
// resumes on the user's next message.
func handleUnverify(ctx *th.Context, message telego.Message, args []string) error {
	userID, ok := requireAdminCommand(ctx, message, args, "/unverify")
	if !ok {
		return nil
	}

	if err := service.Whitelist().Remove(userID); err != nil {
		return transport.SendDirect(ctx, message.Chat.ID,
			fmt.Sprintf("ℹ️ User %d is not verified.", userID))
	}
	logger.Infof("Admin %d removed photo verification for user %d", message.From.ID, userID)

	return transport.SendDirect(ctx, message.Chat.ID,
		fmt.Sprintf("✅ Verification removed for user %d.", userID))
}

// requireAdminCommand validates the caller and the USER_ID argument,
// replying with usage errors itself. The second return is false when
// the command must not proceed.
func requireAdminCommand(ctx *th.Context, message telego.Message, args []string, usage string) (int64, bool) {
	if !bot.GetInfo().IsAdmin(message.From.ID) {
		logger.Infof("User %d attempted admin command %s", message.From.ID, usage)
		transport.SendDirect(ctx, message.Chat.ID, "❌ This command is only available to group administrators.")
		return 0, false
	}

	if len(args) != 1 {
		transport.SendDirect(ctx, message.Chat.ID, fmt.Sprintf("Usage: %s USER_ID", usage))
		return 0, false
	}

	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || userID <= 0 {
		transport.SendDirect(ctx, message.Chat.ID, fmt.Sprintf("❌ %q is not a valid user ID.", args[0]))
		return 0, false
	}

	return userID, true
}

// clearEpisodeAfterVerify lifts a system-imposed restriction and
// retires the episode for a freshly verified user. Admin-imposed
// restrictions are left in place.
func clearEpisodeAfterVerify(ctx *th.Context, userID int64) {
	groupID := globalConfig.Bot.GroupID
	record := service.Ledger().GetOrCreate(groupID, userID)

	if record.WarningCount == 0 && !record.IsRestricted {
		return
	}

	if record.IsRestricted && record.RestrictedBy == models.RestrictedBySystem {
		if err := transport.LiftRestriction(ctx, userID); err != nil {
			logger.Warningf("Error lifting restriction for verified user %d: %v", userID, err)
		}
	}

	service.Ledger().ResetEpisode(groupID, userID)

	mention := enforcer.MentionHTML(userID, verifiedDisplayName(ctx, userID))
	text := fmt.Sprintf("✅ %s has been verified by an admin. Welcome back!", mention)
	if err := transport.SendTopicMessage(ctx, text); err != nil {
		logger.Warningf("Error sending verification notice for user %d: %v", userID, err)
	}
}

func verifiedDisplayName(ctx *th.Context, userID int64) string {
	name, err := transport.MemberDisplayName(ctx, userID)
	if err != nil || name == "" {
		return fmt.Sprintf("User %d", userID)
	}
	return name
}
