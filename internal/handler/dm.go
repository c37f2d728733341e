package handler

import (
	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-profileguard/internal/enforcer"
	"tg-profileguard/internal/logger"
)

// handlePrivateMessage routes a DM: admin commands first, everything
// else from a non-bot user starts the unrestriction flow.
func handlePrivateMessage(ctx *th.Context, tgBot *telego.Bot, message telego.Message) error {
	if message.From == nil || message.From.IsBot {
		return nil
	}

	handled, err := handleCommand(ctx, tgBot, message)
	if handled {
		return err
	}

	sender := enforcer.Member{
		UserID:      message.From.ID,
		Username:    message.From.Username,
		DisplayName: displayName(message.From),
	}
	if err := engine.HandleDirectMessage(ctx, sender, message.Chat.ID); err != nil {
		logger.Warningf("Error handling DM from user %d: %v", sender.UserID, err)
	}
	return nil
}
