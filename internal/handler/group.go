package handler

import (
	"context"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-profileguard/internal/bot"
	"tg-profileguard/internal/enforcer"
	"tg-profileguard/internal/logger"
)

// messageDeleter is the slice of the bot API the topic guard needs.
type messageDeleter interface {
	DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error
}

// handleGroupMessage filters group traffic down to qualifying
// messages and runs the escalation path for them. Only text messages
// from non-admin humans in the monitored group count; everything else
// passes through untouched.
func handleGroupMessage(ctx *th.Context, tgBot *telego.Bot, message telego.Message) error {
	if message.From == nil {
		return nil
	}
	if message.Chat.ID != globalConfig.Bot.GroupID {
		logger.Debugf("Ignoring message from unmonitored chat %d", message.Chat.ID)
		return nil
	}

	sender := message.From
	if sender.IsBot {
		return nil
	}

	if topicID := globalConfig.Bot.WarningTopicID; topicID != 0 && message.MessageThreadID == topicID {
		return guardWarningTopic(ctx, tgBot, message, bot.GetInfo().IsAdmin)
	}

	if bot.GetInfo().IsAdmin(sender.ID) {
		return nil
	}

	if message.Text == "" || isCommandMessage(message) {
		return nil
	}

	member := enforcer.Member{
		UserID:      sender.ID,
		Username:    sender.Username,
		DisplayName: displayName(sender),
	}
	if err := engine.HandleGroupMessage(ctx, member); err != nil {
		logger.Warningf("Error handling group message from user %d: %v", sender.ID, err)
	}
	return nil
}

// isCommandMessage reports whether the message starts with a bot
// command, like /start or /help@somebot. Commands are addressed to
// bots, not the group, and do not count toward enforcement.
func isCommandMessage(message telego.Message) bool {
	for _, entity := range message.Entities {
		if entity.Type == telego.EntityTypeBotCommand && entity.Offset == 0 {
			return true
		}
	}
	return false
}

// guardWarningTopic deletes anything a non-admin posts in the warning
// topic. The topic is a bot notice board, not a discussion thread.
func guardWarningTopic(ctx context.Context, deleter messageDeleter, message telego.Message, isAdmin func(int64) bool) error {
	if isAdmin(message.From.ID) {
		return nil
	}

	err := deleter.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    telego.ChatID{ID: message.Chat.ID},
		MessageID: message.MessageID,
	})
	if err != nil {
		// Deletion can fail when the message is already gone or the
		// bot lost its delete permission. Not worth failing the update.
		logger.Warningf("Error deleting message %d in warning topic: %v", message.MessageID, err)
		return nil
	}

	logger.Infof("Deleted message %d from user %d in warning topic", message.MessageID, message.From.ID)
	return nil
}

func displayName(user *telego.User) string {
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return name
}
