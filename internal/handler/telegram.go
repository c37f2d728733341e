package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego"

	"tg-profileguard/internal/enforcer"
)

// Bot API calls never block an update handler indefinitely.
const apiTimeout = 10 * time.Second

// newAPIContext returns a bounded context for bot calls made outside
// an update handler, such as timer callbacks.
func newAPIContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), apiTimeout)
}

// telegramTransport implements enforcer.Transport over a telego bot,
// bound to the monitored group and its warning topic.
type telegramTransport struct {
	bot            *telego.Bot
	groupID        int64
	warningTopicID int
}

func newTelegramTransport(bot *telego.Bot, groupID int64, warningTopicID int) *telegramTransport {
	return &telegramTransport{bot: bot, groupID: groupID, warningTopicID: warningTopicID}
}

// SendTopicMessage posts a HTML notice to the warning topic.
func (t *telegramTransport) SendTopicMessage(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	params := &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: t.groupID},
		Text:      text,
		ParseMode: "HTML",
	}
	if t.warningTopicID != 0 {
		params.MessageThreadID = t.warningTopicID
	}

	_, err := t.bot.SendMessage(ctx, params)
	return err
}

// SendDirect replies in a private chat.
func (t *telegramTransport) SendDirect(ctx context.Context, chatID int64, text string) error {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	_, err := t.bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		Text:      text,
		ParseMode: "HTML",
	})
	return err
}

// RestrictMember revokes all permissions for a user in the group.
func (t *telegramTransport) RestrictMember(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	return t.bot.RestrictChatMember(ctx, &telego.RestrictChatMemberParams{
		ChatID:      telego.ChatID{ID: t.groupID},
		UserID:      userID,
		Permissions: telego.ChatPermissions{},
	})
}

// LiftRestriction restores the group's default permissions for a user.
// The defaults are fetched per call so group setting changes are
// picked up.
func (t *telegramTransport) LiftRestriction(ctx context.Context, userID int64) error {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	chatInfo, err := t.bot.GetChat(ctx, &telego.GetChatParams{
		ChatID: telego.ChatID{ID: t.groupID},
	})
	if err != nil {
		return fmt.Errorf("failed to get group permissions: %w", err)
	}

	permissions := telego.ChatPermissions{}
	if chatInfo.Permissions != nil {
		permissions = *chatInfo.Permissions
	}

	return t.bot.RestrictChatMember(ctx, &telego.RestrictChatMemberParams{
		ChatID:      telego.ChatID{ID: t.groupID},
		UserID:      userID,
		Permissions: permissions,
	})
}

// MemberStatus reports a user's membership state in the group.
func (t *telegramTransport) MemberStatus(ctx context.Context, userID int64) (enforcer.MemberStatus, error) {
	member, err := t.getChatMember(ctx, userID)
	if err != nil {
		return enforcer.StatusUnknown, err
	}

	switch member.MemberStatus() {
	case telego.MemberStatusCreator, telego.MemberStatusAdministrator:
		return enforcer.StatusAdministrator, nil
	case telego.MemberStatusMember:
		return enforcer.StatusMember, nil
	case telego.MemberStatusRestricted:
		// A restricted record with is_member=false belongs to someone
		// who left while restricted.
		if restricted, ok := member.(*telego.ChatMemberRestricted); ok && !restricted.IsMember {
			return enforcer.StatusLeft, nil
		}
		return enforcer.StatusRestricted, nil
	case telego.MemberStatusLeft:
		return enforcer.StatusLeft, nil
	case telego.MemberStatusBanned:
		return enforcer.StatusBanned, nil
	}
	return enforcer.StatusUnknown, nil
}

// MemberDisplayName returns the user's current first/last name.
func (t *telegramTransport) MemberDisplayName(ctx context.Context, userID int64) (string, error) {
	member, err := t.getChatMember(ctx, userID)
	if err != nil {
		return "", err
	}

	user := member.MemberUser()
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return strings.TrimSpace(name), nil
}

func (t *telegramTransport) getChatMember(ctx context.Context, userID int64) (telego.ChatMember, error) {
	ctx, cancel := context.WithTimeout(ctx, apiTimeout)
	defer cancel()

	return t.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: t.groupID},
		UserID: userID,
	})
}
