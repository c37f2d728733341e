package bot

import (
	"context"

	"github.com/mymmrac/telego"

	"tg-profileguard/internal/logger"
)

// Info holds the bot identity and the monitored group's admin list,
// both fetched once at startup. The admin list is a snapshot; admins
// promoted later are picked up on restart.
type Info struct {
	ID       int64
	Username string
	admins   map[int64]bool
}

var info *Info

// GetInfo returns the bot identity loaded at startup.
func GetInfo() *Info {
	return info
}

// IsAdmin reports whether the user was an administrator of the
// monitored group when the bot started.
func (i *Info) IsAdmin(userID int64) bool {
	return i.admins[userID]
}

func loadInfo(ctx context.Context, bot *telego.Bot, botUser *telego.User, groupID int64) error {
	admins, err := bot.GetChatAdministrators(ctx, &telego.GetChatAdministratorsParams{
		ChatID: telego.ChatID{ID: groupID},
	})
	if err != nil {
		return err
	}

	adminIDs := make(map[int64]bool, len(admins))
	for _, member := range admins {
		adminIDs[member.MemberUser().ID] = true
	}
	logger.Infof("Loaded %d administrators for group %d", len(adminIDs), groupID)

	info = &Info{
		ID:       botUser.ID,
		Username: botUser.Username,
		admins:   adminIDs,
	}
	return nil
}
