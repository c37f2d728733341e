package handler

import (
	"fmt"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-profileguard/internal/bot"
	"tg-profileguard/internal/checker"
	"tg-profileguard/internal/config"
	"tg-profileguard/internal/enforcer"
	"tg-profileguard/internal/policy"
	"tg-profileguard/internal/service"
)

var (
	globalConfig *config.Config
	engine       *enforcer.Engine
	transport    *telegramTransport
)

func Initialize(cfg *config.Config) {
	globalConfig = cfg
	service.Initialize(cfg)
}

// Engine returns the enforcement engine built by
// SetupMessageHandlers. The sweeper drives its reconciliation pass.
func Engine() *enforcer.Engine {
	return engine
}

// SetupMessageHandlers configures all bot message and update handlers
func SetupMessageHandlers(bh *th.BotHandler, tgBot *telego.Bot) {
	service.InitRepositories()

	transport = newTelegramTransport(tgBot, globalConfig.Bot.GroupID, globalConfig.Bot.WarningTopicID)
	profileChecker := checker.New(tgBot, service.Whitelist())

	engine = enforcer.New(enforcer.Options{
		GroupID:              globalConfig.Bot.GroupID,
		Mode:                 policy.ParseMode(globalConfig.Enforcement.Mode),
		WarningThreshold:     globalConfig.Enforcement.WarningThreshold,
		TimeThresholdMinutes: globalConfig.Enforcement.TimeThresholdMinutes,
		RulesLink:            globalConfig.Enforcement.RulesLink,
		DMLink:               fmt.Sprintf("https://t.me/%s", bot.GetInfo().Username),
	}, service.Ledger(), profileChecker, transport)

	if globalConfig.Captcha.Enabled {
		restoreCaptchaTimers(tgBot)
	}

	bh.HandleMessage(func(ctx *th.Context, message telego.Message) error {
		if message.Chat.Type == "private" {
			return handlePrivateMessage(ctx, tgBot, message)
		}
		return handleGroupMessage(ctx, tgBot, message)
	})

	bh.Handle(func(ctx *th.Context, update telego.Update) error {
		return handleChatMemberUpdate(ctx, tgBot, update)
	}, th.AnyChatMember())

	bh.HandleCallbackQuery(func(ctx *th.Context, query telego.CallbackQuery) error {
		return handleCallbackQuery(ctx, tgBot, query)
	})
}
