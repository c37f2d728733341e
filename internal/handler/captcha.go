package handler

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mymmrac/telego"
	th "github.com/mymmrac/telego/telegohandler"

	"tg-profileguard/internal/bot"
	"tg-profileguard/internal/crash"
	"tg-profileguard/internal/enforcer"
	"tg-profileguard/internal/logger"
	"tg-profileguard/internal/models"
	"tg-profileguard/internal/service"
)

const (
	captchaWelcomeTemplate = "👋 Welcome %s!\n" +
		"Please press the button below within %d seconds to verify you are human."

	captchaVerifiedTemplate = "✅ %s verified successfully. Welcome to the group!"

	captchaTimeoutTemplate = "⏰ %s did not verify in time and stays restricted.\n" +
		"✉️ <a href=\"%s\">Message the bot directly to lift the restriction</a>"

	captchaWrongUserText = "This button is not for you."
	captchaExpiredText   = "Your verification expired. Please message the bot directly."
	captchaRetryText     = "Verification failed. Please message the bot directly."
	captchaButtonText    = "✅ I am not a robot"
)

// Live timeout timers, keyed by user ID. The single monitored group
// makes the group ID redundant here.
var (
	captchaTimersMu sync.Mutex
	captchaTimers   = make(map[int64]*time.Timer)
)

// handleChatMemberUpdate gates new members behind a captcha button
// when the gate is enabled. Joiners are restricted immediately and
// unrestricted on a correct button press.
func handleChatMemberUpdate(ctx *th.Context, tgBot *telego.Bot, update telego.Update) error {
	if update.ChatMember == nil || !globalConfig.Captcha.Enabled {
		return nil
	}
	if update.ChatMember.Chat.ID != globalConfig.Bot.GroupID {
		return nil
	}

	newMember := update.ChatMember.NewChatMember
	user := newMember.MemberUser()
	if user.IsBot {
		return nil
	}

	oldStatus := update.ChatMember.OldChatMember.MemberStatus()
	joined := oldStatus == telego.MemberStatusLeft || oldStatus == telego.MemberStatusBanned
	if !joined || newMember.MemberStatus() != telego.MemberStatusMember {
		return nil
	}

	return challengeNewMember(ctx, tgBot, user)
}

func challengeNewMember(ctx *th.Context, tgBot *telego.Bot, user telego.User) error {
	if err := transport.RestrictMember(ctx, user.ID); err != nil {
		logger.Warningf("Error restricting new member %d for captcha: %v", user.ID, err)
		return nil
	}
	logger.Infof("Restricted new member %d (%s) for captcha", user.ID, displayName(&user))

	keyboard := &telego.InlineKeyboardMarkup{
		InlineKeyboard: [][]telego.InlineKeyboardButton{{{
			Text:         captchaButtonText,
			CallbackData: fmt.Sprintf("captcha:%d", user.ID),
		}}},
	}

	mention := enforcer.MentionHTML(user.ID, displayName(&user))
	params := &telego.SendMessageParams{
		ChatID:      telego.ChatID{ID: globalConfig.Bot.GroupID},
		Text:        fmt.Sprintf(captchaWelcomeTemplate, mention, globalConfig.Captcha.TimeoutSeconds),
		ParseMode:   "HTML",
		ReplyMarkup: keyboard,
	}
	if globalConfig.Bot.WarningTopicID != 0 {
		params.MessageThreadID = globalConfig.Bot.WarningTopicID
	}

	sent, err := tgBot.SendMessage(ctx, params)
	if err != nil {
		logger.Warningf("Error sending captcha challenge for user %d: %v", user.ID, err)
		return nil
	}

	record := &models.PendingCaptcha{
		GroupID:   globalConfig.Bot.GroupID,
		UserID:    user.ID,
		ChatID:    sent.Chat.ID,
		MessageID: sent.MessageID,
		UserName:  displayName(&user),
		CreatedAt: time.Now(),
	}
	service.Captcha().Add(record)

	scheduleCaptchaTimeout(tgBot, record, globalConfig.Captcha.Timeout())
	logger.Infof("Sent captcha challenge to user %d, timeout in %ds", user.ID, globalConfig.Captcha.TimeoutSeconds)
	return nil
}

func scheduleCaptchaTimeout(tgBot *telego.Bot, record *models.PendingCaptcha, after time.Duration) {
	captchaTimersMu.Lock()
	defer captchaTimersMu.Unlock()

	captchaTimers[record.UserID] = time.AfterFunc(after, func() {
		defer crash.RecoverWithStack("captcha-timeout")
		expireCaptcha(tgBot, record)
	})
}

func cancelCaptchaTimeout(userID int64) {
	captchaTimersMu.Lock()
	defer captchaTimersMu.Unlock()

	if timer, ok := captchaTimers[userID]; ok {
		timer.Stop()
		delete(captchaTimers, userID)
	}
}

// expireCaptcha handles an unanswered challenge. The user stays
// restricted and the restriction is recorded as system-imposed so the
// unrestriction flow can lift it once their profile is complete.
func expireCaptcha(tgBot *telego.Bot, record *models.PendingCaptcha) {
	if !service.Captcha().Remove(record.GroupID, record.UserID) {
		// Verified in the meantime.
		return
	}
	cancelCaptchaTimeout(record.UserID)

	service.Ledger().MarkRestricted(record.GroupID, record.UserID, models.RestrictedBySystem)

	mention := enforcer.MentionHTML(record.UserID, record.UserName)
	dmLink := fmt.Sprintf("https://t.me/%s", bot.GetInfo().Username)
	editCaptchaMessage(tgBot, record, fmt.Sprintf(captchaTimeoutTemplate, mention, dmLink))

	logger.Infof("Captcha timeout for user %d, kept restricted", record.UserID)
}

// handleCallbackQuery resolves captcha button presses.
func handleCallbackQuery(ctx *th.Context, tgBot *telego.Bot, query telego.CallbackQuery) error {
	target, ok := parseCaptchaCallback(query.Data)
	if !ok {
		return answerCallback(ctx, tgBot, query.ID, "", false)
	}

	if query.From.ID != target {
		return answerCallback(ctx, tgBot, query.ID, captchaWrongUserText, true)
	}

	groupID := globalConfig.Bot.GroupID
	if !service.Captcha().Remove(groupID, target) {
		return answerCallback(ctx, tgBot, query.ID, captchaExpiredText, true)
	}
	cancelCaptchaTimeout(target)

	if err := transport.LiftRestriction(ctx, target); err != nil {
		logger.Warningf("Error unrestricting verified user %d: %v", target, err)
		// The pending record is gone, so attribute the leftover
		// restriction to the system to keep the DM flow available.
		service.Ledger().MarkRestricted(groupID, target, models.RestrictedBySystem)
		return answerCallback(ctx, tgBot, query.ID, captchaRetryText, true)
	}

	if msg, ok := query.Message.(*telego.Message); ok {
		mention := enforcer.MentionHTML(target, displayName(&query.From))
		record := &models.PendingCaptcha{
			ChatID:    msg.Chat.ID,
			MessageID: msg.MessageID,
		}
		editCaptchaMessage(tgBot, record, fmt.Sprintf(captchaVerifiedTemplate, mention))
	}

	logger.Infof("User %d passed captcha verification", target)
	return answerCallback(ctx, tgBot, query.ID, "", false)
}

func parseCaptchaCallback(data string) (int64, bool) {
	raw, found := strings.CutPrefix(data, "captcha:")
	if !found {
		return 0, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return userID, true
}

func answerCallback(ctx *th.Context, tgBot *telego.Bot, queryID, text string, alert bool) error {
	return tgBot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: queryID,
		Text:            text,
		ShowAlert:       alert,
	})
}

func editCaptchaMessage(tgBot *telego.Bot, record *models.PendingCaptcha, text string) {
	ctx, cancel := newAPIContext()
	defer cancel()

	_, err := tgBot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    telego.ChatID{ID: record.ChatID},
		MessageID: record.MessageID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		logger.Warningf("Error editing captcha message %d: %v", record.MessageID, err)
	}
}

// restoreCaptchaTimers resumes timeout handling for challenges that
// were pending when the process stopped. Timer state is in-memory, so
// without this a restart would leave joiners restricted forever.
func restoreCaptchaTimers(tgBot *telego.Bot) {
	records, err := service.Captcha().Load()
	if err != nil {
		logger.Warningf("Error loading pending captchas: %v", err)
		return
	}
	if len(records) == 0 {
		return
	}

	logger.Infof("Recovering %d pending captcha verifications", len(records))
	timeout := globalConfig.Captcha.Timeout()
	for _, record := range records {
		remaining := timeout - time.Since(record.CreatedAt)
		if remaining <= 0 {
			rec := record
			crash.SafeGoroutine("captcha-recovery", func() {
				expireCaptcha(tgBot, rec)
			})
			continue
		}
		scheduleCaptchaTimeout(tgBot, record, remaining)
	}
}
