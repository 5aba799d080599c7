// Package notifier sends operational alerts to a Telegram chat via a bot.
package notifier

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"alphawatch/internal/models"
)

// Bot sends notifications about invoked actions and watcher failures.
// A nil *Bot is valid and drops every notification.
type Bot struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewBot creates a new notifier bot. Returns nil when the token is empty,
// which disables notifications.
func NewBot(token string, chatID int64, logger *zap.Logger) (*Bot, error) {
	if token == "" {
		logger.Info("Notifier bot is disabled (notifier.bot_token is empty)")
		return nil, nil
	}

	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Notifier bot authorized", zap.String("username", botAPI.Self.UserName))

	return &Bot{
		api:    botAPI,
		chatID: chatID,
		logger: logger,
	}, nil
}

// NotifyAction reports a signal that passed the gate and was executed.
func (b *Bot) NotifyAction(signal models.Signal, windowKey string) {
	if b == nil {
		return
	}
	text := fmt.Sprintf("🚀 Action invoked\n\nToken: %s\nSentiment: %s\nSource: %s",
		signal.Token, signal.Sentiment, windowKey)
	b.send(text)
}

// NotifyWatcherFailure reports a watcher that died and was removed.
func (b *Bot) NotifyWatcherFailure(key string, err error) {
	if b == nil {
		return
	}
	b.send(fmt.Sprintf("⚠️ Watcher %s failed: %v", key, err))
}

func (b *Bot) send(text string) {
	msg := tgbotapi.NewMessage(b.chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send notification", zap.Error(err))
	}
}
