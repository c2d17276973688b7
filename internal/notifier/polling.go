package notifier

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// CommandHandler is called when a user command is received and returns the reply.
type CommandHandler func(ctx context.Context, command string) string

// StartPolling begins long-polling for Telegram commands. Blocks until ctx is cancelled.
// Only messages from the configured chat are handled.
func (t *TelegramNotifier) StartPolling(ctx context.Context, handler CommandHandler) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.bot.GetUpdatesChan(u)
	t.logger.Info().Msg("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			t.logger.Info().Msg("telegram polling stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || msg.Chat == nil || strings.TrimSpace(msg.Text) == "" {
				continue
			}
			if msg.Chat.ID != t.ChatID {
				t.logger.Warn().Int64("chat_id", msg.Chat.ID).Msg("ignoring message from unknown chat")
				continue
			}
			text := strings.TrimSpace(msg.Text)
			t.logger.Info().Str("command", text).Msg("received command")
			reply := handler(ctx, text)
			if reply == "" {
				continue
			}
			if err := t.sendTo(ctx, msg.Chat.ID, reply); err != nil {
				t.logger.Error().Err(err).Msg("send reply failed")
			}
		}
	}
}
