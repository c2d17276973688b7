package notifier

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// maxMessageLen is the Telegram limit for one text message, in characters.
const maxMessageLen = 4096

// botAPI is the subset of *tgbotapi.BotAPI the notifier uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	ChatID      int64
	BackoffBase time.Duration

	bot    botAPI
	logger zerolog.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken string, chatID int64, proxyURL string, logger zerolog.Logger) (*TelegramNotifier, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{
		Timeout:   75 * time.Second, // longer than the long-poll timeout
		Transport: transport,
	}
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return newTelegramNotifier(bot, chatID, logger), nil
}

func newTelegramNotifier(bot botAPI, chatID int64, logger zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		ChatID:      chatID,
		BackoffBase: time.Second,
		bot:         bot,
		logger:      logger.With().Str("component", "telegram").Logger(),
	}
}

// Send sends an HTML message to the configured chat, split at line
// boundaries when it exceeds the Telegram size limit.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	return t.sendTo(ctx, t.ChatID, text)
}

func (t *TelegramNotifier) sendTo(ctx context.Context, chatID int64, text string) error {
	for _, part := range splitMessage(text, maxMessageLen) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, part.text)
		if !part.plain {
			msg.ParseMode = tgbotapi.ModeHTML
		}
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		err := t.Send(ctx, text)
		if err == nil {
			return nil
		}
		lastErr = err
		if i == maxRetries {
			break
		}
		backoff := time.Duration(1<<uint(i)) * t.BackoffBase
		t.logger.Warn().Err(err).Int("attempt", i+1).Int("max_attempts", maxRetries+1).
			Dur("backoff", backoff).Msg("telegram send failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}

// messagePart is one outgoing chunk. Plain parts carry no markup and are sent
// without a parse mode.
type messagePart struct {
	text  string
	plain bool
}

var htmlTag = regexp.MustCompile(`<[^>]*>`)

// splitMessage packs whole lines into parts of at most limit characters, so the
// HTML tags of a line stay together. A single line over the limit is reduced to
// plain text and cut on rune boundaries.
func splitMessage(text string, limit int) []messagePart {
	if utf8.RuneCountInString(text) <= limit {
		return []messagePart{{text: text}}
	}
	var (
		parts []messagePart
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, messagePart{text: cur.String()})
			cur.Reset()
			n = 0
		}
	}
	for _, line := range strings.SplitAfter(text, "\n") {
		size := utf8.RuneCountInString(line)
		if size > limit {
			flush()
			for _, chunk := range splitRunes(html.UnescapeString(htmlTag.ReplaceAllString(line, "")), limit) {
				parts = append(parts, messagePart{text: chunk, plain: true})
			}
			continue
		}
		if n+size > limit {
			flush()
		}
		cur.WriteString(line)
		n += size
	}
	flush()
	return parts
}

func splitRunes(s string, limit int) []string {
	var out []string
	for s != "" {
		i, count := 0, 0
		for i < len(s) && count < limit {
			_, w := utf8.DecodeRuneInString(s[i:])
			i += w
			count++
		}
		out = append(out, s[:i])
		s = s[i:]
	}
	return out
}
