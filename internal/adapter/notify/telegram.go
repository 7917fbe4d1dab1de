package notify

import (
	"context"
	"errors"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramTransport implements usecase.NotificationTransport over the
// Telegram Bot API, grounded on original_source/src/telegram_bot_setup.py's
// token+chat_id bot, translated into the Go ecosystem's widely used
// go-telegram-bot-api client instead of hand-rolled HTTP.
type TelegramTransport struct {
	bot  *tgbotapi.BotAPI
	name string
}

// NewTelegramTransport creates a new TelegramTransport registered under
// name (the chat target the dispatcher routes to).
func NewTelegramTransport(name, token string) (*TelegramTransport, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramTransport{bot: bot, name: name}, nil
}

// Name returns the transport's registered chat target name.
func (t *TelegramTransport) Name() string {
	return t.name
}

// Send posts text to the configured chat id, parsing a 429 "retry after N"
// response into the caller's backoff hint (spec §4.9).
func (t *TelegramTransport) Send(ctx context.Context, chatTarget, text string) (time.Duration, error) {
	chatID, err := strconv.ParseInt(chatTarget, 10, 64)
	if err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	_, err = t.bot.Send(msg)
	if err == nil {
		return 0, nil
	}

	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return time.Duration(apiErr.RetryAfter) * time.Second, err
	}
	return 0, err
}
