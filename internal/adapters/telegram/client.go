// Package telegram adapts the chat gateway: it receives raw text
// notifications from the watched channel and sends reply text back.
package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/time/rate"

	"ledgerbot/internal/adapters/config"
	"ledgerbot/pkg/errors"
	"ledgerbot/pkg/logger"
)

// Handler turns one inbound message text into reply text; an empty reply
// sends nothing
type Handler func(ctx context.Context, text string) string

// Bot wraps the Telegram Bot API with long polling and a send-side rate
// limiter
type Bot struct {
	api     *tgbotapi.BotAPI
	cfg     config.TelegramConfig
	limiter *rate.Limiter
	log     *logger.Logger

	mu      sync.Mutex
	running bool
	handler Handler
}

// NewBot creates a Telegram bot instance
func NewBot(cfg config.TelegramConfig) (*Bot, error) {
	if cfg.BotToken == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "telegram bot token is required")
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create telegram bot")
	}

	log := logger.Get().With("component", "telegram_bot")
	log.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:     api,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRate), cfg.RateLimitBurst),
		log:     log,
	}, nil
}

// SetHandler sets the message handler; must be called before Start
func (b *Bot) SetHandler(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handler = handler
}

// Start begins polling for updates and blocks until ctx is cancelled
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("bot is already running")
	}
	if b.handler == nil {
		b.mu.Unlock()
		return errors.New("bot handler is not set")
	}
	b.running = true
	handler := b.handler
	b.mu.Unlock()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	updates := b.api.GetUpdatesChan(u)

	b.log.Info("Telegram polling started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.mu.Lock()
			b.running = false
			b.mu.Unlock()
			b.log.Info("Telegram polling stopped")
			return ctx.Err()

		case update, ok := <-updates:
			if !ok {
				return errors.New("telegram updates channel closed")
			}
			b.handleUpdate(ctx, update, handler)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update, handler Handler) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	chatID := update.Message.Chat.ID
	if b.cfg.ChatID != 0 && chatID != b.cfg.ChatID {
		return
	}

	reply := handler(ctx, update.Message.Text)
	if reply == "" {
		return
	}
	if err := b.SendMessage(chatID, reply); err != nil {
		b.log.Errorw("Failed to send reply", "chat_id", chatID, "error", err)
	}
}

// SendMessage sends a text message, honoring the rate limit
func (b *Bot) SendMessage(chatID int64, text string) error {
	if err := b.limiter.Wait(context.Background()); err != nil {
		return errors.Wrap(err, "rate limit wait")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return errors.Wrap(err, "send message")
	}
	return nil
}
