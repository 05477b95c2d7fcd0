package telegram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"
)

// defaultSendInterval keeps under Telegram's one-message-per-second per-chat limit
const defaultSendInterval = time.Second

// Config for the Telegram notifier
type Config struct {
	Token        string
	ServerURL    string        // optional Bot API server, e.g. a local telegram-bot-api
	SendInterval time.Duration // minimum gap between messages to one chat
}

// Notifier sends messages through the Telegram Bot API
type Notifier struct {
	bot      *bot.Bot
	interval time.Duration
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewNotifier creates a notifier without contacting Telegram
func NewNotifier(cfg Config) (*Notifier, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}

	opts := []bot.Option{
		bot.WithSkipGetMe(),
	}
	if cfg.ServerURL != "" {
		opts = append(opts, bot.WithServerURL(cfg.ServerURL))
	}

	tgBot, err := bot.New(cfg.Token, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	interval := cfg.SendInterval
	if interval <= 0 {
		interval = defaultSendInterval
	}

	return &Notifier{
		bot:      tgBot,
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}, nil
}

// Send sends a Markdown message to a chat
func (n *Notifier) Send(ctx context.Context, chatID, text string) error {
	if err := n.limiterFor(chatID).Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for send slot: %w", err)
	}

	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeMarkdownV1,
	})
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// Identity returns the bot username, verifying the token
func (n *Notifier) Identity(ctx context.Context) (string, error) {
	me, err := n.bot.GetMe(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get bot identity: %w", err)
	}
	return "@" + me.Username, nil
}

func (n *Notifier) limiterFor(chatID string) *rate.Limiter {
	n.mu.Lock()
	defer n.mu.Unlock()

	lim, ok := n.limiters[chatID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(n.interval), 1)
		n.limiters[chatID] = lim
	}
	return lim
}
