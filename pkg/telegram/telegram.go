package telegram

import (
	"context"
	"strconv"
	"sync"

	"golang-backtester/config"
	"golang-backtester/pkg/logger"
	"golang-backtester/pkg/ratelimit"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

// Bot is the part of *telebot.Bot used for sending.
type Bot interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
}

// TelegramRateLimiter sends messages within Telegram's global and per-chat limits.
type TelegramRateLimiter struct {
	cfg           *config.TelegramConfig
	log           *logger.Logger
	globalLimiter *rate.Limiter
	chatLimiters  *ratelimit.LimiterStore
	bot           Bot
	mu            sync.Mutex
}

func NewTelegramRateLimiter(cfg *config.TelegramConfig, log *logger.Logger, bot Bot) *TelegramRateLimiter {
	global := cfg.MaxGlobalRequestPerSecond
	if global <= 0 {
		global = 30
	}
	perChat := cfg.MaxChatRequestPerSecond
	if perChat <= 0 {
		perChat = 1
	}

	return &TelegramRateLimiter{
		cfg:           cfg,
		log:           log,
		bot:           bot,
		globalLimiter: rate.NewLimiter(rate.Limit(global), global),
		chatLimiters:  ratelimit.NewLimiterStore(rate.Limit(perChat), perChat),
	}
}

// Send replies in the chat of c.
func (t *TelegramRateLimiter) Send(ctx context.Context, c telebot.Context, what interface{}, opts ...interface{}) (*telebot.Message, error) {
	if err := t.checkRateLimit(ctx, c.Chat().ID); err != nil {
		return nil, err
	}
	return t.bot.Send(c.Chat(), what, opts...)
}

// SendMessageChat sends message to chatID.
func (t *TelegramRateLimiter) SendMessageChat(ctx context.Context, chatID int64, message string, opts ...interface{}) error {
	if err := t.checkRateLimit(ctx, chatID); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.bot.Send(&telebot.Chat{ID: chatID}, message, opts...); err != nil {
		t.log.ErrorContext(ctx, "Failed to send telegram message", logger.ErrorField(err), logger.IntField("chat_id", int(chatID)))
		return err
	}
	return nil
}

func (t *TelegramRateLimiter) checkRateLimit(ctx context.Context, chatID int64) error {
	chatLimiter := t.chatLimiters.GetLimiter(strconv.FormatInt(chatID, 10))
	if err := chatLimiter.Wait(ctx); err != nil {
		t.log.ErrorContext(ctx, "Failed to wait for chat rate limit", logger.ErrorField(err))
		return err
	}
	if err := t.globalLimiter.Wait(ctx); err != nil {
		t.log.ErrorContext(ctx, "Failed to wait for global rate limit", logger.ErrorField(err))
		return err
	}
	return nil
}
