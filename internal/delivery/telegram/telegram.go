package telegram

import (
	"context"
	"time"

	"golang-backtester/config"
	"golang-backtester/internal/service"
	"golang-backtester/pkg/cache"
	"golang-backtester/pkg/logger"
	"golang-backtester/pkg/telegram"

	"gopkg.in/telebot.v3"
)

type TelegramBotHandler struct {
	ctx           context.Context
	cfg           *config.Config
	bot           *telebot.Bot
	log           *logger.Logger
	telegram      *telegram.TelegramRateLimiter
	inmemoryCache cache.Cache
	service       *service.Service
	now           func() time.Time
}

func NewTelegramBotHandler(
	ctx context.Context,
	cfg *config.Config,
	log *logger.Logger,
	bot *telebot.Bot,
	telegram *telegram.TelegramRateLimiter,
	inmemoryCache cache.Cache,
	service *service.Service) *TelegramBotHandler {
	return &TelegramBotHandler{
		ctx:           ctx,
		cfg:           cfg,
		log:           log,
		bot:           bot,
		telegram:      telegram,
		inmemoryCache: inmemoryCache,
		service:       service,
		now:           time.Now,
	}
}

// Start registers the handlers and starts long polling in the background.
func (t *TelegramBotHandler) Start() {
	t.log.Info("Starting Telegram bot...", logger.StringField("username", t.bot.Me.Username))
	t.RegisterHandlers()
	go t.bot.Start()
}

func (t *TelegramBotHandler) Stop() {
	t.log.Info("Stopping Telegram bot...")

	ctx, cancel := context.WithTimeout(context.WithoutCancel(t.ctx), 10*time.Second)
	defer cancel()

	stopDone := make(chan struct{})
	go func() {
		t.bot.Stop()
		close(stopDone)
	}()

	select {
	case <-stopDone:
		t.log.Info("Telegram bot stopped successfully")
	case <-ctx.Done():
		t.log.Warn("Timeout while stopping bot, forcing shutdown")
	}
}
