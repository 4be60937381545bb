package cmd

import (
	"context"
	"time"

	"golang-backtester/config"
	"golang-backtester/pkg/cache"
	"golang-backtester/pkg/logger"
	"golang-backtester/pkg/postgres"
	"golang-backtester/pkg/telegram"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gopkg.in/telebot.v3"
	"gorm.io/gorm"
)

// AppDependency holds the process wide clients. db is nil when the database
// is disabled, telegram and telegramBot are nil without a bot token.
type AppDependency struct {
	db          *postgres.DB
	cfg         *config.Config
	log         *logger.Logger
	validator   *goValidator.Validate
	echo        *echo.Echo
	cache       cache.Cache
	telegram    *telegram.TelegramRateLimiter
	telegramBot *telebot.Bot
}

func NewAppDependency(ctx context.Context) (*AppDependency, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	dep := &AppDependency{
		cfg:       cfg,
		log:       log,
		validator: goValidator.New(),
		echo:      echo.New(),
		cache:     cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval),
	}

	if cfg.DB.Enabled {
		db, err := postgres.NewDB(cfg.DB, log)
		if err != nil {
			log.Error("Failed to connect to database", zap.Error(err))
			return nil, err
		}
		dep.db = db
	} else {
		log.Info("Database disabled, backtest runs are kept in memory and the scheduler is off")
	}

	if cfg.Telegram.Enabled() {
		pref := telebot.Settings{
			Token:  cfg.Telegram.BotToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				log.Error("Telegram bot error", zap.Error(err))
			},
		}
		bot, err := telebot.NewBot(pref)
		if err != nil {
			log.Error("Failed to create telegram bot", zap.Error(err))
			_ = dep.Close()
			return nil, err
		}
		dep.telegramBot = bot
		dep.telegram = telegram.NewTelegramRateLimiter(&cfg.Telegram, log.Named("telegram"), bot)
	}

	return dep, nil
}

// GormDB returns the gorm handle or nil when the database is disabled.
func (d *AppDependency) GormDB() *gorm.DB {
	if d.db == nil {
		return nil
	}
	return d.db.DB
}

func (d *AppDependency) Close() error {
	d.log.Info("Closing app dependency")
	defer func() {
		_ = d.log.Sync()
	}()
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
