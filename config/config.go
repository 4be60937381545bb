package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Log          Logger         `mapstructure:"logger"`
	DB           Database       `mapstructure:"database"`
	API          API            `mapstructure:"api"`
	Scheduler    Scheduler      `mapstructure:"scheduler"`
	YahooFinance DataProvider   `mapstructure:"yahoo_finance"`
	Binance      DataProvider   `mapstructure:"binance"`
	Cache        Cache          `mapstructure:"cache"`
	Backtest     Backtest       `mapstructure:"backtest"`
	Telegram     TelegramConfig `mapstructure:"telegram"`
}

type Logger struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type Database struct {
	Enabled         bool   `mapstructure:"enabled"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	TimeZone        string `mapstructure:"time_zone"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	LogLevel        string `mapstructure:"log_level"`
}

type Scheduler struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	TickInterval   time.Duration `mapstructure:"tick_interval"`
}

type API struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
	RateLimitExpiry time.Duration `mapstructure:"rate_limit_expiry"`
}

// Address returns the listen address of the HTTP server.
func (a API) Address() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

type DataProvider struct {
	BaseURL             string        `mapstructure:"base_url"`
	Timeout             time.Duration `mapstructure:"timeout"`
	MaxRequestPerMinute int           `mapstructure:"max_request_per_minute"`
}

type Cache struct {
	DefaultExpiration    time.Duration `mapstructure:"default_expiration"`
	CleanupInterval      time.Duration `mapstructure:"cleanup_interval"`
	MarketDataExpiration time.Duration `mapstructure:"market_data_expiration"`
}

type Backtest struct {
	Cash                float64       `mapstructure:"cash"`
	Commission          float64       `mapstructure:"commission"`
	PositionSize        float64       `mapstructure:"position_size"`
	MaxBatchConcurrency int           `mapstructure:"max_batch_concurrency"`
	MaxBatchSymbols     int           `mapstructure:"max_batch_symbols"`
	DefaultLookbackDays int           `mapstructure:"default_lookback_days"`
	RunTimeout          time.Duration `mapstructure:"run_timeout"`
}

type TelegramConfig struct {
	BotToken                  string        `mapstructure:"bot_token"`
	ChatID                    int64         `mapstructure:"chat_id"`
	TimeoutDuration           time.Duration `mapstructure:"timeout_duration"`
	MaxGlobalRequestPerSecond int           `mapstructure:"max_global_request_per_second"`
	MaxChatRequestPerSecond   int           `mapstructure:"max_chat_request_per_second"`
}

// Enabled reports whether a bot token was configured.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != ""
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal, even when no config file mentions the key.
func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "json")

	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8502)
	v.SetDefault("api.rate_limit", 10)
	v.SetDefault("api.rate_limit_burst", 30)
	v.SetDefault("api.rate_limit_expiry", 3*time.Minute)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.time_zone", "UTC")
	v.SetDefault("database.max_idle_conns", 0)
	v.SetDefault("database.max_open_conns", 0)
	v.SetDefault("database.conn_max_lifetime", "")
	v.SetDefault("database.log_level", "Warn")

	v.SetDefault("scheduler.max_concurrency", 2)
	v.SetDefault("scheduler.tick_interval", time.Minute)

	v.SetDefault("yahoo_finance.base_url", "https://query1.finance.yahoo.com/v8/finance/chart")
	v.SetDefault("yahoo_finance.timeout", 30*time.Second)
	v.SetDefault("yahoo_finance.max_request_per_minute", 60)
	v.SetDefault("binance.base_url", "https://api.binance.com")
	v.SetDefault("binance.timeout", 30*time.Second)
	v.SetDefault("binance.max_request_per_minute", 600)

	v.SetDefault("cache.default_expiration", 10*time.Minute)
	v.SetDefault("cache.cleanup_interval", 15*time.Minute)
	v.SetDefault("cache.market_data_expiration", time.Hour)

	v.SetDefault("backtest.cash", 1_000_000)
	v.SetDefault("backtest.commission", 0.002)
	v.SetDefault("backtest.position_size", 0.95)
	v.SetDefault("backtest.max_batch_concurrency", 4)
	v.SetDefault("backtest.max_batch_symbols", 20)
	v.SetDefault("backtest.default_lookback_days", 365)
	v.SetDefault("backtest.run_timeout", 2*time.Minute)

	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("telegram.timeout_duration", 10*time.Second)
	v.SetDefault("telegram.max_global_request_per_second", 30)
	v.SetDefault("telegram.max_chat_request_per_second", 1)
}

func Load() (*Config, error) {
	// .env is optional, real environment variables win
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AddConfigPath(".")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		fmt.Println("No config file loaded:", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
