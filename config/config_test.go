package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loadIn runs Load from an empty directory so no config.yaml or .env is read.
func loadIn(t *testing.T, env map[string]string) *Config {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	for _, key := range overridableEnv {
		t.Setenv(key, "")
	}
	for key, value := range env {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)
	return cfg
}

var overridableEnv = []string{
	"LOGGER_LEVEL", "LOGGER_ENCODING",
	"API_HOST", "API_PORT", "API_RATE_LIMIT", "API_RATE_LIMIT_BURST", "API_RATE_LIMIT_EXPIRY",
	"DATABASE_ENABLED", "DATABASE_HOST", "DATABASE_PORT", "DATABASE_USER", "DATABASE_PASSWORD",
	"DATABASE_NAME", "DATABASE_SSL_MODE", "DATABASE_TIME_ZONE", "DATABASE_MAX_IDLE_CONNS",
	"DATABASE_MAX_OPEN_CONNS", "DATABASE_CONN_MAX_LIFETIME", "DATABASE_LOG_LEVEL",
	"SCHEDULER_MAX_CONCURRENCY", "SCHEDULER_TICK_INTERVAL",
	"YAHOO_FINANCE_BASE_URL", "YAHOO_FINANCE_TIMEOUT", "YAHOO_FINANCE_MAX_REQUEST_PER_MINUTE",
	"BINANCE_BASE_URL", "BINANCE_TIMEOUT", "BINANCE_MAX_REQUEST_PER_MINUTE",
	"CACHE_DEFAULT_EXPIRATION", "CACHE_CLEANUP_INTERVAL", "CACHE_MARKET_DATA_EXPIRATION",
	"BACKTEST_CASH", "BACKTEST_COMMISSION", "BACKTEST_POSITION_SIZE", "BACKTEST_MAX_BATCH_CONCURRENCY",
	"BACKTEST_MAX_BATCH_SYMBOLS", "BACKTEST_DEFAULT_LOOKBACK_DAYS", "BACKTEST_RUN_TIMEOUT",
	"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "TELEGRAM_TIMEOUT_DURATION",
	"TELEGRAM_MAX_GLOBAL_REQUEST_PER_SECOND", "TELEGRAM_MAX_CHAT_REQUEST_PER_SECOND",
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name   string
		env    map[string]string
		assert func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults without config file",
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "0.0.0.0:8502", cfg.API.Address())
				assert.Equal(t, "info", cfg.Log.Level)
				assert.Equal(t, "json", cfg.Log.Encoding)
				assert.False(t, cfg.DB.Enabled)
				assert.Equal(t, 5432, cfg.DB.Port)
				assert.Equal(t, "disable", cfg.DB.SSLMode)
				assert.Equal(t, "UTC", cfg.DB.TimeZone)
				assert.Equal(t, 2, cfg.Scheduler.MaxConcurrency)
				assert.Equal(t, time.Minute, cfg.Scheduler.TickInterval)
				assert.Equal(t, "https://api.binance.com", cfg.Binance.BaseURL)
				assert.Equal(t, time.Hour, cfg.Cache.MarketDataExpiration)
				assert.Equal(t, 1_000_000.0, cfg.Backtest.Cash)
				assert.Equal(t, 0.002, cfg.Backtest.Commission)
				assert.False(t, cfg.Telegram.Enabled())
				assert.Equal(t, 10*time.Second, cfg.Telegram.TimeoutDuration)
			},
		},
		{
			name: "api and logger from env",
			env: map[string]string{
				"API_HOST":              "127.0.0.1",
				"API_PORT":              "9000",
				"API_RATE_LIMIT":        "2.5",
				"API_RATE_LIMIT_EXPIRY": "90s",
				"LOGGER_LEVEL":          "debug",
				"LOGGER_ENCODING":       "console",
			},
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "127.0.0.1:9000", cfg.API.Address())
				assert.Equal(t, 2.5, cfg.API.RateLimit)
				assert.Equal(t, 90*time.Second, cfg.API.RateLimitExpiry)
				assert.Equal(t, "debug", cfg.Log.Level)
				assert.Equal(t, "console", cfg.Log.Encoding)
			},
		},
		{
			name: "database from env",
			env: map[string]string{
				"DATABASE_ENABLED":           "true",
				"DATABASE_HOST":              "db.internal",
				"DATABASE_PORT":              "6543",
				"DATABASE_USER":              "backtester",
				"DATABASE_PASSWORD":          "secret",
				"DATABASE_NAME":              "backtests",
				"DATABASE_TIME_ZONE":         "Asia/Jakarta",
				"DATABASE_MAX_IDLE_CONNS":    "5",
				"DATABASE_MAX_OPEN_CONNS":    "20",
				"DATABASE_CONN_MAX_LIFETIME": "1h",
			},
			assert: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.DB.Enabled)
				assert.Equal(t, "db.internal", cfg.DB.Host)
				assert.Equal(t, 6543, cfg.DB.Port)
				assert.Equal(t, "backtester", cfg.DB.User)
				assert.Equal(t, "secret", cfg.DB.Password)
				assert.Equal(t, "backtests", cfg.DB.DBName)
				assert.Equal(t, "Asia/Jakarta", cfg.DB.TimeZone)
				assert.Equal(t, 5, cfg.DB.MaxIdleConns)
				assert.Equal(t, 20, cfg.DB.MaxOpenConns)
				assert.Equal(t, "1h", cfg.DB.ConnMaxLifetime)
			},
		},
		{
			name: "scheduler and providers from env",
			env: map[string]string{
				"SCHEDULER_MAX_CONCURRENCY":            "8",
				"SCHEDULER_TICK_INTERVAL":              "30s",
				"YAHOO_FINANCE_BASE_URL":               "http://yahoo.local",
				"YAHOO_FINANCE_MAX_REQUEST_PER_MINUTE": "5",
				"BINANCE_TIMEOUT":                      "3s",
			},
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8, cfg.Scheduler.MaxConcurrency)
				assert.Equal(t, 30*time.Second, cfg.Scheduler.TickInterval)
				assert.Equal(t, "http://yahoo.local", cfg.YahooFinance.BaseURL)
				assert.Equal(t, 5, cfg.YahooFinance.MaxRequestPerMinute)
				assert.Equal(t, 3*time.Second, cfg.Binance.Timeout)
			},
		},
		{
			name: "cache and backtest from env",
			env: map[string]string{
				"CACHE_MARKET_DATA_EXPIRATION": "5m",
				"BACKTEST_CASH":                "10000",
				"BACKTEST_COMMISSION":          "0.001",
				"BACKTEST_MAX_BATCH_SYMBOLS":   "3",
				"BACKTEST_RUN_TIMEOUT":         "10s",
			},
			assert: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 5*time.Minute, cfg.Cache.MarketDataExpiration)
				assert.Equal(t, 10000.0, cfg.Backtest.Cash)
				assert.Equal(t, 0.001, cfg.Backtest.Commission)
				assert.Equal(t, 3, cfg.Backtest.MaxBatchSymbols)
				assert.Equal(t, 10*time.Second, cfg.Backtest.RunTimeout)
			},
		},
		{
			name: "telegram from env",
			env: map[string]string{
				"TELEGRAM_BOT_TOKEN":                   "123:abc",
				"TELEGRAM_CHAT_ID":                     "-100200300",
				"TELEGRAM_MAX_CHAT_REQUEST_PER_SECOND": "3",
			},
			assert: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Telegram.Enabled())
				assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
				assert.Equal(t, int64(-100200300), cfg.Telegram.ChatID)
				assert.Equal(t, 3, cfg.Telegram.MaxChatRequestPerSecond)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.assert(t, loadIn(t, tt.env))
		})
	}
}

func TestLoad_ConfigFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("api:\n  port: 7000\ndatabase:\n  host: from-file\n  user: file-user\n")
	require.NoError(t, os.WriteFile(dir+"/config.yaml", yaml, 0o600))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	for _, key := range overridableEnv {
		t.Setenv(key, "")
	}
	t.Setenv("DATABASE_USER", "env-user")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", cfg.API.Address())
	assert.Equal(t, "from-file", cfg.DB.Host)
	assert.Equal(t, "env-user", cfg.DB.User)
}
