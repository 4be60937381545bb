package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang-backtester/pkg/cache"
	"golang-backtester/pkg/middleware"

	"gopkg.in/telebot.v3"
)

func (t *TelegramBotHandler) WithContext(handler func(ctx context.Context, c telebot.Context) error) func(c telebot.Context) error {
	return middleware.WithContext(t.ctx, t.handlerTimeout(), handler)
}

func (t *TelegramBotHandler) handlerTimeout() time.Duration {
	if t.cfg.Backtest.RunTimeout > 0 {
		return t.cfg.Backtest.RunTimeout + t.cfg.Telegram.TimeoutDuration
	}
	return 5 * time.Minute
}

func (t *TelegramBotHandler) RegisterHandlers() {
	t.bot.Handle("/start", t.WithContext(t.handleStart))
	t.bot.Handle("/help", t.WithContext(t.handleHelp))
	t.bot.Handle("/cancel", t.WithContext(t.handleCancel))
	t.bot.Handle("/backtest", t.WithContext(t.handleBacktest))
	t.bot.Handle("/runs", t.WithContext(t.handleRuns))
	t.bot.Handle("/jobs", t.WithContext(t.handleScheduler))
	t.bot.Handle(telebot.OnText, t.WithContext(t.handleConversation))

	t.bot.Handle(&btnBacktestTimeframe, t.WithContext(t.handleBtnBacktestTimeframe))
	t.bot.Handle(&btnDetailJob, t.WithContext(t.handleBtnDetailJob))
	t.bot.Handle(&btnActionRunJob, t.WithContext(t.handleBtnActionRunJob))
	t.bot.Handle(&btnActionBackToJobList, t.WithContext(t.handleBtnActionBackToJobList))
	t.bot.Handle(&btnDeleteMessage, t.WithContext(t.handleBtnDeleteMessage))
}

const helpMessage = `🤖 *Trading Strategy Backtester*

Backtest the RSI + SMA crossover strategy on historical candles.

*Commands:*
/backtest SYMBOL [TIMEFRAME] [EXCHANGE] - run a backtest over the last %d days
/runs - latest saved backtests
/jobs - scheduled jobs, run them manually
/cancel - cancel the running conversation
/help - show this message

Timeframes: 1h, 4h, 1d, 1wk. Exchanges: YAHOO (default), BINANCE.
Example: /backtest AAPL 1d or /backtest BTCUSDT 4h BINANCE

📌 Past performance does not guarantee future results.`

func (t *TelegramBotHandler) handleStart(ctx context.Context, c telebot.Context) error {
	return t.handleHelp(ctx, c)
}

func (t *TelegramBotHandler) handleHelp(ctx context.Context, c telebot.Context) error {
	_, err := t.telegram.Send(ctx, c, fmt.Sprintf(helpMessage, t.cfg.Backtest.DefaultLookbackDays), telebot.ModeMarkdown)
	return err
}

func (t *TelegramBotHandler) handleCancel(ctx context.Context, c telebot.Context) error {
	t.ResetUserState(c.Sender().ID)
	_, err := t.telegram.Send(ctx, c, "Cancelled.")
	return err
}

func (t *TelegramBotHandler) handleConversation(ctx context.Context, c telebot.Context) error {
	userID := c.Sender().ID
	state, ok := cache.GetTyped[int](t.inmemoryCache, fmt.Sprintf(UserStateKey, userID))
	if !ok || state == StateIdle {
		return t.handleTextMessage(ctx, c)
	}

	switch state {
	case StateWaitingBacktestSymbol:
		return t.handleBacktestSymbol(ctx, c)
	default:
		t.ResetUserState(userID)
		_, err := t.telegram.Send(ctx, c, commonUnknownCommand)
		return err
	}
}

func (t *TelegramBotHandler) handleTextMessage(ctx context.Context, c telebot.Context) error {
	if strings.HasPrefix(c.Text(), "/") {
		return nil
	}
	_, err := t.telegram.Send(ctx, c, commonUnknownCommand)
	return err
}

func (t *TelegramBotHandler) SetUserState(userID int64, state int) {
	t.inmemoryCache.Set(fmt.Sprintf(UserStateKey, userID), state, stateExpiration)
}

func (t *TelegramBotHandler) ResetUserState(userID int64) {
	t.inmemoryCache.Delete(fmt.Sprintf(UserStateKey, userID))
}

func (t *TelegramBotHandler) handleBtnDeleteMessage(ctx context.Context, c telebot.Context) error {
	return c.Delete()
}
