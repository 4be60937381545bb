package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang-backtester/internal/backtest"
	"golang-backtester/internal/dto"
	"golang-backtester/internal/model"
	"golang-backtester/internal/service"
	"golang-backtester/pkg/common"
	"golang-backtester/pkg/logger"
	"golang-backtester/pkg/utils"

	"gopkg.in/telebot.v3"
)

const runsPageSize = 10

type backtestArgs struct {
	Symbol    string
	Timeframe string
	Exchange  string
}

// parseBacktestArgs reads "SYMBOL [TIMEFRAME] [EXCHANGE]". Timeframe is empty when omitted.
func parseBacktestArgs(args []string) (backtestArgs, error) {
	if len(args) == 0 {
		return backtestArgs{}, errors.New("symbol is required, e.g. /backtest AAPL 1d")
	}
	if len(args) > 3 {
		return backtestArgs{}, errors.New("too many arguments, use /backtest SYMBOL [TIMEFRAME] [EXCHANGE]")
	}

	parsed := backtestArgs{
		Symbol:   strings.ToUpper(strings.TrimSpace(args[0])),
		Exchange: common.EXCHANGE_YAHOO,
	}
	if len(args) > 1 {
		parsed.Timeframe = strings.ToLower(args[1])
		if !utils.ContainsString(dto.GetTimeframeList(), parsed.Timeframe) {
			return backtestArgs{}, fmt.Errorf("unknown timeframe %q, use one of %s", args[1], strings.Join(dto.GetTimeframeList(), ", "))
		}
	}
	if len(args) > 2 {
		parsed.Exchange = strings.ToUpper(args[2])
		if !utils.ContainsString(common.GetExchangeList(), parsed.Exchange) {
			return backtestArgs{}, fmt.Errorf("unknown exchange %q, use one of %s", args[2], strings.Join(common.GetExchangeList(), ", "))
		}
	}
	return parsed, nil
}

// backtestRequest covers the lookbackDays days up to now with default strategy parameters.
func backtestRequest(args backtestArgs, now time.Time, lookbackDays int) dto.BacktestRequest {
	end := utils.StartOfDay(now)
	start := end.AddDate(0, 0, -lookbackDays)
	timeframe := args.Timeframe
	if timeframe == "" {
		timeframe = dto.Timeframe1Day
	}
	return dto.BacktestRequest{
		MarketDataRequest: dto.MarketDataRequest{
			Symbol:    args.Symbol,
			Exchange:  args.Exchange,
			Timeframe: timeframe,
			StartDate: start.Format(utils.DateLayout),
			EndDate:   end.Format(utils.DateLayout),
		},
		Params: dto.DefaultStrategyParams(),
	}
}

// userMessage explains err to the chat without leaking internals.
func userMessage(err error) string {
	switch {
	case errors.Is(err, dto.ErrNoPriceData):
		return "❌ No price data for this symbol and range."
	case errors.Is(err, backtest.ErrNotEnoughData):
		return "❌ Not enough candles for the indicator warm-up, try a longer range or a smaller timeframe."
	case errors.Is(err, dto.ErrProviderFailure):
		return "❌ The market data provider is unavailable, please try again later."
	case errors.Is(err, dto.ErrInvalidTimeframe), errors.Is(err, dto.ErrInvalidExchange), errors.Is(err, dto.ErrInvalidDateRange):
		return "❌ " + err.Error()
	default:
		return commonErrorInternal
	}
}

func (t *TelegramBotHandler) handleBacktest(ctx context.Context, c telebot.Context) error {
	if len(c.Args()) == 0 {
		t.SetUserState(c.Sender().ID, StateWaitingBacktestSymbol)
		_, err := t.telegram.Send(ctx, c, "Send the symbol to backtest, optionally with timeframe and exchange, e.g. <code>AAPL</code> or <code>BTCUSDT 4h BINANCE</code>.", telebot.ModeHTML)
		return err
	}
	return t.startBacktest(ctx, c, c.Args())
}

func (t *TelegramBotHandler) handleBacktestSymbol(ctx context.Context, c telebot.Context) error {
	t.ResetUserState(c.Sender().ID)
	return t.startBacktest(ctx, c, strings.Fields(c.Text()))
}

func (t *TelegramBotHandler) startBacktest(ctx context.Context, c telebot.Context, rawArgs []string) error {
	args, err := parseBacktestArgs(rawArgs)
	if err != nil {
		_, err = t.telegram.Send(ctx, c, "❌ "+err.Error())
		return err
	}
	if args.Timeframe != "" {
		return t.runBacktest(ctx, c, args)
	}

	menu := &telebot.ReplyMarkup{}
	var buttons []telebot.Btn
	for _, timeframe := range dto.GetTimeframeList() {
		buttons = append(buttons, menu.Data(timeframe, btnBacktestTimeframe.Unique, args.Symbol, timeframe, args.Exchange))
	}
	menu.Inline(menu.Row(buttons...))
	_, err = t.telegram.Send(ctx, c, fmt.Sprintf("Pick a timeframe for %s:", args.Symbol), menu)
	return err
}

func (t *TelegramBotHandler) handleBtnBacktestTimeframe(ctx context.Context, c telebot.Context) error {
	if err := c.Respond(); err != nil {
		t.log.WarnContext(ctx, "Failed to answer callback", logger.ErrorField(err))
	}
	args, err := parseBacktestArgs(strings.Split(c.Data(), "|"))
	if err != nil {
		_, err = t.telegram.Send(ctx, c, "❌ "+err.Error())
		return err
	}
	return t.runBacktest(ctx, c, args)
}

func (t *TelegramBotHandler) runBacktest(ctx context.Context, c telebot.Context, args backtestArgs) error {
	req := backtestRequest(args, t.now(), t.cfg.Backtest.DefaultLookbackDays)
	if _, err := t.telegram.Send(ctx, c, fmt.Sprintf("⏳ Running backtest for %s %s (%s → %s)...", req.Symbol, req.Timeframe, req.StartDate, req.EndDate)); err != nil {
		return err
	}

	result, err := t.service.BacktestService.Run(ctx, req, model.RunSourceTelegram)
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to run backtest",
			logger.ErrorField(err),
			logger.SymbolField(req.Symbol),
			logger.TimeframeField(req.Timeframe))
		_, err = t.telegram.Send(ctx, c, userMessage(err))
		return err
	}

	_, err = t.telegram.Send(ctx, c, service.FormatBacktestSummary(result))
	return err
}

func formatRunList(runs []dto.BacktestRunSummary) string {
	if len(runs) == 0 {
		return "No saved backtests yet. Try /backtest AAPL 1d"
	}

	var b strings.Builder
	b.WriteString("🗂 Latest backtests:\n\n")
	for _, run := range runs {
		fmt.Fprintf(&b, "#%d %s %s %s → %s | %s | %d trades\n",
			run.ID, run.Symbol, run.Timeframe, run.StartDate, run.EndDate,
			utils.FormatPercentage(run.ReturnPct), run.Trades)
	}
	return b.String()
}

func (t *TelegramBotHandler) handleRuns(ctx context.Context, c telebot.Context) error {
	runs, err := t.service.BacktestService.List(ctx, dto.ListBacktestRunsParam{
		Symbol: strings.ToUpper(strings.Join(c.Args(), "")),
		Limit:  runsPageSize,
	})
	if err != nil {
		t.log.ErrorContext(ctx, "Failed to list backtests", logger.ErrorField(err))
		_, err = t.telegram.Send(ctx, c, commonErrorInternal)
		return err
	}

	_, err = t.telegram.Send(ctx, c, formatRunList(runs))
	return err
}
