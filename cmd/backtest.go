package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"golang-backtester/config"
	"golang-backtester/internal/dto"
	"golang-backtester/internal/model"
	"golang-backtester/internal/repository"
	"golang-backtester/internal/service"
	"golang-backtester/pkg/cache"
	"golang-backtester/pkg/logger"
	"golang-backtester/pkg/postgres"
	"golang-backtester/pkg/utils"

	goValidator "github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var backtestFlags struct {
	request dto.BacktestRequest
	asJSON  bool
}

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Run a single backtest and print its metrics",
	Example: `  golang-backtester backtest --symbol AAPL --timeframe 1d --start 2023-01-01 --end 2023-12-31
  golang-backtester backtest --symbol BTCUSDT --exchange BINANCE --timeframe 4h --rsi-period 10 --json`,
	RunE: runBacktestCmd,
}

func init() {
	defaults := dto.DefaultStrategyParams()
	req := &backtestFlags.request
	flags := backtestCmd.Flags()
	flags.StringVar(&req.Symbol, "symbol", "", "ticker symbol, e.g. AAPL or BTCUSDT")
	flags.StringVar(&req.Exchange, "exchange", "YAHOO", "YAHOO or BINANCE")
	flags.StringVar(&req.Timeframe, "timeframe", dto.Timeframe1Day, "1h, 4h, 1d or 1wk")
	flags.StringVar(&req.StartDate, "start", "", "start date YYYY-MM-DD (default: lookback days before end)")
	flags.StringVar(&req.EndDate, "end", "", "end date YYYY-MM-DD (default: today)")
	flags.IntVar(&req.Params.RSIPeriod, "rsi-period", defaults.RSIPeriod, "RSI period")
	flags.Float64Var(&req.Params.RSIOverbought, "rsi-overbought", defaults.RSIOverbought, "RSI overbought level")
	flags.Float64Var(&req.Params.RSIOversold, "rsi-oversold", defaults.RSIOversold, "RSI oversold level")
	flags.IntVar(&req.Params.SMAFast, "sma-fast", defaults.SMAFast, "fast SMA period")
	flags.IntVar(&req.Params.SMASlow, "sma-slow", defaults.SMASlow, "slow SMA period")
	flags.BoolVar(&backtestFlags.asJSON, "json", false, "print the full result as JSON")
	_ = backtestCmd.MarkFlagRequired("symbol")
}

func runBacktestCmd(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Level, "console")
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	req := backtestFlags.request
	today := utils.TodayUTC()
	if req.EndDate == "" {
		req.EndDate = today.Format(utils.DateLayout)
	}
	if req.StartDate == "" {
		req.StartDate = today.AddDate(0, 0, -cfg.Backtest.DefaultLookbackDays).Format(utils.DateLayout)
	}
	if err := goValidator.New().Struct(req); err != nil {
		return fmt.Errorf("invalid backtest flags: %w", err)
	}

	var gormDB *gorm.DB
	if cfg.DB.Enabled {
		db, err := postgres.NewDB(cfg.DB, log)
		if err != nil {
			return err
		}
		defer db.Close()
		gormDB = db.DB
	}

	repo := repository.NewRepository(cfg, gormDB, cache.NewCache(cfg.Cache.DefaultExpiration, cfg.Cache.CleanupInterval), log)
	backtestService := service.NewBacktestService(cfg, log, repo.CandleRepo, repo.BacktestRunRepo)

	result, err := backtestService.Run(ctx, req, model.RunSourceCLI)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if backtestFlags.asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	fmt.Fprintln(out, service.FormatBacktestSummary(result))
	return printTrades(out, result.Trades)
}

func printTrades(out io.Writer, trades []dto.TradeLog) error {
	if len(trades) == 0 {
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "\n#\tEntry\tExit\tSize\tEntry Price\tExit Price\tPnL\tReturn\tDuration\tReason\t")
	for i, trade := range trades {
		fmt.Fprintf(w, "%d\t%s\t%s\t%g\t%.2f\t%.2f\t%s\t%s\t%s\t%s\t\n",
			i+1,
			trade.EntryTime.Format("2006-01-02 15:04"),
			trade.ExitTime.Format("2006-01-02 15:04"),
			trade.Size,
			trade.EntryPrice,
			trade.ExitPrice,
			utils.FormatMoney(trade.PnL),
			utils.FormatPercentage(trade.ReturnPct),
			trade.DurationText,
			trade.ExitReason,
		)
	}
	return w.Flush()
}
