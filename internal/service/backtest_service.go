package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang-backtester/config"
	"golang-backtester/internal/backtest"
	"golang-backtester/internal/dto"
	"golang-backtester/internal/model"
	"golang-backtester/internal/repository"
	"golang-backtester/pkg/common"
	"golang-backtester/pkg/logger"
	"golang-backtester/pkg/utils"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

// BacktestService fetches market data, runs the RSI/SMA strategy over it and keeps the results.
type BacktestService interface {
	Run(ctx context.Context, req dto.BacktestRequest, source string) (*dto.BacktestResult, error)
	Preview(ctx context.Context, req dto.MarketDataRequest) (*dto.MarketDataPreview, error)
	RunBatch(ctx context.Context, req dto.BatchBacktestRequest) (*dto.BatchBacktestResult, error)
	Get(ctx context.Context, id uint) (*dto.BacktestResult, error)
	List(ctx context.Context, param dto.ListBacktestRunsParam) ([]dto.BacktestRunSummary, error)
	Delete(ctx context.Context, id uint) error
	// Replay runs a saved backtest again without saving it, returning the
	// bars and indicator series the stored result does not keep.
	Replay(ctx context.Context, id uint) (*Replay, error)
}

type Replay struct {
	Run    *dto.BacktestResult
	Data   *dto.MarketData
	Result *backtest.Result
}

type backtestService struct {
	cfg             *config.Config
	log             *logger.Logger
	candleRepo      repository.CandleRepository
	backtestRunRepo repository.BacktestRunRepository
}

func NewBacktestService(cfg *config.Config, log *logger.Logger, candleRepo repository.CandleRepository, backtestRunRepo repository.BacktestRunRepository) BacktestService {
	return &backtestService{
		cfg:             cfg,
		log:             log,
		candleRepo:      candleRepo,
		backtestRunRepo: backtestRunRepo,
	}
}

func marketDataParam(req dto.MarketDataRequest) (dto.GetMarketDataParam, error) {
	start, err := utils.ParseDate(req.StartDate)
	if err != nil {
		return dto.GetMarketDataParam{}, fmt.Errorf("%w: %v", dto.ErrInvalidDateRange, err)
	}
	end, err := utils.ParseDate(req.EndDate)
	if err != nil {
		return dto.GetMarketDataParam{}, fmt.Errorf("%w: %v", dto.ErrInvalidDateRange, err)
	}
	if end.Before(start) {
		return dto.GetMarketDataParam{}, fmt.Errorf("%w: end date %s is before start date %s", dto.ErrInvalidDateRange, req.EndDate, req.StartDate)
	}

	exchange := strings.ToUpper(req.Exchange)
	if exchange == "" {
		exchange = common.EXCHANGE_YAHOO
	}

	return dto.GetMarketDataParam{
		Symbol:    strings.ToUpper(strings.TrimSpace(req.Symbol)),
		Exchange:  exchange,
		Timeframe: req.Timeframe,
		Start:     utils.StartOfDay(start),
		End:       utils.EndOfDay(end),
	}, nil
}

func (s *backtestService) Preview(ctx context.Context, req dto.MarketDataRequest) (*dto.MarketDataPreview, error) {
	param, err := marketDataParam(req)
	if err != nil {
		return nil, err
	}
	data, err := s.candleRepo.Get(ctx, param)
	if err != nil {
		return nil, err
	}

	return &dto.MarketDataPreview{
		Symbol:    data.Symbol,
		Exchange:  data.Exchange,
		Timeframe: data.Timeframe,
		From:      data.From(),
		To:        data.To(),
		BarCount:  len(data.Bars),
		LastBars:  data.Tail(dto.PreviewBars),
	}, nil
}

// simulate loads the market data of req and runs the strategy over it.
func (s *backtestService) simulate(ctx context.Context, req dto.BacktestRequest, engineCfg backtest.Config) (*dto.MarketData, *backtest.Result, error) {
	param, err := marketDataParam(req.MarketDataRequest)
	if err != nil {
		return nil, nil, err
	}

	strategy, err := backtest.NewRSISMAStrategy(req.Params.ToEngineParams(s.cfg.Backtest.PositionSize))
	if err != nil {
		return nil, nil, err
	}
	engine, err := backtest.NewEngine(engineCfg)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.candleRepo.Get(ctx, param)
	if err != nil {
		return nil, nil, err
	}

	if s.cfg.Backtest.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Backtest.RunTimeout)
		defer cancel()
	}

	result, err := engine.Run(ctx, data.Bars, strategy)
	if err != nil {
		return nil, nil, fmt.Errorf("%s %s: %w", data.Symbol, data.Timeframe, err)
	}
	return data, result, nil
}

func (s *backtestService) engineConfig() backtest.Config {
	cfg := backtest.DefaultConfig()
	if s.cfg.Backtest.Cash > 0 {
		cfg.Cash = s.cfg.Backtest.Cash
	}
	cfg.Commission = s.cfg.Backtest.Commission
	return cfg
}

func (s *backtestService) Run(ctx context.Context, req dto.BacktestRequest, source string) (*dto.BacktestResult, error) {
	started := time.Now()
	engineCfg := s.engineConfig()
	data, result, err := s.simulate(ctx, req, engineCfg)
	if err != nil {
		s.log.WarnContext(ctx, "Backtest failed",
			logger.SymbolField(req.Symbol),
			logger.TimeframeField(req.Timeframe),
			logger.ErrorField(err))
		return nil, err
	}

	out := &dto.BacktestResult{
		Symbol:     data.Symbol,
		Exchange:   data.Exchange,
		Timeframe:  data.Timeframe,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Strategy:   result.Strategy,
		Params:     req.Params,
		Cash:       engineCfg.Cash,
		Commission: engineCfg.Commission,
		Stats:      result.Stats,
		Trades:     tradeLogs(result.Trades),
		Equity:     result.Equity,
	}

	run, err := toBacktestRun(out, source)
	if err != nil {
		return nil, err
	}
	if err := s.backtestRunRepo.Create(ctx, run); err != nil {
		s.log.ErrorContext(ctx, "Failed to save backtest run", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to save backtest run: %w", err)
	}
	out.RunID = run.ID
	out.CreatedAt = run.CreatedAt

	s.log.InfoContext(ctx, "Backtest completed",
		logger.RunIDField(run.ID),
		logger.SymbolField(out.Symbol),
		logger.TimeframeField(out.Timeframe),
		logger.StringField("source", source),
		logger.IntField("bars", len(data.Bars)),
		logger.IntField("trades", out.Stats.Trades),
		logger.FloatField("return_pct", out.Stats.ReturnPct),
		logger.DurationField("elapsed", time.Since(started)))

	return out, nil
}

func (s *backtestService) RunBatch(ctx context.Context, req dto.BatchBacktestRequest) (*dto.BatchBacktestResult, error) {
	symbols := uniqueSymbols(req.Symbols)
	if limit := s.cfg.Backtest.MaxBatchSymbols; limit > 0 && len(symbols) > limit {
		return nil, fmt.Errorf("%w: got %d, at most %d allowed", dto.ErrTooManySymbols, len(symbols), limit)
	}

	items := make([]dto.BatchItemResult, len(symbols))
	var mu sync.Mutex
	out := &dto.BatchBacktestResult{}

	g, gctx := errgroup.WithContext(ctx)
	if limit := s.cfg.Backtest.MaxBatchConcurrency; limit > 0 {
		g.SetLimit(limit)
	}
	for i, symbol := range symbols {
		g.Go(func() error {
			item := dto.BatchItemResult{Symbol: symbol}
			result, err := s.Run(gctx, req.Request(symbol), model.RunSourceBatch)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				item.Error = err.Error()
				out.Failed++
			} else {
				item.Result = result
				out.Succeeded++
			}
			items[i] = item
			// a failing symbol must not cancel the others
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out.Items = items
	return out, nil
}

func uniqueSymbols(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}
		if _, ok := seen[symbol]; ok {
			continue
		}
		seen[symbol] = struct{}{}
		out = append(out, symbol)
	}
	return out
}

func (s *backtestService) Get(ctx context.Context, id uint) (*dto.BacktestResult, error) {
	run, err := s.backtestRunRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return fromBacktestRun(run)
}

func (s *backtestService) List(ctx context.Context, param dto.ListBacktestRunsParam) ([]dto.BacktestRunSummary, error) {
	runs, err := s.backtestRunRepo.List(ctx, model.GetBacktestRunParam{
		Symbol: strings.ToUpper(param.Symbol),
		Limit:  param.Limit,
		Offset: param.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list backtest runs: %w", err)
	}

	summaries := make([]dto.BacktestRunSummary, 0, len(runs))
	for _, run := range runs {
		summaries = append(summaries, dto.BacktestRunSummary{
			ID:          run.ID,
			Symbol:      run.Symbol,
			Exchange:    run.Exchange,
			Timeframe:   run.Timeframe,
			StartDate:   run.StartDate,
			EndDate:     run.EndDate,
			Strategy:    run.Strategy,
			ReturnPct:   run.ReturnPct,
			MaxDrawdown: run.MaxDrawdownPct,
			SharpeRatio: run.SharpeRatio,
			Trades:      run.TradeCount,
			Source:      run.Source,
			CreatedAt:   run.CreatedAt,
		})
	}
	return summaries, nil
}

func (s *backtestService) Delete(ctx context.Context, id uint) error {
	if err := s.backtestRunRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "Backtest run deleted", logger.RunIDField(id))
	return nil
}

func (s *backtestService) Replay(ctx context.Context, id uint) (*Replay, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	req := dto.BacktestRequest{
		MarketDataRequest: dto.MarketDataRequest{
			Symbol:    run.Symbol,
			Exchange:  run.Exchange,
			Timeframe: run.Timeframe,
			StartDate: run.StartDate,
			EndDate:   run.EndDate,
		},
		Params: run.Params,
	}

	// cash and commission come from the saved run so later config changes
	// do not alter the replayed trades
	engineCfg := backtest.DefaultConfig()
	if run.Cash > 0 {
		engineCfg.Cash = run.Cash
	}
	engineCfg.Commission = run.Commission

	data, result, err := s.simulate(ctx, req, engineCfg)
	if err != nil {
		return nil, err
	}
	return &Replay{Run: run, Data: data, Result: result}, nil
}

func tradeLogs(trades []backtest.Trade) []dto.TradeLog {
	logs := make([]dto.TradeLog, 0, len(trades))
	for _, trade := range trades {
		logs = append(logs, dto.TradeLog{
			Trade:        trade,
			DurationText: utils.HumanDuration(trade.Duration.Std()),
		})
	}
	return logs
}

func toBacktestRun(result *dto.BacktestResult, source string) (*model.BacktestRun, error) {
	params, err := json.Marshal(result.Params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}
	stats, err := json.Marshal(result.Stats)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stats: %w", err)
	}
	trades, err := json.Marshal(result.Trades)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal trades: %w", err)
	}
	equity, err := json.Marshal(result.Equity)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal equity: %w", err)
	}

	return &model.BacktestRun{
		Symbol:         result.Symbol,
		Exchange:       result.Exchange,
		Timeframe:      result.Timeframe,
		StartDate:      result.StartDate,
		EndDate:        result.EndDate,
		Strategy:       result.Strategy,
		Params:         datatypes.JSON(params),
		Cash:           result.Cash,
		Commission:     result.Commission,
		ReturnPct:      result.Stats.ReturnPct,
		MaxDrawdownPct: result.Stats.MaxDrawdownPct,
		SharpeRatio:    result.Stats.SharpeRatio,
		TradeCount:     result.Stats.Trades,
		Stats:          datatypes.JSON(stats),
		Trades:         datatypes.JSON(trades),
		Equity:         datatypes.JSON(equity),
		Source:         source,
	}, nil
}

func fromBacktestRun(run *model.BacktestRun) (*dto.BacktestResult, error) {
	result := &dto.BacktestResult{
		RunID:      run.ID,
		Symbol:     run.Symbol,
		Exchange:   run.Exchange,
		Timeframe:  run.Timeframe,
		StartDate:  run.StartDate,
		EndDate:    run.EndDate,
		Strategy:   run.Strategy,
		Cash:       run.Cash,
		Commission: run.Commission,
		CreatedAt:  run.CreatedAt,
	}

	decode := func(name string, raw datatypes.JSON, v interface{}) error {
		if len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("failed to decode %s of run %d: %w", name, run.ID, err)
		}
		return nil
	}
	if err := errors.Join(
		decode("params", run.Params, &result.Params),
		decode("stats", run.Stats, &result.Stats),
		decode("trades", run.Trades, &result.Trades),
		decode("equity", run.Equity, &result.Equity),
	); err != nil {
		return nil, err
	}
	return result, nil
}
