package repository

import (
	"context"
	"fmt"
	"strings"

	"golang-backtester/config"
	"golang-backtester/internal/dto"
	"golang-backtester/pkg/cache"
	"golang-backtester/pkg/common"
	"golang-backtester/pkg/logger"
)

// CandleRepository returns normalized bars for a symbol from the provider of
// its exchange.
type CandleRepository interface {
	Get(ctx context.Context, param dto.GetMarketDataParam) (*dto.MarketData, error)
}

type candleRepository struct {
	binanceRepo BinanceRepository
	yahooRepo   YahooFinanceRepository
	cache       cache.Cache
	cfg         *config.Config
	logger      *logger.Logger
}

func NewCandleRepository(cfg *config.Config, log *logger.Logger, memCache cache.Cache, binanceRepo BinanceRepository, yahooRepo YahooFinanceRepository) CandleRepository {
	return &candleRepository{
		binanceRepo: binanceRepo,
		yahooRepo:   yahooRepo,
		cache:       memCache,
		cfg:         cfg,
		logger:      log,
	}
}

func (r *candleRepository) Get(ctx context.Context, param dto.GetMarketDataParam) (*dto.MarketData, error) {
	param.Symbol = strings.ToUpper(strings.TrimSpace(param.Symbol))
	if param.Exchange == "" {
		param.Exchange = common.EXCHANGE_YAHOO
	}
	if !param.End.After(param.Start) {
		return nil, fmt.Errorf("%w: end %s is not after start %s", dto.ErrInvalidDateRange, param.End, param.Start)
	}

	var (
		interval string
		err      error
		fetch    func(context.Context, dto.GetMarketDataParam) ([]dto.RawCandle, error)
	)
	switch param.Exchange {
	case common.EXCHANGE_BINANCE:
		interval, err = dto.BinanceInterval(param.Timeframe)
		fetch = r.binanceRepo.Get
	case common.EXCHANGE_YAHOO:
		interval, err = dto.YahooInterval(param.Timeframe)
		fetch = r.yahooRepo.Get
	default:
		return nil, fmt.Errorf("%w: %q", dto.ErrInvalidExchange, param.Exchange)
	}
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf(common.KEY_MARKET_DATA, param.Exchange, param.Symbol, param.Timeframe, param.Start.Unix(), param.End.Unix())
	data, hit, err := cache.Load(ctx, r.cache, key, r.cfg.Cache.MarketDataExpiration, func(ctx context.Context) (*dto.MarketData, error) {
		raw, err := fetch(ctx, param)
		if err != nil {
			return nil, err
		}

		bars, err := NormalizeCandles(raw)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", param.Symbol, param.Timeframe, err)
		}
		if interval != param.Timeframe && param.Timeframe == dto.Timeframe4Hour {
			bars = ResampleBars(bars, dto.TimeframeDuration(param.Timeframe))
		}

		return &dto.MarketData{
			Symbol:    param.Symbol,
			Exchange:  param.Exchange,
			Timeframe: param.Timeframe,
			Interval:  interval,
			Bars:      bars,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if hit {
		r.logger.DebugContext(ctx, "Market data served from cache", logger.StringField("key", key))
		return data, nil
	}
	r.logger.InfoContext(ctx, "Market data loaded",
		logger.SymbolField(param.Symbol),
		logger.StringField("exchange", param.Exchange),
		logger.TimeframeField(param.Timeframe),
		logger.IntField("bars", len(data.Bars)))
	return data, nil
}
