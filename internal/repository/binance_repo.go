package repository

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang-backtester/config"
	"golang-backtester/internal/dto"
	"golang-backtester/pkg/httpclient"
	"golang-backtester/pkg/logger"

	"golang.org/x/time/rate"
)

type BinanceRepository interface {
	GetKlines(ctx context.Context, symbol string, interval string, limit int, startTime, endTime int64) ([]dto.BinanceKlines, error)
	Get(ctx context.Context, param dto.GetMarketDataParam) ([]dto.RawCandle, error)
}

type binanceRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

func NewBinanceRepository(cfg *config.Config, log *logger.Logger) BinanceRepository {
	return newBinanceRepository(cfg, log, httpclient.New(log, cfg.Binance.BaseURL, cfg.Binance.Timeout, ""))
}

func newBinanceRepository(cfg *config.Config, log *logger.Logger, client httpclient.HTTPClient) *binanceRepository {
	return &binanceRepository{
		httpClient:     client,
		cfg:            cfg,
		logger:         log,
		requestLimiter: newPerMinuteLimiter(cfg.Binance.MaxRequestPerMinute),
	}
}

func (r *binanceRepository) GetKlines(ctx context.Context, symbol string, interval string, limit int, startTime, endTime int64) ([]dto.BinanceKlines, error) {
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := "/api/v3/klines"
	queryParams := map[string]string{
		"symbol":    symbol,
		"interval":  interval,
		"limit":     strconv.Itoa(limit),
		"startTime": strconv.FormatInt(startTime, 10),
		"endTime":   strconv.FormatInt(endTime, 10),
	}

	var klines [][]interface{}
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, nil, &klines)
	if err != nil {
		return nil, fmt.Errorf("%w: binance klines for %s: %v", dto.ErrProviderFailure, symbol, err)
	}

	if resp.StatusCode != http.StatusOK {
		r.logger.ErrorContext(ctx, "Binance API returned Non-OK status for klines",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", string(resp.Body)))
		if resp.StatusCode == http.StatusBadRequest {
			// unknown symbols are rejected with 400 and code -1121
			return nil, fmt.Errorf("%w for %s", dto.ErrNoPriceData, symbol)
		}
		return nil, fmt.Errorf("%w: binance api returned status %d", dto.ErrProviderFailure, resp.StatusCode)
	}

	result := make([]dto.BinanceKlines, 0, len(klines))
	for _, k := range klines {
		if len(k) < 7 {
			continue
		}
		openTime, _ := k[0].(float64)
		closeTime, _ := k[6].(float64)
		result = append(result, dto.BinanceKlines{
			OpenTime:  int64(openTime),
			Open:      parseKlineFloat(k[1]),
			High:      parseKlineFloat(k[2]),
			Low:       parseKlineFloat(k[3]),
			Close:     parseKlineFloat(k[4]),
			Volume:    parseKlineFloat(k[5]),
			CloseTime: int64(closeTime),
		})
	}

	return result, nil
}

func parseKlineFloat(v interface{}) float64 {
	s, _ := v.(string)
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

// Get pages through klines from param.Start until param.End.
func (r *binanceRepository) Get(ctx context.Context, param dto.GetMarketDataParam) ([]dto.RawCandle, error) {
	interval, err := dto.BinanceInterval(param.Timeframe)
	if err != nil {
		return nil, err
	}

	symbol := strings.ToUpper(param.Symbol)
	startTime := param.Start.UnixMilli()
	endTime := param.End.UnixMilli()

	var candles []dto.RawCandle
	for startTime <= endTime {
		klines, err := r.GetKlines(ctx, symbol, interval, dto.BinanceKlinesLimit, startTime, endTime)
		if err != nil {
			return nil, err
		}
		for _, k := range klines {
			open, high, low, closePrice, volume := k.Open, k.High, k.Low, k.Close, k.Volume
			candles = append(candles, dto.RawCandle{
				Time:   time.UnixMilli(k.OpenTime).UTC(),
				Open:   &open,
				High:   &high,
				Low:    &low,
				Close:  &closePrice,
				Volume: &volume,
			})
		}
		if len(klines) < dto.BinanceKlinesLimit {
			break
		}
		startTime = klines[len(klines)-1].CloseTime + 1
	}

	r.logger.DebugContext(ctx, "Fetched Binance klines",
		logger.SymbolField(symbol),
		logger.StringField("interval", interval),
		logger.IntField("candles", len(candles)))

	return candles, nil
}
