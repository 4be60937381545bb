package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang-backtester/config"
	"golang-backtester/internal/dto"
	"golang-backtester/pkg/httpclient"
	"golang-backtester/pkg/logger"

	"golang.org/x/time/rate"
)

type YahooFinanceRepository interface {
	Get(ctx context.Context, param dto.GetMarketDataParam) ([]dto.RawCandle, error)
}

type yahooFinanceRepository struct {
	httpClient     httpclient.HTTPClient
	cfg            *config.Config
	logger         *logger.Logger
	requestLimiter *rate.Limiter
}

// NewYahooFinanceRepository creates a Yahoo chart API client limited to
// cfg.YahooFinance.MaxRequestPerMinute requests.
func NewYahooFinanceRepository(cfg *config.Config, log *logger.Logger) YahooFinanceRepository {
	return newYahooFinanceRepository(cfg, log, httpclient.New(log, cfg.YahooFinance.BaseURL, cfg.YahooFinance.Timeout, ""))
}

func newYahooFinanceRepository(cfg *config.Config, log *logger.Logger, client httpclient.HTTPClient) *yahooFinanceRepository {
	return &yahooFinanceRepository{
		httpClient:     client,
		cfg:            cfg,
		logger:         log,
		requestLimiter: newPerMinuteLimiter(cfg.YahooFinance.MaxRequestPerMinute),
	}
}

func newPerMinuteLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

func (r *yahooFinanceRepository) Get(ctx context.Context, param dto.GetMarketDataParam) ([]dto.RawCandle, error) {
	interval, err := dto.YahooInterval(param.Timeframe)
	if err != nil {
		return nil, err
	}

	if r.requestLimiter.Tokens() < 1 {
		r.logger.WarnContext(ctx, "Yahoo Finance request limit reached, waiting",
			logger.IntField("max_request_per_minute", r.cfg.YahooFinance.MaxRequestPerMinute),
		)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := "/" + url.PathEscape(param.Symbol)
	queryParams := map[string]string{
		"period1":        strconv.FormatInt(param.Start.Unix(), 10),
		"period2":        strconv.FormatInt(param.End.Unix(), 10),
		"interval":       interval,
		"includePrePost": "false",
		"events":         "div,split",
	}

	headers := map[string]string{
		"User-Agent":      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 Chrome/120.0.0.0 Safari/537.36",
		"Accept":          "application/json, text/plain, */*",
		"Accept-Language": "en-US,en;q=0.9",
		"Referer":         "https://finance.yahoo.com/",
	}

	var yahooResp dto.YahooFinanceResponse
	resp, err := r.httpClient.Get(ctx, endpoint, queryParams, headers, &yahooResp)
	if err != nil {
		return nil, fmt.Errorf("%w: yahoo finance request for %s: %v", dto.ErrProviderFailure, param.Symbol, err)
	}

	if resp.StatusCode != http.StatusOK {
		// error bodies usually carry the chart envelope, but not always
		var errResp dto.YahooFinanceResponse
		var chartErr *dto.YahooFinanceError
		if jsonErr := json.Unmarshal(resp.Body, &errResp); jsonErr == nil && errResp.Chart.Error != nil {
			chartErr = errResp.Chart.Error
			r.logger.WarnContext(ctx, "Yahoo Finance returned an error",
				logger.SymbolField(param.Symbol),
				logger.StringField("code", chartErr.Code),
				logger.StringField("description", chartErr.Description))
		}

		if resp.StatusCode == http.StatusNotFound {
			if chartErr != nil {
				return nil, fmt.Errorf("%w for %s: %s", dto.ErrNoPriceData, param.Symbol, chartErr.Description)
			}
			return nil, fmt.Errorf("%w for %s", dto.ErrNoPriceData, param.Symbol)
		}
		if chartErr != nil {
			return nil, fmt.Errorf("%w: yahoo finance %s: %s", dto.ErrProviderFailure, chartErr.Code, chartErr.Description)
		}
		r.logger.ErrorContext(ctx, "Yahoo Finance API returned Non-OK status",
			logger.IntField("status_code", resp.StatusCode),
			logger.StringField("body", string(resp.Body)))
		return nil, fmt.Errorf("%w: yahoo finance api returned status %d", dto.ErrProviderFailure, resp.StatusCode)
	}

	if yahooResp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: yahoo finance %s: %s", dto.ErrProviderFailure, yahooResp.Chart.Error.Code, yahooResp.Chart.Error.Description)
	}
	if len(yahooResp.Chart.Result) == 0 || len(yahooResp.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w for %s", dto.ErrNoPriceData, param.Symbol)
	}

	result := yahooResp.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	var adjClose []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adjClose = result.Indicators.AdjClose[0].AdjClose
	}

	candles := make([]dto.RawCandle, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		candle := dto.RawCandle{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  at(quote.Close, i),
			Volume: at(quote.Volume, i),
		}
		adjust(&candle, at(adjClose, i))
		candles = append(candles, candle)
	}

	r.logger.DebugContext(ctx, "Fetched Yahoo Finance candles",
		logger.SymbolField(param.Symbol),
		logger.StringField("interval", interval),
		logger.IntField("candles", len(candles)))

	return candles, nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

// adjust scales the prices of c by adjClose/close so splits and dividends
// do not show up as price gaps. Volume is left as reported.
func adjust(c *dto.RawCandle, adjClose *float64) {
	if adjClose == nil || !valid(c.Close) || *adjClose <= 0 {
		return
	}
	ratio := *adjClose / *c.Close
	scale := func(v *float64) *float64 {
		if v == nil {
			return nil
		}
		scaled := *v * ratio
		return &scaled
	}
	c.Open = scale(c.Open)
	c.High = scale(c.High)
	c.Low = scale(c.Low)
	c.Close = scale(c.Close)
}
