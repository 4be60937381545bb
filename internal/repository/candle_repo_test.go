package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang-backtester/config"
	"golang-backtester/internal/dto"
	"golang-backtester/pkg/cache"
	"golang-backtester/pkg/httpclient"
	"golang-backtester/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	calls   int
	params  []dto.GetMarketDataParam
	candles []dto.RawCandle
	err     error
}

func (f *fakeProvider) Get(_ context.Context, param dto.GetMarketDataParam) ([]dto.RawCandle, error) {
	f.calls++
	f.params = append(f.params, param)
	return f.candles, f.err
}

type fakeBinance struct {
	fakeProvider
}

func (f *fakeBinance) GetKlines(context.Context, string, string, int, int64, int64) ([]dto.BinanceKlines, error) {
	return nil, errors.New("not used")
}

func hourlyCandles(start time.Time, n int) []dto.RawCandle {
	out := make([]dto.RawCandle, n)
	for i := range out {
		price := 100 + float64(i)
		out[i] = dto.RawCandle{Time: start.Add(time.Duration(i) * time.Hour), Open: p(price), High: p(price + 1), Low: p(price - 1), Close: p(price + 0.5), Volume: p(10)}
	}
	return out
}

func newTestCandleRepo() (CandleRepository, *fakeProvider, *fakeBinance) {
	cfg := &config.Config{Cache: config.Cache{MarketDataExpiration: time.Minute}}
	yahoo := &fakeProvider{}
	binance := &fakeBinance{}
	repo := NewCandleRepository(cfg, logger.NewNop(), cache.NewCache(time.Minute, time.Minute), binance, yahoo)
	return repo, yahoo, binance
}

func TestCandleRepository_Get(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24*time.Hour - time.Millisecond)

	t.Run("yahoo 4h is resampled and cached", func(t *testing.T) {
		repo, yahoo, binance := newTestCandleRepo()
		yahoo.candles = hourlyCandles(start, 24)
		param := dto.GetMarketDataParam{Symbol: " aapl ", Timeframe: dto.Timeframe4Hour, Start: start, End: end}

		data, err := repo.Get(context.Background(), param)
		require.NoError(t, err)
		assert.Equal(t, "AAPL", data.Symbol)
		assert.Equal(t, "YAHOO", data.Exchange)
		assert.Equal(t, "60m", data.Interval)
		require.Len(t, data.Bars, 6)
		assert.Equal(t, start.Add(4*time.Hour), data.Bars[1].Time)
		assert.Equal(t, 40.0, data.Bars[0].Volume)
		assert.Equal(t, "AAPL", yahoo.params[0].Symbol)

		again, err := repo.Get(context.Background(), param)
		require.NoError(t, err)
		assert.Same(t, data, again)
		assert.Equal(t, 1, yahoo.calls)
		assert.Zero(t, binance.calls)
	})

	t.Run("binance dispatch", func(t *testing.T) {
		repo, yahoo, binance := newTestCandleRepo()
		binance.candles = hourlyCandles(start, 8)

		data, err := repo.Get(context.Background(), dto.GetMarketDataParam{
			Symbol: "BTCUSDT", Exchange: "BINANCE", Timeframe: dto.Timeframe4Hour, Start: start, End: end,
		})
		require.NoError(t, err)
		assert.Equal(t, "4h", data.Interval)
		assert.Len(t, data.Bars, 8)
		assert.Equal(t, 1, binance.calls)
		assert.Zero(t, yahoo.calls)
	})

	t.Run("validation", func(t *testing.T) {
		repo, yahoo, _ := newTestCandleRepo()

		_, err := repo.Get(context.Background(), dto.GetMarketDataParam{Symbol: "X", Exchange: "NYSE", Timeframe: "1d", Start: start, End: end})
		assert.ErrorIs(t, err, dto.ErrInvalidExchange)

		_, err = repo.Get(context.Background(), dto.GetMarketDataParam{Symbol: "X", Timeframe: "1d", Start: end, End: start})
		assert.ErrorIs(t, err, dto.ErrInvalidDateRange)

		_, err = repo.Get(context.Background(), dto.GetMarketDataParam{Symbol: "X", Timeframe: "3m", Start: start, End: end})
		assert.ErrorIs(t, err, dto.ErrInvalidTimeframe)
		assert.Zero(t, yahoo.calls)
	})

	t.Run("provider errors and empty data are not cached", func(t *testing.T) {
		repo, yahoo, _ := newTestCandleRepo()
		param := dto.GetMarketDataParam{Symbol: "X", Timeframe: "1d", Start: start, End: end}

		yahoo.err = dto.ErrProviderFailure
		_, err := repo.Get(context.Background(), param)
		assert.ErrorIs(t, err, dto.ErrProviderFailure)

		yahoo.err = nil
		yahoo.candles = []dto.RawCandle{{Time: start}}
		_, err = repo.Get(context.Background(), param)
		assert.ErrorIs(t, err, dto.ErrNoPriceData)
		assert.Equal(t, 2, yahoo.calls)
	})
}

type pagedKlines struct {
	pages [][][]interface{}
	calls []map[string]string
}

func (f *pagedKlines) Get(_ context.Context, endpoint string, query map[string]string, _ map[string]string, result interface{}) (*httpclient.BaseResponse, error) {
	f.calls = append(f.calls, query)
	page := f.pages[len(f.calls)-1]
	*(result.(*[][]interface{})) = page
	return &httpclient.BaseResponse{StatusCode: 200}, nil
}

func kline(openMs int64) []interface{} {
	return []interface{}{float64(openMs), "1.0", "2.0", "0.5", "1.5", "10", float64(openMs + 3_599_999), "0", float64(1), "0", "0", "0"}
}

func TestBinanceRepository_GetPages(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	full := make([][]interface{}, dto.BinanceKlinesLimit)
	for i := range full {
		full[i] = kline(start.Add(time.Duration(i) * time.Hour).UnixMilli())
	}
	last := start.Add(time.Duration(dto.BinanceKlinesLimit) * time.Hour).UnixMilli()
	client := &pagedKlines{pages: [][][]interface{}{full, {kline(last)}}}

	cfg := &config.Config{}
	repo := newBinanceRepository(cfg, logger.NewNop(), client)

	candles, err := repo.Get(context.Background(), dto.GetMarketDataParam{
		Symbol: "btcusdt", Timeframe: dto.Timeframe1Hour, Start: start, End: start.AddDate(0, 3, 0),
	})
	require.NoError(t, err)
	assert.Len(t, candles, dto.BinanceKlinesLimit+1)
	require.Len(t, client.calls, 2)
	assert.Equal(t, "BTCUSDT", client.calls[0]["symbol"])
	assert.Equal(t, "1h", client.calls[0]["interval"])
	assert.Equal(t, "1000", client.calls[0]["limit"])
	assert.Equal(t, last, mustParseInt(t, client.calls[1]["startTime"]))
	assert.Equal(t, 1.5, *candles[0].Close)
	assert.Equal(t, start, candles[0].Time)
}
