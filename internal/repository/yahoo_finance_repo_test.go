package repository

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang-backtester/config"
	"golang-backtester/internal/dto"
	"golang-backtester/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yahooChartBody = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "AAPL", "currency": "USD"},
      "timestamp": [1704153600, 1704240000, 1704326400],
      "indicators": {
        "quote": [{
          "open":   [100, null, 102],
          "high":   [110, null, 104],
          "low":    [90, null, 101],
          "close":  [105, 103, null],
          "volume": [1000, null, 3000]
        }],
        "adjclose": [{"adjclose": [52.5, 51.5, null]}]
      }
    }],
    "error": null
  }
}`

func newTestYahooRepo(t *testing.T, handler http.HandlerFunc) YahooFinanceRepository {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{YahooFinance: config.DataProvider{
		BaseURL:             srv.URL,
		Timeout:             5 * time.Second,
		MaxRequestPerMinute: 6000,
	}}
	return NewYahooFinanceRepository(cfg, logger.NewNop())
}

func TestYahooFinanceRepository_Get(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 5, 23, 59, 59, 0, time.UTC)

	repo := newTestYahooRepo(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/AAPL", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "1704067200", q.Get("period1"))
		assert.Equal(t, "1704499199", q.Get("period2"))
		assert.Equal(t, "1d", q.Get("interval"))
		assert.Equal(t, "false", q.Get("includePrePost"))
		assert.Equal(t, "div,split", q.Get("events"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(yahooChartBody))
	})

	candles, err := repo.Get(context.Background(), dto.GetMarketDataParam{
		Symbol: "AAPL", Exchange: "YAHOO", Timeframe: dto.Timeframe1Day, Start: start, End: end,
	})
	require.NoError(t, err)
	require.Len(t, candles, 3)

	first := candles[0]
	assert.Equal(t, time.Unix(1704153600, 0).UTC(), first.Time)
	assert.InDelta(t, 50.0, *first.Open, 1e-9)
	assert.InDelta(t, 55.0, *first.High, 1e-9)
	assert.InDelta(t, 45.0, *first.Low, 1e-9)
	assert.InDelta(t, 52.5, *first.Close, 1e-9)
	assert.InDelta(t, 1000.0, *first.Volume, 1e-9)

	assert.Nil(t, candles[1].Open)
	assert.InDelta(t, 51.5, *candles[1].Close, 1e-9)
	assert.Nil(t, candles[2].Close)
	assert.InDelta(t, 102.0, *candles[2].Open, 1e-9)
}

func TestYahooFinanceRepository_Errors(t *testing.T) {
	param := dto.GetMarketDataParam{
		Symbol:    "NOPE",
		Timeframe: dto.Timeframe1Day,
		Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:       time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("unknown symbol", func(t *testing.T) {
		repo := newTestYahooRepo(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
		})
		_, err := repo.Get(context.Background(), param)
		assert.ErrorIs(t, err, dto.ErrNoPriceData)
	})

	t.Run("not found without chart envelope", func(t *testing.T) {
		repo := newTestYahooRepo(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("Not Found"))
		})
		_, err := repo.Get(context.Background(), param)
		assert.ErrorIs(t, err, dto.ErrNoPriceData)
		assert.NotErrorIs(t, err, dto.ErrProviderFailure)
	})

	t.Run("bad request without chart envelope", func(t *testing.T) {
		repo := newTestYahooRepo(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("bad request"))
		})
		_, err := repo.Get(context.Background(), param)
		assert.ErrorIs(t, err, dto.ErrProviderFailure)
	})

	t.Run("empty result", func(t *testing.T) {
		repo := newTestYahooRepo(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"chart":{"result":[],"error":null}}`))
		})
		_, err := repo.Get(context.Background(), param)
		assert.ErrorIs(t, err, dto.ErrNoPriceData)
	})

	t.Run("invalid timeframe", func(t *testing.T) {
		repo := newTestYahooRepo(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected")
		})
		bad := param
		bad.Timeframe = "2h"
		_, err := repo.Get(context.Background(), bad)
		assert.ErrorIs(t, err, dto.ErrInvalidTimeframe)
	})
}

func TestYahooInterval(t *testing.T) {
	tests := map[string]string{
		dto.Timeframe1Hour: "60m",
		dto.Timeframe4Hour: "60m",
		dto.Timeframe1Day:  "1d",
		dto.Timeframe1Week: "1wk",
	}
	for tf, want := range tests {
		got, err := dto.YahooInterval(tf)
		require.NoError(t, err)
		assert.Equal(t, want, got, tf)
	}
}
