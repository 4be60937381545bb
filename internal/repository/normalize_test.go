package repository

import (
	"testing"
	"time"

	"golang-backtester/internal/backtest"
	"golang-backtester/internal/dto"
	"golang-backtester/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candle(ts time.Time, open, high, low, closePrice, volume *float64) dto.RawCandle {
	return dto.RawCandle{Time: ts, Open: open, High: high, Low: low, Close: closePrice, Volume: volume}
}

var p = utils.ToPointer[float64]

func TestNormalizeCandles(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	t.Run("fills missing fields", func(t *testing.T) {
		raw := []dto.RawCandle{
			candle(day(1), p(10), p(12), p(9), p(11), p(500)),
			candle(day(2), nil, nil, nil, p(13), nil),
			candle(day(3), p(14), nil, p(12), p(13.5), p(0)),
		}

		bars, err := NormalizeCandles(raw)
		require.NoError(t, err)
		require.Len(t, bars, 3)

		assert.Equal(t, backtest.Bar{Time: day(1), Open: 10, High: 12, Low: 9, Close: 11, Volume: 500}, bars[0])
		assert.Equal(t, backtest.Bar{Time: day(2), Open: 11, High: 13, Low: 11, Close: 13, Volume: dto.DefaultVolume}, bars[1])
		assert.Equal(t, backtest.Bar{Time: day(3), Open: 14, High: 14, Low: 12, Close: 13.5, Volume: 0}, bars[2])
	})

	t.Run("drops bars without close and leading bars without open", func(t *testing.T) {
		raw := []dto.RawCandle{
			candle(day(1), nil, p(5), p(4), p(4.5), p(1)),
			candle(day(2), p(5), p(6), p(4), nil, p(1)),
			candle(day(3), nil, nil, nil, p(6), p(1)),
		}

		bars, err := NormalizeCandles(raw)
		require.NoError(t, err)
		require.Len(t, bars, 1)
		assert.Equal(t, day(3), bars[0].Time)
		assert.Equal(t, 4.5, bars[0].Open)
	})

	t.Run("sorts, dedupes and converts to UTC", func(t *testing.T) {
		jakarta := time.FixedZone("WIB", 7*3600)
		raw := []dto.RawCandle{
			candle(day(3), p(3), p(3), p(3), p(3), p(1)),
			candle(day(1), p(1), p(1), p(1), p(1), p(1)),
			candle(day(3), p(30), p(30), p(30), p(30), p(1)),
			candle(time.Date(2024, 1, 2, 7, 0, 0, 0, jakarta), p(2), p(2), p(2), p(2), p(1)),
		}

		bars, err := NormalizeCandles(raw)
		require.NoError(t, err)
		require.Len(t, bars, 3)
		assert.Equal(t, []time.Time{day(1), day(2), day(3)}, []time.Time{bars[0].Time, bars[1].Time, bars[2].Time})
		assert.Equal(t, time.UTC, bars[1].Time.Location())
		assert.Equal(t, 30.0, bars[2].Close)
	})

	t.Run("no close anywhere", func(t *testing.T) {
		raw := []dto.RawCandle{candle(day(1), p(1), p(1), p(1), nil, p(1))}
		_, err := NormalizeCandles(raw)
		assert.ErrorIs(t, err, dto.ErrNoPriceData)

		_, err = NormalizeCandles(nil)
		assert.ErrorIs(t, err, dto.ErrNoPriceData)
	})
}

func TestResampleBars(t *testing.T) {
	hour := func(h int) time.Time { return time.Date(2024, 1, 1, h, 30, 0, 0, time.UTC) }
	bars := []backtest.Bar{
		{Time: hour(1), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100},
		{Time: hour(2), Open: 10.5, High: 12, Low: 10, Close: 11.5, Volume: 200},
		{Time: hour(3), Open: 11.5, High: 11.8, Low: 8, Close: 9, Volume: 50},
		{Time: hour(4), Open: 9, High: 9.5, Low: 8.5, Close: 9.2, Volume: 10},
	}

	got := ResampleBars(bars, 4*time.Hour)

	require.Len(t, got, 2)
	assert.Equal(t, backtest.Bar{
		Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Open: 10, High: 12, Low: 8, Close: 9, Volume: 350,
	}, got[0])
	assert.Equal(t, backtest.Bar{
		Time: time.Date(2024, 1, 1, 4, 0, 0, 0, time.UTC), Open: 9, High: 9.5, Low: 8.5, Close: 9.2, Volume: 10,
	}, got[1])
	assert.Empty(t, ResampleBars(nil, 4*time.Hour))
}
