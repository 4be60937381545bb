package repository

import (
	"math"
	"sort"
	"time"

	"golang-backtester/internal/backtest"
	"golang-backtester/internal/dto"
)

func valid(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0) && *v > 0
}

// NormalizeCandles turns provider candles into clean OHLCV bars.
//
// Bars are sorted by time with duplicate timestamps collapsed to the last
// one. A bar without a close is dropped. A missing open takes the previous
// close, and the bar is dropped when there is none yet. Missing high and low
// fall back to max/min of open and close, missing volume to dto.DefaultVolume.
// Times are converted to UTC.
func NormalizeCandles(raw []dto.RawCandle) ([]backtest.Bar, error) {
	candles := make([]dto.RawCandle, len(raw))
	copy(candles, raw)
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].Time.Before(candles[j].Time)
	})

	deduped := candles[:0]
	for _, c := range candles {
		if n := len(deduped); n > 0 && deduped[n-1].Time.Equal(c.Time) {
			deduped[n-1] = c
			continue
		}
		deduped = append(deduped, c)
	}

	hasClose := false
	for _, c := range deduped {
		if valid(c.Close) {
			hasClose = true
			break
		}
	}
	if !hasClose {
		return nil, dto.ErrNoPriceData
	}

	bars := make([]backtest.Bar, 0, len(deduped))
	var prevClose *float64
	for _, c := range deduped {
		if !valid(c.Close) {
			continue
		}
		closePrice := *c.Close

		var open float64
		switch {
		case valid(c.Open):
			open = *c.Open
		case prevClose != nil:
			open = *prevClose
		default:
			prevClose = c.Close
			continue
		}
		prevClose = c.Close

		high := math.Max(open, closePrice)
		if valid(c.High) {
			high = *c.High
		}
		low := math.Min(open, closePrice)
		if valid(c.Low) {
			low = *c.Low
		}

		volume := dto.DefaultVolume
		if c.Volume != nil && !math.IsNaN(*c.Volume) && !math.IsInf(*c.Volume, 0) && *c.Volume >= 0 {
			volume = *c.Volume
		}

		bars = append(bars, backtest.Bar{
			Time:   c.Time.UTC(),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	if len(bars) == 0 {
		return nil, dto.ErrNoPriceData
	}
	return bars, nil
}

// ResampleBars aggregates bars into buckets of width aligned to UTC midnight.
// Each bucket is labelled with its start time.
func ResampleBars(bars []backtest.Bar, width time.Duration) []backtest.Bar {
	var out []backtest.Bar
	for _, bar := range bars {
		bucket := bar.Time.UTC().Truncate(width)
		if n := len(out); n > 0 && out[n-1].Time.Equal(bucket) {
			last := &out[n-1]
			last.High = math.Max(last.High, bar.High)
			last.Low = math.Min(last.Low, bar.Low)
			last.Close = bar.Close
			last.Volume += bar.Volume
			continue
		}
		out = append(out, backtest.Bar{
			Time:   bucket,
			Open:   bar.Open,
			High:   bar.High,
			Low:    bar.Low,
			Close:  bar.Close,
			Volume: bar.Volume,
		})
	}
	return out
}
