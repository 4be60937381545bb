// Package indicator computes technical indicators over price series.
//
// Outputs always have the same length as the input. Positions inside the
// lookback window are NaN so series can be indexed bar by bar next to the
// candles they were computed from.
package indicator

import (
	"errors"
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
)

var ErrInvalidPeriod = errors.New("indicator period must be at least 2")

// Series is an indicator output aligned with its input bars.
type Series []float64

// Lookback returns how many leading values of s are NaN.
func (s Series) Lookback() int {
	for i, v := range s {
		if !math.IsNaN(v) {
			return i
		}
	}
	return len(s)
}

// At returns the value at i, NaN when i is out of range.
func (s Series) At(i int) float64 {
	if i < 0 || i >= len(s) {
		return math.NaN()
	}
	return s[i]
}

func nanSeries(n int) Series {
	out := make(Series, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// warmup copies raw into a Series, replacing the first lookback entries
// (which talib leaves as zero) with NaN.
func warmup(raw []float64, lookback int) Series {
	out := Series(raw)
	for i := 0; i < lookback && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

// SMA is the simple moving average of values over period bars.
func SMA(values []float64, period int) (Series, error) {
	if period < 2 {
		return nil, fmt.Errorf("sma(%d): %w", period, ErrInvalidPeriod)
	}
	if len(values) < period {
		return nanSeries(len(values)), nil
	}
	return warmup(talib.Sma(values, period), period-1), nil
}

// RSI is Wilder's relative strength index over period bars.
// A window without any movement yields 0.
func RSI(values []float64, period int) (Series, error) {
	if period < 2 {
		return nil, fmt.Errorf("rsi(%d): %w", period, ErrInvalidPeriod)
	}
	if len(values) <= period {
		return nanSeries(len(values)), nil
	}
	return warmup(talib.Rsi(values, period), period), nil
}
