package dto

import (
	"time"

	"golang-backtester/internal/backtest"
)

type GetMarketDataParam struct {
	Symbol    string    `json:"symbol"`
	Exchange  string    `json:"exchange"`
	Timeframe string    `json:"timeframe"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
}

type MarketData struct {
	Symbol    string         `json:"symbol"`
	Exchange  string         `json:"exchange"`
	Timeframe string         `json:"timeframe"`
	Interval  string         `json:"interval"`
	Bars      []backtest.Bar `json:"bars"`
}

// From is the time of the first bar.
func (m *MarketData) From() time.Time {
	if len(m.Bars) == 0 {
		return time.Time{}
	}
	return m.Bars[0].Time
}

// To is the time of the last bar.
func (m *MarketData) To() time.Time {
	if len(m.Bars) == 0 {
		return time.Time{}
	}
	return m.Bars[len(m.Bars)-1].Time
}

// Tail returns the last n bars.
func (m *MarketData) Tail(n int) []backtest.Bar {
	if n >= len(m.Bars) {
		return m.Bars
	}
	return m.Bars[len(m.Bars)-n:]
}

// RawCandle is a provider candle before normalization. Nil fields were
// missing or null in the provider payload.
type RawCandle struct {
	Time   time.Time
	Open   *float64
	High   *float64
	Low    *float64
	Close  *float64
	Volume *float64
}

// Yahoo Finance API Response
type YahooFinanceResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				ExchangeName       string  `json:"exchangeName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *YahooFinanceError `json:"error"`
	} `json:"chart"`
}

type YahooFinanceError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
