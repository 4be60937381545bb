package dto

// BinanceKlines represents a single kline/candlestick from Binance.
type BinanceKlines struct {
	OpenTime  int64   `json:"openTime"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	CloseTime int64   `json:"closeTime"`
}

// BinanceKlinesLimit is the maximum page size of /api/v3/klines.
const BinanceKlinesLimit = 1000
