package dto

import "errors"

var (
	ErrNoPriceData      = errors.New("no price data available")
	ErrInvalidTimeframe = errors.New("invalid timeframe")
	ErrInvalidDateRange = errors.New("invalid date range")
	ErrInvalidExchange  = errors.New("invalid exchange")
	ErrRunNotFound      = errors.New("backtest run not found")
	ErrProviderFailure  = errors.New("market data provider failure")
)

var ErrTooManySymbols = errors.New("too many symbols")
