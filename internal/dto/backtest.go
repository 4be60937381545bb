package dto

import (
	"time"

	"golang-backtester/internal/backtest"
)

// StrategyParams are the tunable RSI/SMA inputs, bounded like the dashboard sliders.
type StrategyParams struct {
	RSIPeriod     int     `json:"rsi_period" validate:"min=5,max=30"`
	RSIOverbought float64 `json:"rsi_overbought" validate:"min=50,max=100"`
	RSIOversold   float64 `json:"rsi_oversold" validate:"min=0,max=50"`
	SMAFast       int     `json:"sma_fast" validate:"min=20,max=100"`
	SMASlow       int     `json:"sma_slow" validate:"min=100,max=300"`
}

func DefaultStrategyParams() StrategyParams {
	p := backtest.DefaultRSISMAParams()
	return StrategyParams{
		RSIPeriod:     p.RSIPeriod,
		RSIOverbought: p.RSIOverbought,
		RSIOversold:   p.RSIOversold,
		SMAFast:       p.SMAFast,
		SMASlow:       p.SMASlow,
	}
}

// ToEngineParams converts to engine parameters with the given position size.
func (p StrategyParams) ToEngineParams(positionSize float64) backtest.RSISMAParams {
	return backtest.RSISMAParams{
		RSIPeriod:     p.RSIPeriod,
		RSIOverbought: p.RSIOverbought,
		RSIOversold:   p.RSIOversold,
		SMAFast:       p.SMAFast,
		SMASlow:       p.SMASlow,
		PositionSize:  positionSize,
	}
}

// MarketDataRequest selects a symbol, timeframe and date range. Dates are YYYY-MM-DD.
type MarketDataRequest struct {
	Symbol    string `json:"symbol" validate:"required,max=32"`
	Exchange  string `json:"exchange" validate:"omitempty,oneof=YAHOO BINANCE"`
	Timeframe string `json:"timeframe" validate:"required,oneof=1h 4h 1d 1wk"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// BacktestRequest is a single-symbol backtest with strategy parameters.
type BacktestRequest struct {
	MarketDataRequest
	Params StrategyParams `json:"params"`
}

type BatchBacktestRequest struct {
	Symbols   []string       `json:"symbols" validate:"required,min=1,dive,required,max=32"`
	Exchange  string         `json:"exchange" validate:"omitempty,oneof=YAHOO BINANCE"`
	Timeframe string         `json:"timeframe" validate:"required,oneof=1h 4h 1d 1wk"`
	StartDate string         `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string         `json:"end_date" validate:"required,datetime=2006-01-02"`
	Params    StrategyParams `json:"params"`
}

// Request builds the single-symbol request for symbol.
func (b BatchBacktestRequest) Request(symbol string) BacktestRequest {
	return BacktestRequest{
		MarketDataRequest: MarketDataRequest{
			Symbol:    symbol,
			Exchange:  b.Exchange,
			Timeframe: b.Timeframe,
			StartDate: b.StartDate,
			EndDate:   b.EndDate,
		},
		Params: b.Params,
	}
}

type MarketDataPreview struct {
	Symbol    string         `json:"symbol"`
	Exchange  string         `json:"exchange"`
	Timeframe string         `json:"timeframe"`
	From      time.Time      `json:"from"`
	To        time.Time      `json:"to"`
	BarCount  int            `json:"bar_count"`
	LastBars  []backtest.Bar `json:"last_bars"`
}

// TradeLog is a closed trade with a human readable duration.
type TradeLog struct {
	backtest.Trade
	DurationText string `json:"duration_text"`
}

// BacktestResult is the outcome of one backtest run.
type BacktestResult struct {
	RunID      uint                   `json:"run_id,omitempty"`
	Symbol     string                 `json:"symbol"`
	Exchange   string                 `json:"exchange"`
	Timeframe  string                 `json:"timeframe"`
	StartDate  string                 `json:"start_date"`
	EndDate    string                 `json:"end_date"`
	Strategy   string                 `json:"strategy"`
	Params     StrategyParams         `json:"params"`
	Cash       float64                `json:"cash"`
	Commission float64                `json:"commission"`
	Stats      backtest.Stats         `json:"stats"`
	Trades     []TradeLog             `json:"trades"`
	Equity     []backtest.EquityPoint `json:"equity,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

type BatchItemResult struct {
	Symbol string          `json:"symbol"`
	Result *BacktestResult `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

type BatchBacktestResult struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Items     []BatchItemResult `json:"items"`
}

// BacktestRunSummary is a saved run without trades and equity.
type BacktestRunSummary struct {
	ID          uint      `json:"id"`
	Symbol      string    `json:"symbol"`
	Exchange    string    `json:"exchange"`
	Timeframe   string    `json:"timeframe"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	Strategy    string    `json:"strategy"`
	ReturnPct   float64   `json:"return_pct"`
	MaxDrawdown float64   `json:"max_drawdown_pct"`
	SharpeRatio *float64  `json:"sharpe_ratio"`
	Trades      int       `json:"trades"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
}

type ListBacktestRunsParam struct {
	Symbol string `query:"symbol" validate:"omitempty,max=32"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=200"`
	Offset int    `query:"offset" validate:"omitempty,min=0"`
}
