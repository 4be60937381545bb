// Package backtest simulates a trading strategy over historical candles.
//
// The engine walks the bars in order. Orders a strategy places while looking
// at bar i are filled at the open of bar i+1, so a strategy never trades on a
// price it has not seen yet. Commission is applied to fill prices: buys pay
// price*(1+commission) and sells receive price*(1-commission).
package backtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNoBars           = errors.New("no bars to backtest")
	ErrNotEnoughData    = errors.New("not enough bars for indicator warm-up")
	ErrInvalidConfig    = errors.New("invalid backtest config")
	ErrInvalidParameter = errors.New("invalid strategy parameter")
)

// Bar is one OHLCV candle.
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Config holds the simulated account settings.
type Config struct {
	Cash       float64
	Commission float64
	// ExclusiveOrders makes every new order close the open position first.
	ExclusiveOrders bool
}

// DefaultConfig mirrors the account used by the dashboard.
func DefaultConfig() Config {
	return Config{
		Cash:            1_000_000,
		Commission:      0.002,
		ExclusiveOrders: true,
	}
}

func (c Config) Validate() error {
	if c.Cash <= 0 {
		return fmt.Errorf("%w: cash must be positive, got %v", ErrInvalidConfig, c.Cash)
	}
	if c.Commission < 0 || c.Commission >= 0.1 {
		return fmt.Errorf("%w: commission must be in [0, 0.1), got %v", ErrInvalidConfig, c.Commission)
	}
	return nil
}

// Duration is a time.Duration that survives a JSON round trip as text.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Exit reasons recorded on closed trades.
const (
	ExitSignal    = "signal"
	ExitExclusive = "exclusive_order"
	ExitEndOfData = "end_of_data"
)

// Trade is a closed round trip.
type Trade struct {
	Size       float64   `json:"size"`
	EntryBar   int       `json:"entry_bar"`
	ExitBar    int       `json:"exit_bar"`
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	PnL        float64   `json:"pnl"`
	ReturnPct  float64   `json:"return_pct"`
	Commission float64   `json:"commission"`
	Duration   Duration  `json:"duration"`
	ExitReason string    `json:"exit_reason"`
}

// EquityPoint is the account value after a bar closed.
type EquityPoint struct {
	Time        time.Time `json:"time"`
	Equity      float64   `json:"equity"`
	DrawdownPct float64   `json:"drawdown_pct"`
}

// Result is everything a run produces.
type Result struct {
	Strategy   string                 `json:"strategy"`
	Stats      Stats                  `json:"stats"`
	Trades     []Trade                `json:"trades"`
	Equity     []EquityPoint          `json:"equity"`
	Indicators []NamedSeries          `json:"-"`
	Bars       []Bar                  `json:"-"`
	Params     map[string]interface{} `json:"params,omitempty"`
}
