package backtest

import (
	"context"
	"fmt"
)

const ctxCheckEvery = 512

type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg}, nil
}

// Run simulates strategy over bars, which must be sorted by time.
func (e *Engine) Run(ctx context.Context, bars []Bar, strategy Strategy) (*Result, error) {
	if len(bars) == 0 {
		return nil, ErrNoBars
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}

	b := newBroker(e.cfg, bars)
	sess := &Session{
		bars:   bars,
		closes: closes,
		index:  -1,
		broker: b,
	}
	if err := strategy.Init(sess); err != nil {
		return nil, fmt.Errorf("init strategy %s: %w", strategy.Name(), err)
	}

	// first bar where every indicator has a value and a previous one
	start := 1
	for _, ind := range sess.indicators {
		if lb := ind.Series.Lookback() + 1; lb > start {
			start = lb
		}
	}
	if start >= len(bars) {
		return nil, fmt.Errorf("%w: have %d bars, need more than %d", ErrNotEnoughData, len(bars), start)
	}

	for i := start; i < len(bars); i++ {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		b.processOrders(i)
		b.markEquity(i)

		sess.index = i
		strategy.Next(sess)
	}

	last := len(bars) - 1
	b.closeAll(last, bars[last].Close, ExitEndOfData)
	b.equity[last] = b.cash

	return &Result{
		Strategy:   strategy.Name(),
		Stats:      computeStats(bars, b.equity, b.closed),
		Trades:     b.closed,
		Equity:     equityCurve(bars, b.equity),
		Indicators: sess.indicators,
		Bars:       bars,
	}, nil
}

func equityCurve(bars []Bar, equity []float64) []EquityPoint {
	dd := drawdown(equity)
	out := make([]EquityPoint, len(bars))
	for i, bar := range bars {
		out[i] = EquityPoint{
			Time:        bar.Time,
			Equity:      equity[i],
			DrawdownPct: dd[i] * 100,
		}
	}
	return out
}
