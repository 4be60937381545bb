package backtest

import (
	"golang-backtester/internal/indicator"
)

// Strategy decides when to enter and leave the market.
//
// Init runs once with the full price history and registers indicators via
// Session.I. Next runs once per bar after every indicator has warmed up.
type Strategy interface {
	Name() string
	Init(s *Session) error
	Next(s *Session)
}

// NamedSeries is an indicator registered by a strategy.
type NamedSeries struct {
	Name   string
	Series indicator.Series
	// Overlay marks series drawn on the price pane.
	Overlay bool
}

// Position is the aggregated open exposure.
type Position struct {
	Size       float64
	EntryPrice float64
	PnL        float64
}

// IsOpen reports whether any units are held.
func (p Position) IsOpen() bool {
	return p.Size != 0
}

// Session is the strategy's view of a running backtest.
type Session struct {
	bars       []Bar
	closes     []float64
	index      int
	broker     *broker
	indicators []NamedSeries
}

// Closes returns the close prices visible at the current bar.
// During Init the whole history is visible.
func (s *Session) Closes() []float64 {
	if s.index < 0 {
		return s.closes
	}
	return s.closes[:s.index+1]
}

// Index is the position of the current bar.
func (s *Session) Index() int {
	return s.index
}

// Bar returns the current bar.
func (s *Session) Bar() Bar {
	return s.bars[s.index]
}

// I registers an indicator so the engine waits for it to warm up and the
// chart can draw it.
func (s *Session) I(name string, series indicator.Series, overlay bool) indicator.Series {
	s.indicators = append(s.indicators, NamedSeries{Name: name, Series: series, Overlay: overlay})
	return series
}

// Position returns the open position marked at the current close.
func (s *Session) Position() Position {
	return s.broker.position(s.closes[s.index])
}

// Buy queues a market buy filled at the next bar's open. A size below 1 is
// a fraction of available equity, otherwise a number of whole units.
func (s *Session) Buy(size float64) {
	s.broker.queue(order{size: size, placedAt: s.index})
}

// ClosePosition queues closing every open trade at the next bar's open.
func (s *Session) ClosePosition() {
	s.broker.queue(order{close: true, placedAt: s.index})
}
