package backtest

import (
	"math"
)

type order struct {
	size     float64
	close    bool
	placedAt int
}

type openTrade struct {
	size            float64
	entryPrice      float64
	entryBar        int
	entryCommission float64
}

type broker struct {
	cfg    Config
	bars   []Bar
	cash   float64
	orders []order
	open   []openTrade
	closed []Trade
	equity []float64
}

func newBroker(cfg Config, bars []Bar) *broker {
	equity := make([]float64, len(bars))
	for i := range equity {
		equity[i] = cfg.Cash
	}
	return &broker{
		cfg:    cfg,
		bars:   bars,
		cash:   cfg.Cash,
		equity: equity,
	}
}

func (b *broker) queue(o order) {
	if b.cfg.ExclusiveOrders && !o.close {
		b.orders = b.orders[:0]
	}
	b.orders = append(b.orders, o)
}

func (b *broker) position(price float64) Position {
	var pos Position
	var cost float64
	for _, t := range b.open {
		pos.Size += t.size
		cost += t.size * t.entryPrice
		pos.PnL += t.size * (price - t.entryPrice)
	}
	if pos.Size != 0 {
		pos.EntryPrice = cost / pos.Size
	}
	return pos
}

// marginAvailable is the cash not tied up in open trades.
func (b *broker) marginAvailable() float64 {
	used := 0.0
	for _, t := range b.open {
		used += t.size * t.entryPrice
	}
	return math.Max(0, b.cash-used)
}

// processOrders fills queued orders at the open of bar i.
func (b *broker) processOrders(i int) {
	price := b.bars[i].Open
	pending := b.orders
	b.orders = nil

	for _, o := range pending {
		if o.close {
			b.closeAll(i, price, ExitSignal)
			continue
		}

		if b.cfg.ExclusiveOrders {
			b.closeAll(i, price, ExitExclusive)
		}

		adjusted := price * (1 + b.cfg.Commission)
		var units float64
		if o.size < 1 {
			units = math.Floor(b.marginAvailable() * o.size / adjusted)
		} else {
			units = math.Floor(o.size)
		}
		if units <= 0 || units*adjusted > b.marginAvailable() {
			continue
		}

		b.open = append(b.open, openTrade{
			size:            units,
			entryPrice:      adjusted,
			entryBar:        i,
			entryCommission: units * price * b.cfg.Commission,
		})
	}
}

func (b *broker) closeAll(i int, price float64, reason string) {
	for _, t := range b.open {
		b.closeTrade(t, i, price, reason)
	}
	b.open = b.open[:0]
}

func (b *broker) closeTrade(t openTrade, i int, price float64, reason string) {
	exitPrice := price * (1 - b.cfg.Commission)
	pnl := t.size * (exitPrice - t.entryPrice)
	b.cash += pnl

	entry, exit := b.bars[t.entryBar], b.bars[i]
	b.closed = append(b.closed, Trade{
		Size:       t.size,
		EntryBar:   t.entryBar,
		ExitBar:    i,
		EntryTime:  entry.Time,
		ExitTime:   exit.Time,
		EntryPrice: t.entryPrice,
		ExitPrice:  exitPrice,
		PnL:        pnl,
		ReturnPct:  (exitPrice/t.entryPrice - 1) * 100,
		Commission: t.entryCommission + t.size*price*b.cfg.Commission,
		Duration:   Duration(exit.Time.Sub(entry.Time)),
		ExitReason: reason,
	})
}

// markEquity records account value at the close of bar i.
func (b *broker) markEquity(i int) {
	b.equity[i] = b.cash + b.position(b.bars[i].Close).PnL
}
