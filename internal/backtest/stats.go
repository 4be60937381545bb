package backtest

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// Stats summarizes a run. Pointer fields are nil when the metric is
// undefined, e.g. win rate without trades or profit factor without losers.
type Stats struct {
	Start               time.Time `json:"start"`
	End                 time.Time `json:"end"`
	Duration            Duration  `json:"duration"`
	ExposureTimePct     float64   `json:"exposure_time_pct"`
	EquityFinal         float64   `json:"equity_final"`
	EquityPeak          float64   `json:"equity_peak"`
	ReturnPct           float64   `json:"return_pct"`
	BuyAndHoldReturnPct float64   `json:"buy_and_hold_return_pct"`
	ReturnAnnPct        *float64  `json:"return_ann_pct"`
	VolatilityAnnPct    *float64  `json:"volatility_ann_pct"`
	SharpeRatio         *float64  `json:"sharpe_ratio"`
	MaxDrawdownPct      float64   `json:"max_drawdown_pct"`
	AvgDrawdownPct      *float64  `json:"avg_drawdown_pct"`
	MaxDrawdownDuration *Duration `json:"max_drawdown_duration"`
	AvgDrawdownDuration *Duration `json:"avg_drawdown_duration"`
	Trades              int       `json:"trades"`
	WinRatePct          *float64  `json:"win_rate_pct"`
	BestTradePct        *float64  `json:"best_trade_pct"`
	WorstTradePct       *float64  `json:"worst_trade_pct"`
	AvgTradePct         *float64  `json:"avg_trade_pct"`
	MaxTradeDuration    *Duration `json:"max_trade_duration"`
	AvgTradeDuration    *Duration `json:"avg_trade_duration"`
	ProfitFactor        *float64  `json:"profit_factor"`
	ExpectancyPct       *float64  `json:"expectancy_pct"`
	Commissions         float64   `json:"commissions"`
}

func optional(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func optionalDuration(d time.Duration) *Duration {
	v := Duration(d)
	return &v
}

// negate avoids reporting -0 for an untouched drawdown
func negate(v float64) float64 {
	if v == 0 {
		return 0
	}
	return -v
}

func computeStats(bars []Bar, equity []float64, trades []Trade) Stats {
	first, last := bars[0], bars[len(bars)-1]
	stats := Stats{
		Start:               first.Time,
		End:                 last.Time,
		Duration:            Duration(last.Time.Sub(first.Time)),
		EquityFinal:         equity[len(equity)-1],
		ReturnPct:           (equity[len(equity)-1] - equity[0]) / equity[0] * 100,
		BuyAndHoldReturnPct: (last.Close - first.Close) / first.Close * 100,
		Trades:              len(trades),
	}

	for _, eq := range equity {
		stats.EquityPeak = math.Max(stats.EquityPeak, eq)
	}

	stats.ExposureTimePct = exposure(len(bars), trades)

	dd := drawdown(equity)
	maxDD := 0.0
	for _, v := range dd {
		maxDD = math.Max(maxDD, v)
	}
	stats.MaxDrawdownPct = negate(maxDD * 100)

	if periods := drawdownPeriods(bars, dd); len(periods) > 0 {
		var sumPeak float64
		var sumDur, maxDur time.Duration
		for _, p := range periods {
			sumPeak += p.peak
			sumDur += p.duration
			if p.duration > maxDur {
				maxDur = p.duration
			}
		}
		stats.AvgDrawdownPct = optional(negate(sumPeak / float64(len(periods)) * 100))
		stats.MaxDrawdownDuration = optionalDuration(maxDur)
		stats.AvgDrawdownDuration = optionalDuration(sumDur / time.Duration(len(periods)))
	}

	returnAnn, volAnn := annualized(bars, equity)
	stats.ReturnAnnPct = optional(returnAnn * 100)
	stats.VolatilityAnnPct = optional(volAnn * 100)
	if volAnn > 0 {
		stats.SharpeRatio = optional(returnAnn / volAnn)
	}

	if len(trades) == 0 {
		return stats
	}

	var (
		wins             int
		gross, grossLoss float64
		sumReturn        float64
		sumDur, maxDur   time.Duration
	)
	best, worst := math.Inf(-1), math.Inf(1)
	returns := make([]float64, 0, len(trades))
	for _, t := range trades {
		stats.Commissions += t.Commission
		if t.PnL > 0 {
			wins++
		}
		r := t.ReturnPct / 100
		returns = append(returns, r)
		sumReturn += r
		if r > 0 {
			gross += r
		} else if r < 0 {
			grossLoss -= r
		}
		best = math.Max(best, t.ReturnPct)
		worst = math.Min(worst, t.ReturnPct)
		sumDur += t.Duration.Std()
		if t.Duration.Std() > maxDur {
			maxDur = t.Duration.Std()
		}
	}

	n := float64(len(trades))
	stats.WinRatePct = optional(float64(wins) / n * 100)
	stats.BestTradePct = optional(best)
	stats.WorstTradePct = optional(worst)
	stats.AvgTradePct = optional(geometricMean(returns) * 100)
	stats.MaxTradeDuration = optionalDuration(maxDur)
	stats.AvgTradeDuration = optionalDuration(sumDur / time.Duration(len(trades)))
	stats.ExpectancyPct = optional(sumReturn / n * 100)
	if grossLoss > 0 {
		stats.ProfitFactor = optional(gross / grossLoss)
	}
	return stats
}

// exposure is the share of bars with an open position, in percent.
func exposure(n int, trades []Trade) float64 {
	held := make([]bool, n)
	for _, t := range trades {
		for i := t.EntryBar; i <= t.ExitBar && i < n; i++ {
			held[i] = true
		}
	}
	count := 0
	for _, h := range held {
		if h {
			count++
		}
	}
	return float64(count) / float64(n) * 100
}

// drawdown is the fractional distance of each equity value below its running peak.
func drawdown(equity []float64) []float64 {
	out := make([]float64, len(equity))
	peak := math.Inf(-1)
	for i, eq := range equity {
		peak = math.Max(peak, eq)
		if peak > 0 {
			out[i] = 1 - eq/peak
		}
	}
	return out
}

type drawdownPeriod struct {
	duration time.Duration
	peak     float64
}

// drawdownPeriods splits dd into stretches between two bars at a running
// peak. A drawdown still open at the last bar ends there.
func drawdownPeriods(bars []Bar, dd []float64) []drawdownPeriod {
	var marks []int
	for i, v := range dd {
		if v == 0 {
			marks = append(marks, i)
		}
	}
	if len(marks) == 0 || marks[len(marks)-1] != len(dd)-1 {
		marks = append(marks, len(dd)-1)
	}

	var periods []drawdownPeriod
	for k := 1; k < len(marks); k++ {
		prev, cur := marks[k-1], marks[k]
		if cur <= prev+1 {
			continue
		}
		peak := 0.0
		for i := prev; i <= cur; i++ {
			peak = math.Max(peak, dd[i])
		}
		periods = append(periods, drawdownPeriod{
			duration: bars[cur].Time.Sub(bars[prev].Time),
			peak:     peak,
		})
	}
	return periods
}

// geometricMean of fractional returns, 0 when any return wipes out capital.
func geometricMean(returns []float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	logs := make([]float64, len(returns))
	for i, r := range returns {
		if math.IsNaN(r) {
			r = 0
		}
		if 1+r <= 0 {
			return 0
		}
		logs[i] = math.Log1p(r)
	}
	return math.Expm1(stat.Mean(logs, nil))
}

// annualized derives yearly return and volatility from end-of-day equity.
// Calendars with weekend bars (crypto) count 365 trading days, others 252.
func annualized(bars []Bar, equity []float64) (float64, float64) {
	var daily []float64
	var lastDay time.Time
	weekend := 0
	for i, bar := range bars {
		day := time.Date(bar.Time.Year(), bar.Time.Month(), bar.Time.Day(), 0, 0, 0, 0, time.UTC)
		if wd := bar.Time.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekend++
		}
		if len(daily) > 0 && day.Equal(lastDay) {
			daily[len(daily)-1] = equity[i]
			continue
		}
		daily = append(daily, equity[i])
		lastDay = day
	}

	// the first day has no previous value and counts as a flat day
	returns := make([]float64, len(daily))
	for i := 1; i < len(daily); i++ {
		returns[i] = daily[i]/daily[i-1] - 1
	}

	tradingDays := 252.0
	if float64(weekend)/float64(len(bars)) > 2.0/7*0.6 {
		tradingDays = 365
	}

	gmean := geometricMean(returns)
	annReturn := math.Pow(1+gmean, tradingDays) - 1

	variance := sampleVariance(returns[1:])
	if math.IsNaN(variance) {
		return annReturn, math.NaN()
	}
	annVol := math.Sqrt(math.Pow(variance+math.Pow(1+gmean, 2), tradingDays) - math.Pow(1+gmean, 2*tradingDays))
	return annReturn, annVol
}

func sampleVariance(values []float64) float64 {
	if len(values) < 2 {
		return math.NaN()
	}
	return stat.Variance(values, nil)
}
