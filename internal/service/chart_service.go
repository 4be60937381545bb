package service

import (
	"context"
	"fmt"
	"io"
	"math"

	"golang-backtester/internal/backtest"
	"golang-backtester/pkg/logger"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	chartWidth      = "1400px"
	chartTimeLayout = "2006-01-02 15:04"
)

// ChartService renders a saved run as an interactive HTML page.
type ChartService interface {
	Render(ctx context.Context, runID uint, w io.Writer) error
}

type chartService struct {
	log             *logger.Logger
	backtestService BacktestService
}

func NewChartService(log *logger.Logger, backtestService BacktestService) ChartService {
	return &chartService{
		log:             log,
		backtestService: backtestService,
	}
}

func (s *chartService) Render(ctx context.Context, runID uint, w io.Writer) error {
	replay, err := s.backtestService.Replay(ctx, runID)
	if err != nil {
		return err
	}

	title := fmt.Sprintf("%s %s (%s to %s)", replay.Run.Symbol, replay.Run.Timeframe, replay.Run.StartDate, replay.Run.EndDate)
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(
		priceChart(title, replay.Result),
		equityChart(replay.Result),
	)

	if err := page.Render(w); err != nil {
		s.log.ErrorContext(ctx, "Failed to render chart", logger.ErrorField(err), logger.RunIDField(runID))
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

func xAxis(bars []backtest.Bar) []string {
	x := make([]string, len(bars))
	for i, bar := range bars {
		x[i] = bar.Time.Format(chartTimeLayout)
	}
	return x
}

// priceChart draws candlesticks with the overlay indicators and trade markers.
func priceChart(title string, result *backtest.Result) *charts.Kline {
	bars := result.Bars
	x := xAxis(bars)

	kline := charts.NewKLine()
	kline.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  chartWidth,
			Height: "600px",
			Theme:  types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: true}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Start:      0,
			End:        100,
			Throttle:   16.666,
			XAxisIndex: []int{0},
			Type:       "slider",
		}),
	)

	candles := make([]opts.KlineData, len(bars))
	for i, bar := range bars {
		candles[i] = opts.KlineData{Value: []float64{bar.Open, bar.Close, bar.Low, bar.High}}
	}
	kline.SetXAxis(x).
		AddSeries("Price", candles).
		SetSeriesOptions(
			charts.WithItemStyleOpts(opts.ItemStyle{
				Color:        "#26a69a",
				Color0:       "#ef5350",
				BorderColor:  "#26a69a",
				BorderColor0: "#ef5350",
			}),
		)

	overlays := charts.NewLine()
	for _, ind := range result.Indicators {
		if !ind.Overlay {
			continue
		}
		overlays.AddSeries(ind.Name, lineData(ind.Series))
	}
	overlays.SetXAxis(x)
	kline.Overlap(overlays)

	buys := make([]opts.ScatterData, len(bars))
	sells := make([]opts.ScatterData, len(bars))
	for i := range bars {
		buys[i] = opts.ScatterData{SymbolSize: 0}
		sells[i] = opts.ScatterData{SymbolSize: 0}
	}
	for _, trade := range result.Trades {
		buys[trade.EntryBar] = opts.ScatterData{
			Value:      trade.EntryPrice,
			Symbol:     "triangle",
			SymbolSize: 14,
			Name:       fmt.Sprintf("buy %.0f", trade.Size),
		}
		sells[trade.ExitBar] = opts.ScatterData{
			Value:        trade.ExitPrice,
			Symbol:       "triangle",
			SymbolSize:   14,
			SymbolRotate: 180,
			Name:         fmt.Sprintf("sell %.0f (%+.2f%%)", trade.Size, trade.ReturnPct),
		}
	}

	buyMarkers := charts.NewScatter()
	buyMarkers.SetXAxis(x).
		AddSeries("Buy", buys).
		SetSeriesOptions(charts.WithItemStyleOpts(opts.ItemStyle{Color: "#2e7d32"}))
	sellMarkers := charts.NewScatter()
	sellMarkers.SetXAxis(x).
		AddSeries("Sell", sells).
		SetSeriesOptions(charts.WithItemStyleOpts(opts.ItemStyle{Color: "#c62828"}))
	kline.Overlap(buyMarkers, sellMarkers)

	return kline
}

func equityChart(result *backtest.Result) *charts.Line {
	x := make([]string, len(result.Equity))
	equity := make([]opts.LineData, len(result.Equity))
	drawdown := make([]opts.LineData, len(result.Equity))
	for i, point := range result.Equity {
		x[i] = point.Time.Format(chartTimeLayout)
		equity[i] = opts.LineData{Value: math.Round(point.Equity*100) / 100}
		drawdown[i] = opts.LineData{Value: math.Round(point.DrawdownPct*100) / 100, YAxisIndex: 1}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:  chartWidth,
			Height: "300px",
			Theme:  types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Equity"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: true, Trigger: "axis"}),
		charts.WithYAxisOpts(opts.YAxis{Scale: true}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
			Type:       "inside",
		}),
	)
	line.ExtendYAxis(opts.YAxis{Name: "Drawdown %", Scale: true})
	line.SetXAxis(x).
		AddSeries("Equity", equity).
		AddSeries("Drawdown [%]", drawdown)
	return line
}

// lineData maps NaN warm-up values to gaps.
func lineData(series []float64) []opts.LineData {
	data := make([]opts.LineData, len(series))
	for i, v := range series {
		if math.IsNaN(v) {
			data[i] = opts.LineData{Value: "-"}
			continue
		}
		data[i] = opts.LineData{Value: math.Round(v*10000) / 10000}
	}
	return data
}
