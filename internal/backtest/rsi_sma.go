package backtest

import (
	"fmt"
	"math"

	"golang-backtester/internal/indicator"
)

const RSISMAStrategyName = "rsi_sma"

// RSISMAParams configures RSISMAStrategy.
type RSISMAParams struct {
	RSIPeriod     int     `json:"rsi_period"`
	RSIOverbought float64 `json:"rsi_overbought"`
	RSIOversold   float64 `json:"rsi_oversold"`
	SMAFast       int     `json:"sma_fast"`
	SMASlow       int     `json:"sma_slow"`
	// PositionSize is the fraction of equity committed per entry.
	PositionSize float64 `json:"position_size"`
}

func DefaultRSISMAParams() RSISMAParams {
	return RSISMAParams{
		RSIPeriod:     14,
		RSIOverbought: 70,
		RSIOversold:   30,
		SMAFast:       50,
		SMASlow:       200,
		PositionSize:  0.95,
	}
}

func (p RSISMAParams) Validate() error {
	switch {
	case p.RSIPeriod < 2:
		return fmt.Errorf("%w: rsi_period must be at least 2, got %d", ErrInvalidParameter, p.RSIPeriod)
	case p.SMAFast < 2 || p.SMASlow < 2:
		return fmt.Errorf("%w: sma periods must be at least 2, got %d/%d", ErrInvalidParameter, p.SMAFast, p.SMASlow)
	case p.RSIOversold < 0 || p.RSIOverbought > 100:
		return fmt.Errorf("%w: rsi thresholds must be within 0..100", ErrInvalidParameter)
	case p.RSIOversold >= p.RSIOverbought:
		return fmt.Errorf("%w: rsi_oversold (%v) must be below rsi_overbought (%v)", ErrInvalidParameter, p.RSIOversold, p.RSIOverbought)
	case p.PositionSize <= 0 || p.PositionSize >= 1:
		return fmt.Errorf("%w: position_size must be a fraction in (0, 1), got %v", ErrInvalidParameter, p.PositionSize)
	}
	return nil
}

// AsMap flattens the parameters for reporting.
func (p RSISMAParams) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"rsi_period":     p.RSIPeriod,
		"rsi_overbought": p.RSIOverbought,
		"rsi_oversold":   p.RSIOversold,
		"sma_fast":       p.SMAFast,
		"sma_slow":       p.SMASlow,
		"position_size":  p.PositionSize,
	}
}

// RSISMAStrategy buys an oversold dip while the fast SMA is above the slow
// one and exits once RSI turns overbought.
type RSISMAStrategy struct {
	params  RSISMAParams
	rsi     indicator.Series
	smaFast indicator.Series
	smaSlow indicator.Series
}

func NewRSISMAStrategy(params RSISMAParams) (*RSISMAStrategy, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &RSISMAStrategy{params: params}, nil
}

func (s *RSISMAStrategy) Name() string {
	return RSISMAStrategyName
}

func (s *RSISMAStrategy) Init(sess *Session) error {
	closes := sess.Closes()

	rsi, err := indicator.RSI(closes, s.params.RSIPeriod)
	if err != nil {
		return err
	}
	smaFast, err := indicator.SMA(closes, s.params.SMAFast)
	if err != nil {
		return err
	}
	smaSlow, err := indicator.SMA(closes, s.params.SMASlow)
	if err != nil {
		return err
	}

	s.rsi = sess.I(fmt.Sprintf("RSI(%d)", s.params.RSIPeriod), rsi, false)
	s.smaFast = sess.I(fmt.Sprintf("SMA(%d)", s.params.SMAFast), smaFast, true)
	s.smaSlow = sess.I(fmt.Sprintf("SMA(%d)", s.params.SMASlow), smaSlow, true)
	return nil
}

func (s *RSISMAStrategy) Next(sess *Session) {
	i := sess.Index()
	rsi := s.rsi.At(i)
	if math.IsNaN(rsi) {
		return
	}

	if !sess.Position().IsOpen() {
		if rsi < s.params.RSIOversold && s.smaFast.At(i) > s.smaSlow.At(i) {
			sess.Buy(s.params.PositionSize)
		}
		return
	}

	if rsi > s.params.RSIOverbought {
		sess.ClosePosition()
	}
}
