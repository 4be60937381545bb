package dto

import (
	"fmt"
	"time"
)

const (
	Timeframe1Hour string = "1h"
	Timeframe4Hour string = "4h"
	Timeframe1Day  string = "1d"
	Timeframe1Week string = "1wk"

	YahooInterval60Min string = "60m"
	YahooInterval1Day  string = "1d"
	YahooInterval1Week string = "1wk"

	BinanceInterval1Hour string = "1h"
	BinanceInterval4Hour string = "4h"
	BinanceInterval1Day  string = "1d"
	BinanceInterval1Week string = "1w"
)

func GetTimeframeList() []string {
	return []string{Timeframe1Hour, Timeframe4Hour, Timeframe1Day, Timeframe1Week}
}

// YahooInterval maps a timeframe to the Yahoo chart interval. Yahoo has no 4h
// candles, so 4h is downloaded as 60m and resampled.
func YahooInterval(timeframe string) (string, error) {
	switch timeframe {
	case Timeframe1Hour, Timeframe4Hour:
		return YahooInterval60Min, nil
	case Timeframe1Day:
		return YahooInterval1Day, nil
	case Timeframe1Week:
		return YahooInterval1Week, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeframe, timeframe)
	}
}

func BinanceInterval(timeframe string) (string, error) {
	switch timeframe {
	case Timeframe1Hour:
		return BinanceInterval1Hour, nil
	case Timeframe4Hour:
		return BinanceInterval4Hour, nil
	case Timeframe1Day:
		return BinanceInterval1Day, nil
	case Timeframe1Week:
		return BinanceInterval1Week, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTimeframe, timeframe)
	}
}

// TimeframeDuration is the span of one candle.
func TimeframeDuration(timeframe string) time.Duration {
	switch timeframe {
	case Timeframe1Hour:
		return time.Hour
	case Timeframe4Hour:
		return 4 * time.Hour
	case Timeframe1Week:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

const (
	DefaultVolume = 1e6
	PreviewBars   = 5
)
