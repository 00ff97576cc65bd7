package indicator

import (
	"math"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
)

// OpeningRangeHigh returns the highest high of the candles whose
// time-of-day falls in the half-open [startHour, endHour) UTC window,
// independent of date. NaN when no candle falls in the window.
func OpeningRangeHigh(s candle.Series, startHour, endHour int) float64 {
	high := math.NaN()
	for _, c := range s {
		h := c.Time.UTC().Hour()
		if h < startHour || h >= endHour {
			continue
		}
		if math.IsNaN(high) || c.High > high {
			high = c.High
		}
	}
	return high
}

// OpeningRangeLow returns the lowest low of the candles whose time-of-day
// falls in the half-open [startHour, endHour) UTC window. NaN when no
// candle falls in the window.
func OpeningRangeLow(s candle.Series, startHour, endHour int) float64 {
	low := math.NaN()
	for _, c := range s {
		h := c.Time.UTC().Hour()
		if h < startHour || h >= endHour {
			continue
		}
		if math.IsNaN(low) || c.Low < low {
			low = c.Low
		}
	}
	return low
}

// Breakout reports whether the latest close has broken the opening range:
// above orbHigh for a long, below orbLow for a short.
func Breakout(s candle.Series, orbHigh, orbLow float64, side candle.Side) bool {
	lastBar, ok := s.Last()
	if !ok {
		return false
	}
	switch side {
	case candle.Long:
		return lastBar.Close > orbHigh
	case candle.Short:
		return lastBar.Close < orbLow
	default:
		return false
	}
}
