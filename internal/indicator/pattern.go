package indicator

import (
	"math"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
)

// EngulfingType classifies the last two bars of a window.
type EngulfingType int

const (
	EngulfingNone EngulfingType = iota
	EngulfingBullish
	EngulfingBearish
)

func (e EngulfingType) String() string {
	switch e {
	case EngulfingBullish:
		return "bullish"
	case EngulfingBearish:
		return "bearish"
	default:
		return "none"
	}
}

// Engulfing checks the last two bars for a bullish or bearish engulfing
// pattern using strict body containment.
func Engulfing(s candle.Series) EngulfingType {
	if len(s) < 2 {
		return EngulfingNone
	}
	prev := s[len(s)-2]
	cur := s[len(s)-1]

	if cur.Close > cur.Open && prev.Close < prev.Open &&
		cur.Open < prev.Close && cur.Close > prev.Open {
		return EngulfingBullish
	}
	if cur.Close < cur.Open && prev.Close > prev.Open &&
		cur.Open > prev.Close && cur.Close < prev.Open {
		return EngulfingBearish
	}
	return EngulfingNone
}

// VolumeConfirmation reports whether the latest volume exceeds the
// period-bar simple moving average of volume. False when fewer than
// period bars are available.
func VolumeConfirmation(s candle.Series, period int) bool {
	if len(s) < period {
		return false
	}
	avg := last(SMA(s.Volumes(), period))
	if math.IsNaN(avg) {
		return false
	}
	return s[len(s)-1].Volume > avg
}

// RMultiple expresses a trade outcome as a multiple of the initial risk
// (the entry-to-stop distance). The result is signed: positive when the
// trade moved in the favorable direction. Returns 0 on a degenerate stop.
func RMultiple(entry, exit, stop float64, side candle.Side) float64 {
	if side == candle.Long {
		risk := entry - stop
		if risk == 0 {
			return 0
		}
		return (exit - entry) / risk
	}
	risk := stop - entry
	if risk == 0 {
		return 0
	}
	return (entry - exit) / risk
}
