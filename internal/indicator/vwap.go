package indicator

import (
	"math"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
)

// VWAP returns the cumulative volume-weighted average price of the
// supplied window. The anchor is the first candle of the window, so
// callers must bound the window to the desired anchor (typically the
// session start). Positions with zero cumulative volume are NaN.
func VWAP(s candle.Series) []float64 {
	out := make([]float64, len(s))
	var pv, vol float64
	for i, c := range s {
		typical := (c.High + c.Low + c.Close) / 3.0
		pv += typical * c.Volume
		vol += c.Volume
		if vol == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = pv / vol
	}
	return out
}
