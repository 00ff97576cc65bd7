package indicator

import (
	"math"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
)

// TrueRange returns the per-bar true range series. The first bar has no
// previous close and is NaN.
func TrueRange(s candle.Series) []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		prevClose := s[i-1].Close
		hl := c.High - c.Low
		hc := math.Abs(c.High - prevClose)
		lc := math.Abs(c.Low - prevClose)
		out[i] = math.Max(hl, math.Max(hc, lc))
	}
	return out
}

// ATR returns the rolling mean of the true range over period bars.
// Positions without period finite true-range values are NaN.
func ATR(s candle.Series, period int) []float64 {
	return rollingMean(TrueRange(s), period)
}

// ADX returns the average directional index computed from smoothed
// directional movement and ATR. It is NaN until roughly 2×period bars
// of history have accumulated.
func ADX(s candle.Series, period int) []float64 {
	n := len(s)
	tr := TrueRange(s)
	dmPlus := make([]float64, n)
	dmMinus := make([]float64, n)
	for i := 1; i < n; i++ {
		up := s[i].High - s[i-1].High
		down := s[i-1].Low - s[i].Low
		if up > down && up > 0 {
			dmPlus[i] = up
		}
		if down > up && down > 0 {
			dmMinus[i] = down
		}
	}

	atr := rollingMean(tr, period)
	plusSmooth := rollingMean(dmPlus, period)
	minusSmooth := rollingMean(dmMinus, period)

	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		if math.IsNaN(atr[i]) || atr[i] == 0 {
			dx[i] = math.NaN()
			continue
		}
		diPlus := 100 * plusSmooth[i] / atr[i]
		diMinus := 100 * minusSmooth[i] / atr[i]
		sum := diPlus + diMinus
		if sum == 0 {
			dx[i] = math.NaN()
			continue
		}
		dx[i] = 100 * math.Abs(diPlus-diMinus) / sum
	}
	return rollingMean(dx, period)
}

// rollingMean averages values over a trailing window of period elements.
// A window containing NaN, or with fewer than period elements, yields NaN.
func rollingMean(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period < 1 {
		period = 1
	}
	for i := range values {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		valid := true
		for j := i - period + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				valid = false
				break
			}
			sum += values[j]
		}
		if !valid {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(period)
	}
	return out
}
