// Package indicator provides the stateless numeric building blocks of the
// strategy: moving averages, range/trend measures, VWAP, opening-range
// levels, candlestick patterns and session-window predicates.
//
// Insufficient history is signalled with math.NaN() rather than an error;
// callers treat NaN as "no signal".
package indicator

import (
	"math"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
)

// EMA returns the exponential moving average of values with smoothing
// factor 2/(period+1). The first output is seeded with the first
// observation, so there is no lookback gap.
func EMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	if period <= 1 {
		copy(out, values)
		return out
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// SMA returns the simple moving average of values. Positions with fewer
// than period observations are NaN.
func SMA(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period < 1 {
		period = 1
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// last returns the final element of a series, or NaN when empty.
func last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// MacroBias classifies the higher-timeframe trend. It returns Long when
// the close is above the EMA200 and the EMA50 is above the EMA200, Short
// when both are inverted, and the empty side ("neutral") otherwise or when
// fewer than 200 bars are available.
func MacroBias(htf candle.Series) candle.Side {
	const minBars = 200
	if len(htf) < minBars {
		return Neutral
	}
	closes := htf.Closes()
	ema200 := last(EMA(closes, 200))
	ema50 := last(EMA(closes, 50))
	price := closes[len(closes)-1]
	switch {
	case price > ema200 && ema50 > ema200:
		return candle.Long
	case price < ema200 && ema50 < ema200:
		return candle.Short
	default:
		return Neutral
	}
}

// Neutral is the macro-bias value when neither direction dominates.
const Neutral candle.Side = "neutral"
