package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
)

func orbFixture() candle.Series {
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return candle.Series{
		{Time: day.Add(10*time.Hour + 45*time.Minute), High: 120, Low: 80, Close: 100},
		{Time: day.Add(11 * time.Hour), High: 105, Low: 98, Close: 104},
		{Time: day.Add(11*time.Hour + 30*time.Minute), High: 107, Low: 101, Close: 106},
		{Time: day.Add(12 * time.Hour), High: 115, Low: 105, Close: 112},
	}
}

func TestOpeningRange(t *testing.T) {
	s := orbFixture()

	// The bar before 11:00 and the bar at 12:00 are outside the window.
	if high := OpeningRangeHigh(s, 11, 12); !approxEqual(high, 107) {
		t.Errorf("OpeningRangeHigh() = %f, want 107", high)
	}
	if low := OpeningRangeLow(s, 11, 12); !approxEqual(low, 98) {
		t.Errorf("OpeningRangeLow() = %f, want 98", low)
	}
}

func TestOpeningRangeEmptyWindow(t *testing.T) {
	s := orbFixture()
	if high := OpeningRangeHigh(s, 3, 4); !math.IsNaN(high) {
		t.Errorf("OpeningRangeHigh() = %f, want NaN for an empty window", high)
	}
	if low := OpeningRangeLow(s, 3, 4); !math.IsNaN(low) {
		t.Errorf("OpeningRangeLow() = %f, want NaN for an empty window", low)
	}
}

func TestBreakout(t *testing.T) {
	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	series := func(close float64) candle.Series {
		return candle.Series{{Time: now, High: close + 1, Low: close - 1, Close: close}}
	}

	tests := []struct {
		name string
		s    candle.Series
		side candle.Side
		want bool
	}{
		{"long breakout", series(108), candle.Long, true},
		{"long at range high", series(107), candle.Long, false},
		{"short breakout", series(97), candle.Short, true},
		{"short at range low", series(98), candle.Short, false},
		{"inside range", series(100), candle.Long, false},
		{"neutral side", series(200), Neutral, false},
		{"empty series", nil, candle.Long, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Breakout(tt.s, 107, 98, tt.side); got != tt.want {
				t.Errorf("Breakout() = %v, want %v", got, tt.want)
			}
		})
	}
}
