package indicator

import (
	"testing"
	"time"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
)

func twoBars(prevOpen, prevClose, curOpen, curClose float64) candle.Series {
	base := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)
	mk := func(t time.Time, open, close float64) candle.Candle {
		high := open
		if close > high {
			high = close
		}
		low := open
		if close < low {
			low = close
		}
		return candle.Candle{Time: t, Open: open, High: high, Low: low, Close: close, Volume: 10}
	}
	return candle.Series{
		mk(base, prevOpen, prevClose),
		mk(base.Add(15*time.Minute), curOpen, curClose),
	}
}

func TestEngulfing(t *testing.T) {
	tests := []struct {
		name string
		s    candle.Series
		want EngulfingType
	}{
		{"bullish engulfing", twoBars(105, 103, 102.5, 105.5), EngulfingBullish},
		{"bearish engulfing", twoBars(103, 105, 105.5, 102.5), EngulfingBearish},
		{"inside bar", twoBars(103, 105, 103.5, 104.5), EngulfingNone},
		{"same direction bars", twoBars(100, 102, 101, 103), EngulfingNone},
		{"body not contained", twoBars(105, 103, 103.5, 104.5), EngulfingNone},
		{"single bar", twoBars(105, 103, 102.5, 105.5)[1:], EngulfingNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Engulfing(tt.s); got != tt.want {
				t.Errorf("Engulfing() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestVolumeConfirmation(t *testing.T) {
	base := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)
	series := func(volumes ...float64) candle.Series {
		s := make(candle.Series, len(volumes))
		for i, v := range volumes {
			s[i] = candle.Candle{
				Time: base.Add(time.Duration(i) * 15 * time.Minute),
				Open: 100, High: 101, Low: 99, Close: 100, Volume: v,
			}
		}
		return s
	}

	tests := []struct {
		name string
		s    candle.Series
		want bool
	}{
		{"spike above average", series(10, 10, 10, 20), true},
		{"equal to average", series(10, 10, 10), false},
		{"below average", series(20, 20, 20, 5), false},
		{"insufficient history", series(10, 20), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VolumeConfirmation(tt.s, 3); got != tt.want {
				t.Errorf("VolumeConfirmation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRMultiple(t *testing.T) {
	tests := []struct {
		name              string
		entry, exit, stop float64
		side              candle.Side
		want              float64
	}{
		{"long winner", 100, 104, 98, candle.Long, 2},
		{"long loser", 100, 98, 98, candle.Long, -1},
		{"short winner", 100, 96, 102, candle.Short, 2},
		{"short loser", 100, 102, 102, candle.Short, -1},
		{"flat exit", 100, 100, 98, candle.Long, 0},
		{"degenerate long stop", 100, 104, 100, candle.Long, 0},
		{"degenerate short stop", 100, 96, 100, candle.Short, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMultiple(tt.entry, tt.exit, tt.stop, tt.side)
			if !approxEqual(got, tt.want) {
				t.Errorf("RMultiple() = %f, want %f", got, tt.want)
			}
		})
	}
}
