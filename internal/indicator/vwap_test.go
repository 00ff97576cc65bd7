package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
)

func TestVWAP(t *testing.T) {
	base := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)
	s := candle.Series{
		{Time: base, High: 12, Low: 8, Close: 10, Volume: 2},
		{Time: base.Add(15 * time.Minute), High: 22, Low: 18, Close: 20, Volume: 2},
	}

	got := VWAP(s)
	// Typical prices 10 and 20 at equal volume.
	if !approxEqual(got[0], 10) {
		t.Errorf("VWAP()[0] = %f, want 10", got[0])
	}
	if !approxEqual(got[1], 15) {
		t.Errorf("VWAP()[1] = %f, want 15", got[1])
	}
}

func TestVWAPWeightsByVolume(t *testing.T) {
	base := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)
	s := candle.Series{
		{Time: base, High: 12, Low: 8, Close: 10, Volume: 3},
		{Time: base.Add(15 * time.Minute), High: 22, Low: 18, Close: 20, Volume: 1},
	}
	got := VWAP(s)
	// (10*3 + 20*1) / 4
	if !approxEqual(got[1], 12.5) {
		t.Errorf("VWAP()[1] = %f, want 12.5", got[1])
	}
}

func TestVWAPZeroVolume(t *testing.T) {
	base := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)
	s := candle.Series{
		{Time: base, High: 12, Low: 8, Close: 10, Volume: 0},
		{Time: base.Add(15 * time.Minute), High: 22, Low: 18, Close: 20, Volume: 2},
	}
	got := VWAP(s)
	if !math.IsNaN(got[0]) {
		t.Errorf("VWAP()[0] = %f, want NaN before any volume", got[0])
	}
	if !approxEqual(got[1], 20) {
		t.Errorf("VWAP()[1] = %f, want 20", got[1])
	}
}
