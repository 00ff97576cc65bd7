package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
)

// stairSeries rises one point per bar with a constant bar shape, which
// gives a constant true range of 1.5 and pure +DM directional movement.
func stairSeries(n int) candle.Series {
	base := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)
	s := make(candle.Series, n)
	for i := range s {
		price := 100.0 + float64(i)
		s[i] = candle.Candle{
			Time:   base.Add(time.Duration(i) * 15 * time.Minute),
			Open:   price,
			High:   price + 1,
			Low:    price - 0.5,
			Close:  price + 0.5,
			Volume: 10,
		}
	}
	return s
}

func TestTrueRange(t *testing.T) {
	s := stairSeries(3)
	tr := TrueRange(s)

	if !math.IsNaN(tr[0]) {
		t.Errorf("TrueRange()[0] = %f, want NaN", tr[0])
	}
	// hl = 1.5, |high - prevClose| = 1.5, |low - prevClose| = 0.
	for i := 1; i < len(tr); i++ {
		if !approxEqual(tr[i], 1.5) {
			t.Errorf("TrueRange()[%d] = %f, want 1.5", i, tr[i])
		}
	}
}

func TestTrueRangeGap(t *testing.T) {
	base := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)
	s := candle.Series{
		{Time: base, Open: 100, High: 101, Low: 99, Close: 100},
		// Gap down: the range to the previous close dominates hl.
		{Time: base.Add(15 * time.Minute), Open: 95, High: 96, Low: 94, Close: 95},
	}
	tr := TrueRange(s)
	if !approxEqual(tr[1], 6) {
		t.Errorf("TrueRange()[1] = %f, want 6", tr[1])
	}
}

func TestATR(t *testing.T) {
	s := stairSeries(4)
	atr := ATR(s, 2)

	for i := 0; i < 2; i++ {
		if !math.IsNaN(atr[i]) {
			t.Errorf("ATR()[%d] = %f, want NaN during warm-up", i, atr[i])
		}
	}
	for i := 2; i < len(atr); i++ {
		if !approxEqual(atr[i], 1.5) {
			t.Errorf("ATR()[%d] = %f, want 1.5", i, atr[i])
		}
	}
}

func TestADX(t *testing.T) {
	s := stairSeries(6)
	adx := ADX(s, 2)

	// Warm-up is roughly 2x the period: the smoothed DX needs period
	// finite DX values, each of which needs period finite true ranges.
	for i := 0; i < 3; i++ {
		if !math.IsNaN(adx[i]) {
			t.Errorf("ADX()[%d] = %f, want NaN during warm-up", i, adx[i])
		}
	}
	// A one-directional stair has only +DM, so DX is pinned at 100.
	for i := 3; i < len(adx); i++ {
		if !approxEqual(adx[i], 100) {
			t.Errorf("ADX()[%d] = %f, want 100", i, adx[i])
		}
	}
}

func TestADXFlatMarket(t *testing.T) {
	base := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)
	s := make(candle.Series, 8)
	for i := range s {
		s[i] = candle.Candle{
			Time: base.Add(time.Duration(i) * 15 * time.Minute),
			Open: 100, High: 100.5, Low: 99.5, Close: 100, Volume: 10,
		}
	}
	adx := ADX(s, 2)
	// No directional movement at all: DI+ and DI- are both zero and DX
	// is undefined.
	for i, v := range adx {
		if !math.IsNaN(v) {
			t.Errorf("ADX()[%d] = %f, want NaN on a flat market", i, v)
		}
	}
}

func TestRollingMeanPropagatesNaN(t *testing.T) {
	values := []float64{math.NaN(), 2, 4, 6}
	got := rollingMean(values, 2)

	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Errorf("rollingMean() = %v, want NaN while the window touches a NaN", got[:2])
	}
	if !approxEqual(got[2], 3) || !approxEqual(got[3], 5) {
		t.Errorf("rollingMean() = %v, want [3 5] once the window is clean", got[2:])
	}
}
