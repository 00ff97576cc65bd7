package position

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
)

func TestRiskDistance(t *testing.T) {
	long := &OpenTrade{Side: candle.Long, EntryPrice: 100, StopLoss: 98, InitialStop: 98}
	assert.Equal(t, 2.0, long.RiskDistance())

	short := &OpenTrade{Side: candle.Short, EntryPrice: 100, StopLoss: 103, InitialStop: 103}
	assert.Equal(t, 3.0, short.RiskDistance())
}

func TestBreakEvenTrigger(t *testing.T) {
	long := &OpenTrade{Side: candle.Long, EntryPrice: 100, StopLoss: 98, InitialStop: 98}
	assert.Equal(t, 102.0, long.BreakEvenTrigger())

	short := &OpenTrade{Side: candle.Short, EntryPrice: 100, StopLoss: 103, InitialStop: 103}
	assert.Equal(t, 97.0, short.BreakEvenTrigger())
}

func TestApplyBreakEven(t *testing.T) {
	tr := &OpenTrade{Side: candle.Long, EntryPrice: 100, StopLoss: 98, InitialStop: 98}

	tr.ApplyBreakEven()
	assert.True(t, tr.BreakEvenApplied)
	assert.Equal(t, 100.0, tr.StopLoss)
	assert.Equal(t, 98.0, tr.InitialStop, "initial stop is preserved")

	// Applying again must not move the stop.
	tr.StopLoss = 99 // simulate external mutation
	tr.ApplyBreakEven()
	assert.Equal(t, 99.0, tr.StopLoss)
}

func TestString(t *testing.T) {
	tr := &OpenTrade{Side: candle.Long, Strategy: "orb", EntryPrice: 100, StopLoss: 98, TakeProfit: 104, Size: 0.5}
	s := tr.String()
	assert.Contains(t, s, "long")
	assert.Contains(t, s, "orb")
}
