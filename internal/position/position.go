// Package position holds the state of the single open trade slot.
package position

import (
	"fmt"
	"time"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
)

// Exit reasons recorded on closed trades.
const (
	ReasonStopLoss   = "stop_loss"
	ReasonTakeProfit = "take_profit"
	ReasonBreakEven  = "break_even"
	ReasonSessionEnd = "session_end"
	ReasonError      = "error"
)

// OpenTrade is the one live position of a trading day. StopLoss is the
// only mutable price level: the break-even logic moves it to the entry
// price exactly once, never away from it.
type OpenTrade struct {
	EntryTime  time.Time
	Side       candle.Side
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Size       float64
	Strategy   string

	// InitialStop preserves the stop as placed at entry, so outcome
	// reporting in risk multiples survives the break-even adjustment.
	InitialStop float64

	// BreakEvenApplied is set once a +1R favorable close has moved the
	// stop to the entry price.
	BreakEvenApplied bool
}

// RiskDistance returns the entry-to-stop distance in price units.
func (t *OpenTrade) RiskDistance() float64 {
	if t.Side == candle.Long {
		return t.EntryPrice - t.StopLoss
	}
	return t.StopLoss - t.EntryPrice
}

// BreakEvenTrigger returns the price level representing a +1R favorable
// move from entry, based on the current stop distance.
func (t *OpenTrade) BreakEvenTrigger() float64 {
	if t.Side == candle.Long {
		return t.EntryPrice + t.RiskDistance()
	}
	return t.EntryPrice - t.RiskDistance()
}

// ApplyBreakEven moves the stop to the entry price and marks the trade.
// It is a no-op once applied.
func (t *OpenTrade) ApplyBreakEven() {
	if t.BreakEvenApplied {
		return
	}
	t.StopLoss = t.EntryPrice
	t.BreakEvenApplied = true
}

// String returns a compact representation for logging.
func (t *OpenTrade) String() string {
	return fmt.Sprintf("OpenTrade{%s %s entry=%.2f sl=%.2f tp=%.2f size=%.4f}",
		t.Side, t.Strategy, t.EntryPrice, t.StopLoss, t.TakeProfit, t.Size)
}
