// Package engine runs the day-by-day trade simulation over a candle
// history and produces the trade ledger.
package engine

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
	"github.com/your-org/btc-1tpd-backtester/internal/config"
	"github.com/your-org/btc-1tpd-backtester/internal/indicator"
	"github.com/your-org/btc-1tpd-backtester/internal/position"
	"github.com/your-org/btc-1tpd-backtester/internal/signal"
)

// minHistoryBars is the minimum low-timeframe history required before a
// candle is evaluated for entries. It covers the ADX warm-up with margin.
const minHistoryBars = 50

// ErrNoData is returned when the simulation is started without candles.
var ErrNoData = errors.New("engine: no candle data")

// TradeRecord is one closed trade in the ledger.
type TradeRecord struct {
	ID           uuid.UUID
	DayKey       string
	EntryTime    time.Time
	Side         candle.Side
	EntryPrice   float64
	StopLoss     float64
	TakeProfit   float64
	ExitTime     time.Time
	ExitPrice    float64
	ExitReason   string
	PnL          float64
	PositionSize float64
	Strategy     string
	UsedFallback bool
	RMultiple    float64
}

// Result is the outcome of a full simulation run.
type Result struct {
	Trades      []TradeRecord
	DaysTotal   int
	DaysTraded  int
	SkippedDays []string
}

// Simulator replays a candle history one day at a time, opening at most
// the configured number of trades per day and closing them on stop loss,
// take profit, break-even or session end.
type Simulator struct {
	engine  *signal.Engine
	session config.SessionConfig
	logger  *zap.Logger
}

// NewSimulator wires a signal engine into a day-loop simulator.
func NewSimulator(strategyCfg config.StrategyConfig, sessionCfg config.SessionConfig, logger *zap.Logger) (*Simulator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	eng, err := signal.NewEngine(strategyCfg, sessionCfg, logger)
	if err != nil {
		return nil, err
	}
	return &Simulator{engine: eng, session: sessionCfg, logger: logger}, nil
}

// Run simulates every calendar day present in the low-timeframe series.
// The series is sorted and deduplicated before grouping. A panic while
// processing one day is recovered, logged and recorded as a skipped day;
// the remaining days still run.
func (s *Simulator) Run(ltf, htf candle.Series) (*Result, error) {
	if len(ltf) == 0 {
		return nil, ErrNoData
	}

	sorted := ltf.Sort()
	htfSorted := htf.Sort()
	days := sorted.GroupByDay()

	res := &Result{DaysTotal: len(days)}
	for _, day := range days {
		trades, err := s.runDay(sorted, htfSorted, day)
		if err != nil {
			s.logger.Error("day simulation failed, skipping",
				zap.String("day", day.Key), zap.Error(err))
			res.SkippedDays = append(res.SkippedDays, day.Key)
			continue
		}
		if len(trades) > 0 {
			res.DaysTraded++
			res.Trades = append(res.Trades, trades...)
		}
	}

	s.logger.Info("simulation finished",
		zap.Int("days_total", res.DaysTotal),
		zap.Int("days_traded", res.DaysTraded),
		zap.Int("trades", len(res.Trades)),
		zap.Int("days_skipped", len(res.SkippedDays)))
	return res, nil
}

// runDay walks one calendar day candle by candle. err is non-nil only
// when the day panicked; a day without signals returns an empty slice.
func (s *Simulator) runDay(full, htf candle.Series, day candle.Day) (trades []TradeRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			trades = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	st := signal.DailyState{}
	var open *position.OpenTrade

	for _, bar := range day.Candles {
		now := bar.Time

		if open != nil {
			rec, closed := s.checkOpenTrade(open, bar, day.Key)
			if closed {
				trades = append(trades, *rec)
				st.PnL += rec.PnL
				st.Trades++
				open = nil
				if !s.engine.CanTrade(st) {
					break
				}
				continue
			}
			continue
		}

		prefix := full.Prefix(now)
		if len(prefix) < minHistoryBars {
			continue
		}
		htfPrefix := htf.Prefix(now)

		sig := s.engine.Evaluate(prefix, htfPrefix, now, st)
		if sig == nil {
			continue
		}

		size := s.engine.PositionSize(sig.EntryPrice, sig.StopLoss)
		if size <= 0 {
			s.logger.Warn("signal dropped on degenerate position size",
				zap.String("day", day.Key), zap.Time("time", now))
			continue
		}

		open = &position.OpenTrade{
			EntryTime:   now,
			Side:        sig.Side,
			EntryPrice:  sig.EntryPrice,
			StopLoss:    sig.StopLoss,
			TakeProfit:  sig.TakeProfit,
			Size:        size,
			Strategy:    sig.Strategy,
			InitialStop: sig.StopLoss,
		}
		s.logger.Debug("trade opened", zap.String("day", day.Key), zap.Stringer("trade", open))
	}

	// Anything still open at the end of the day closes at the last close.
	if open != nil {
		lastBar, _ := day.Candles.Last()
		rec := s.closeTrade(open, lastBar.Close, lastBar.Time, position.ReasonSessionEnd, day.Key)
		trades = append(trades, *rec)
	}
	return trades, nil
}

// checkOpenTrade applies break-even arming and the exit rules to one bar.
func (s *Simulator) checkOpenTrade(open *position.OpenTrade, bar candle.Candle, dayKey string) (*TradeRecord, bool) {
	price := bar.Close

	// Arm break-even after a +1R favorable close.
	if !open.BreakEvenApplied {
		trigger := open.BreakEvenTrigger()
		passed := (open.Side == candle.Long && price >= trigger) ||
			(open.Side == candle.Short && price <= trigger)
		if passed {
			open.ApplyBreakEven()
			s.logger.Debug("break even armed",
				zap.String("day", dayKey), zap.Float64("price", price))
		}
	}

	closed, reason, exitPrice := s.engine.CheckExit(open, price, bar.Time, open.BreakEvenApplied)
	if !closed {
		return nil, false
	}
	return s.closeTrade(open, exitPrice, bar.Time, reason, dayKey), true
}

func (s *Simulator) closeTrade(open *position.OpenTrade, exitPrice float64, exitTime time.Time, reason, dayKey string) *TradeRecord {
	pnl := s.engine.TradePnL(open, exitPrice)
	if math.IsNaN(pnl) {
		s.logger.Error("non-finite pnl at close, recording zero",
			zap.String("day", dayKey),
			zap.Time("exit_time", exitTime),
			zap.Float64("exit_price", exitPrice))
		pnl = 0
	}

	// The ledger records the stop as placed at entry, not the
	// break-even adjusted level.
	rec := &TradeRecord{
		ID:           uuid.New(),
		DayKey:       dayKey,
		EntryTime:    open.EntryTime,
		Side:         open.Side,
		EntryPrice:   open.EntryPrice,
		StopLoss:     open.InitialStop,
		TakeProfit:   open.TakeProfit,
		ExitTime:     exitTime,
		ExitPrice:    exitPrice,
		ExitReason:   reason,
		PnL:          pnl,
		PositionSize: open.Size,
		Strategy:     open.Strategy,
		UsedFallback: open.Strategy != signal.StrategyORB,
		RMultiple:    s.rMultiple(open, exitPrice),
	}

	s.logger.Info("trade closed",
		zap.String("day", dayKey),
		zap.String("side", string(rec.Side)),
		zap.String("reason", reason),
		zap.Float64("pnl", pnl))
	return rec
}

// rMultiple uses the stop as placed at entry, not the break-even
// adjusted one, so a break-even exit reports near 0R and a full stop
// exit -1R.
func (s *Simulator) rMultiple(open *position.OpenTrade, exitPrice float64) float64 {
	return indicator.RMultiple(open.EntryPrice, exitPrice, open.InitialStop, open.Side)
}
