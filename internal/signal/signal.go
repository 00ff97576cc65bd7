// Package signal provides the logic for generating trading signals.
package signal

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
	"github.com/your-org/btc-1tpd-backtester/internal/config"
	"github.com/your-org/btc-1tpd-backtester/internal/indicator"
	"github.com/your-org/btc-1tpd-backtester/internal/position"
)

// Strategy tags identifying which detection path produced a signal.
const (
	StrategyORB           = "orb"
	StrategyEMA15Pullback = "ema15_pullback"
)

// Lookback periods used by the detectors.
const (
	atrPeriod    = 14
	adxPeriod    = 14
	emaPeriod    = 15
	volumePeriod = 20
)

// pullbackTolerance widens the EMA15 touch test by 0.1%.
const pullbackTolerance = 0.001

// TradingSignal is a fully-specified trade intent. The confirmation
// fields (ATR, ADX, VWAP, RR, MacroBias, ORB levels) are informational
// and are not consumed by the simulation.
type TradingSignal struct {
	Side       candle.Side
	Strategy   string
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Time       time.Time

	ATR       float64
	ADX       float64
	VWAP      float64
	RR        float64
	MacroBias candle.Side
	ORBHigh   float64
	ORBLow    float64
}

// UsedFallback reports whether the signal came from a fallback detector
// rather than the primary opening-range breakout path.
func (s *TradingSignal) UsedFallback() bool {
	return s.Strategy != StrategyORB
}

// DailyState is the per-calendar-day counter snapshot. The simulation
// owns it and passes it into every decision, keeping the Engine a pure
// decision function.
type DailyState struct {
	PnL    float64
	Trades int
}

// Engine evaluates candle windows and produces entry signals and exit
// decisions for the one-trade-per-day strategy.
type Engine struct {
	cfg     config.StrategyConfig
	session config.SessionConfig
	logger  *zap.Logger
}

// NewEngine creates a new Engine. It re-checks the parameters the
// decision functions rely on, so it can be constructed from raw structs
// without going through config.LoadConfig.
func NewEngine(cfg config.StrategyConfig, session config.SessionConfig, logger *zap.Logger) (*Engine, error) {
	if cfg.RiskUSDT <= 0 {
		return nil, fmt.Errorf("signal: risk_usdt must be positive, got %f", cfg.RiskUSDT)
	}
	if cfg.DailyMaxLoss >= 0 {
		return nil, fmt.Errorf("signal: daily_max_loss must be negative, got %f", cfg.DailyMaxLoss)
	}
	if cfg.MaxDailyTrades < 1 {
		return nil, fmt.Errorf("signal: max_daily_trades must be at least 1, got %d", cfg.MaxDailyTrades)
	}
	switch cfg.FallbackMode {
	case config.FallbackORB, config.FallbackEMA15, config.FallbackBestOfBoth:
	default:
		return nil, fmt.Errorf("signal: unknown fallback_mode %q", cfg.FallbackMode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg, session: session, logger: logger}, nil
}

// CanTrade reports whether a new trade may be opened in the given daily
// state: the trade cap is not reached and the realized PnL sits strictly
// between the max-loss floor and the profit target.
func (e *Engine) CanTrade(st DailyState) bool {
	return st.Trades < e.cfg.MaxDailyTrades &&
		st.PnL < e.cfg.DailyTarget &&
		st.PnL > e.cfg.DailyMaxLoss
}

// Evaluate returns a trade intent for the current timestamp, or nil.
// The ORB detector runs first, inside the entry window and only once the
// opening range has closed. The EMA15 pullback fallback runs from the end
// of the entry window until session end when force_one_trade is set and
// the fallback mode permits it. Indicator NaNs from insufficient history
// yield nil, never an error.
func (e *Engine) Evaluate(ltf, htf candle.Series, now time.Time, st DailyState) *TradingSignal {
	if !e.CanTrade(st) {
		return nil
	}

	if indicator.IsEntryWindow(now, e.session.EntryStartHour, e.session.EntryEndHour) {
		if sig := e.evaluateORB(ltf, htf, now); sig != nil {
			return sig
		}
	}

	if e.fallbackAllowed() &&
		now.UTC().Hour() >= e.session.EntryEndHour &&
		indicator.IsTradingSession(now, e.session.EntryStartHour, e.session.SessionEndHour) {
		for _, side := range []candle.Side{candle.Long, candle.Short} {
			if sig := e.evaluateEMA15Pullback(ltf, side, now); sig != nil {
				return sig
			}
		}
	}

	return nil
}

func (e *Engine) fallbackAllowed() bool {
	return bool(e.cfg.ForceOneTrade) &&
		(e.cfg.FallbackMode == config.FallbackEMA15 || e.cfg.FallbackMode == config.FallbackBestOfBoth)
}

// evaluateORB checks both sides for an opening-range breakout with volume
// and ADX confirmation. VWAP alignment and macro bias are recorded on the
// signal but do not gate it.
func (e *Engine) evaluateORB(ltf, htf candle.Series, now time.Time) *TradingSignal {
	if now.UTC().Hour() < e.session.ORBEndHour {
		return nil // opening range still forming
	}

	daySlice := sessionSlice(ltf, now)
	orbHigh := indicator.OpeningRangeHigh(daySlice, e.session.ORBStartHour, e.session.ORBEndHour)
	orbLow := indicator.OpeningRangeLow(daySlice, e.session.ORBStartHour, e.session.ORBEndHour)
	if math.IsNaN(orbHigh) || math.IsNaN(orbLow) {
		return nil
	}

	lastBar, ok := ltf.Last()
	if !ok {
		return nil
	}
	entry := lastBar.Close

	for _, side := range []candle.Side{candle.Long, candle.Short} {
		if !indicator.Breakout(ltf, orbHigh, orbLow, side) {
			continue
		}

		atr := lastValue(indicator.ATR(ltf, atrPeriod))
		adx := lastValue(indicator.ADX(ltf, adxPeriod))
		if math.IsNaN(atr) || math.IsNaN(adx) {
			e.logger.Debug("orb confirmation indicators not ready",
				zap.Time("time", now), zap.Float64("atr", atr), zap.Float64("adx", adx))
			continue
		}
		if adx < e.cfg.ADXMin || !indicator.VolumeConfirmation(ltf, volumePeriod) {
			continue
		}

		stop := e.stopLossPrice(entry, side, atr, e.cfg.ATRMultORB)
		tp := e.takeProfitPrice(entry, stop, side)

		e.logger.Debug("orb signal confirmed",
			zap.String("side", string(side)),
			zap.Float64("entry", entry),
			zap.Float64("orb_high", orbHigh),
			zap.Float64("orb_low", orbLow),
			zap.Float64("adx", adx))

		return &TradingSignal{
			Side:       side,
			Strategy:   StrategyORB,
			EntryPrice: entry,
			StopLoss:   stop,
			TakeProfit: tp,
			Time:       now,
			ATR:        atr,
			ADX:        adx,
			VWAP:       lastValue(indicator.VWAP(daySlice)),
			MacroBias:  indicator.MacroBias(htf),
			ORBHigh:    orbHigh,
			ORBLow:     orbLow,
		}
	}
	return nil
}

// evaluateEMA15Pullback checks for a pullback to the EMA15 confirmed by
// an engulfing bar and above-average volume, and requires the resulting
// reward/risk ratio to reach the configured minimum.
func (e *Engine) evaluateEMA15Pullback(ltf candle.Series, side candle.Side, now time.Time) *TradingSignal {
	if len(ltf) < emaPeriod {
		return nil
	}

	ema15 := lastValue(indicator.EMA(ltf.Closes(), emaPeriod))
	lastBar, _ := ltf.Last()
	entry := lastBar.Close

	engulfing := indicator.Engulfing(ltf)
	var pullbackOK bool
	if side == candle.Long {
		pullbackOK = entry <= ema15*(1+pullbackTolerance) && engulfing == indicator.EngulfingBullish
	} else {
		pullbackOK = entry >= ema15*(1-pullbackTolerance) && engulfing == indicator.EngulfingBearish
	}
	if !pullbackOK || !indicator.VolumeConfirmation(ltf, volumePeriod) {
		return nil
	}

	atr := lastValue(indicator.ATR(ltf, atrPeriod))
	if math.IsNaN(atr) {
		return nil
	}

	stop := e.stopLossPrice(entry, side, atr, e.cfg.ATRMultFallback)
	tp := e.takeProfitPrice(entry, stop, side)

	risk := math.Abs(entry - stop)
	if risk == 0 {
		return nil
	}
	rr := math.Abs(tp-entry) / risk
	if rr < e.cfg.MinRR {
		return nil
	}

	e.logger.Debug("ema15 pullback signal confirmed",
		zap.String("side", string(side)),
		zap.Float64("entry", entry),
		zap.Float64("ema15", ema15),
		zap.Float64("rr", rr))

	return &TradingSignal{
		Side:       side,
		Strategy:   StrategyEMA15Pullback,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: tp,
		Time:       now,
		ATR:        atr,
		RR:         rr,
	}
}

// stopLossPrice places the stop atrMult true ranges away from the entry
// on the losing side.
func (e *Engine) stopLossPrice(entry float64, side candle.Side, atr, atrMult float64) float64 {
	if side == candle.Long {
		return entry - atr*atrMult
	}
	return entry + atr*atrMult
}

// takeProfitPrice places the target tp_multiplier risk-distances away
// from the entry on the winning side.
func (e *Engine) takeProfitPrice(entry, stop float64, side candle.Side) float64 {
	reward := math.Abs(entry-stop) * e.cfg.TPMultiplier
	if side == candle.Long {
		return entry + reward
	}
	return entry - reward
}

// PositionSize returns the trade size for the configured per-trade risk,
// capped so the position never risks more than a 1% adverse move of the
// entry price. A degenerate stop distance yields 0, meaning do not open.
func (e *Engine) PositionSize(entry, stop float64) float64 {
	diff := math.Abs(entry - stop)
	if diff == 0 || entry <= 0 {
		return 0
	}
	size := e.cfg.RiskUSDT / diff
	maxSize := e.cfg.RiskUSDT / (entry * 0.01)
	return math.Min(size, maxSize)
}

// CheckExit decides whether the open trade must close at the given price
// and time. Conditions are checked in a fixed priority order: session
// end, stop loss, take profit. With breakEvenActive the stop has been
// moved to the entry price, and hitting it reports the break-even reason
// instead of a plain stop loss. A NaN price closes the trade with an
// error reason.
func (e *Engine) CheckExit(t *position.OpenTrade, price float64, now time.Time, breakEvenActive bool) (bool, string, float64) {
	if math.IsNaN(price) {
		return true, position.ReasonError, price
	}
	if now.UTC().Hour() >= e.session.SessionEndHour {
		return true, position.ReasonSessionEnd, price
	}

	if t.Side == candle.Long {
		switch {
		case price <= t.StopLoss:
			if breakEvenActive {
				return true, position.ReasonBreakEven, price
			}
			return true, position.ReasonStopLoss, price
		case price >= t.TakeProfit:
			return true, position.ReasonTakeProfit, price
		}
		return false, "", 0
	}

	switch {
	case price >= t.StopLoss:
		if breakEvenActive {
			return true, position.ReasonBreakEven, price
		}
		return true, position.ReasonStopLoss, price
	case price <= t.TakeProfit:
		return true, position.ReasonTakeProfit, price
	}
	return false, "", 0
}

// TradePnL returns the realized PnL in quote currency at the given exit
// price. The exit reason never alters the formula.
func (e *Engine) TradePnL(t *position.OpenTrade, exitPrice float64) float64 {
	if t.Side == candle.Long {
		return (exitPrice - t.EntryPrice) * t.Size
	}
	return (t.EntryPrice - exitPrice) * t.Size
}

// sessionSlice bounds a prefix window to the current UTC calendar day,
// anchoring the opening range and VWAP at the day start.
func sessionSlice(s candle.Series, now time.Time) candle.Series {
	dayStart := now.UTC().Truncate(24 * time.Hour)
	i := len(s)
	for i > 0 && !s[i-1].Time.Before(dayStart) {
		i--
	}
	return s[i:]
}

func lastValue(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}
