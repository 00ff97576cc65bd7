// Package report aggregates a closed-trade ledger into performance
// metrics.
package report

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
	"github.com/your-org/btc-1tpd-backtester/internal/engine"
)

// ErrNoTrades is returned when the ledger holds nothing to analyze.
var ErrNoTrades = errors.New("no trades to analyze")

// StrategyStats is the per-strategy slice of the summary.
type StrategyStats struct {
	Trades    int             `json:"trades"`
	Wins      int             `json:"wins"`
	WinRate   float64         `json:"win_rate"`
	TotalPnL  decimal.Decimal `json:"total_pnl"`
	AvgR      float64         `json:"avg_r"`
	Fallbacks int             `json:"fallbacks"`
}

// Summary holds the aggregated performance metrics of one backtest run.
// Monetary totals use decimals; ratios and rates are plain floats.
type Summary struct {
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	WinRate       float64 `json:"win_rate"`

	LongTrades   int     `json:"long_trades"`
	ShortTrades  int     `json:"short_trades"`
	LongWinRate  float64 `json:"long_win_rate"`
	ShortWinRate float64 `json:"short_win_rate"`

	TotalPnL      decimal.Decimal `json:"total_pnl"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	GrossLoss     decimal.Decimal `json:"gross_loss"`
	AverageProfit decimal.Decimal `json:"average_profit"`
	AverageLoss   decimal.Decimal `json:"average_loss"`

	// ProfitFactor is +Inf when there are wins but no losing trades.
	ProfitFactor float64 `json:"profit_factor"`
	Expectancy   float64 `json:"expectancy"`
	AvgRMultiple float64 `json:"avg_r_multiple"`
	SharpeRatio  float64 `json:"sharpe_ratio"`

	MaxDrawdown          decimal.Decimal `json:"max_drawdown"`
	MaxConsecutiveWins   int             `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int             `json:"max_consecutive_losses"`

	DaysTraded      int     `json:"days_traded"`
	GreenDays       int     `json:"green_days"`
	GreenDayPercent float64 `json:"green_day_percent"`

	ExitReasons map[string]int           `json:"exit_reasons"`
	Strategies  map[string]StrategyStats `json:"strategies"`
}

// AnalyzeTrades aggregates a ledger into a Summary. Trades must be in
// entry-time order, the order the simulation emits them in.
func AnalyzeTrades(trades []engine.TradeRecord) (Summary, error) {
	if len(trades) == 0 {
		return Summary{}, ErrNoTrades
	}

	s := Summary{
		StartDate:   trades[0].EntryTime,
		EndDate:     trades[len(trades)-1].ExitTime,
		TotalTrades: len(trades),
		ExitReasons: make(map[string]int),
		Strategies:  make(map[string]StrategyStats),
	}

	var (
		grossProfit, grossLoss decimal.Decimal
		longWins, shortWins    int
		sumR                   float64
		consecWins, consecLoss int
		pnlFloats              = make([]float64, len(trades))
		dailyPnL               = make(map[string]decimal.Decimal)
		dayOrder               []string
	)

	for i, t := range trades {
		pnl := decimal.NewFromFloat(t.PnL)
		pnlFloats[i] = t.PnL
		s.TotalPnL = s.TotalPnL.Add(pnl)
		sumR += t.RMultiple
		s.ExitReasons[t.ExitReason]++

		if _, seen := dailyPnL[t.DayKey]; !seen {
			dayOrder = append(dayOrder, t.DayKey)
		}
		dailyPnL[t.DayKey] = dailyPnL[t.DayKey].Add(pnl)

		win := t.PnL > 0
		if win {
			s.WinningTrades++
			grossProfit = grossProfit.Add(pnl)
			consecWins++
			consecLoss = 0
			if consecWins > s.MaxConsecutiveWins {
				s.MaxConsecutiveWins = consecWins
			}
		} else if t.PnL < 0 {
			s.LosingTrades++
			grossLoss = grossLoss.Add(pnl)
			consecLoss++
			consecWins = 0
			if consecLoss > s.MaxConsecutiveLosses {
				s.MaxConsecutiveLosses = consecLoss
			}
		} else {
			consecWins = 0
			consecLoss = 0
		}

		switch t.Side {
		case candle.Long:
			s.LongTrades++
			if win {
				longWins++
			}
		case candle.Short:
			s.ShortTrades++
			if win {
				shortWins++
			}
		}

		st := s.Strategies[t.Strategy]
		st.Trades++
		if win {
			st.Wins++
		}
		st.TotalPnL = st.TotalPnL.Add(pnl)
		st.AvgR += t.RMultiple
		if t.UsedFallback {
			st.Fallbacks++
		}
		s.Strategies[t.Strategy] = st
	}

	for name, st := range s.Strategies {
		st.WinRate = percent(st.Wins, st.Trades)
		st.AvgR /= float64(st.Trades)
		s.Strategies[name] = st
	}

	s.GrossProfit = grossProfit
	s.GrossLoss = grossLoss
	s.WinRate = percent(s.WinningTrades, s.TotalTrades)
	s.LongWinRate = percent(longWins, s.LongTrades)
	s.ShortWinRate = percent(shortWins, s.ShortTrades)
	s.AvgRMultiple = sumR / float64(len(trades))

	if s.WinningTrades > 0 {
		s.AverageProfit = grossProfit.Div(decimal.NewFromInt(int64(s.WinningTrades)))
	}
	if s.LosingTrades > 0 {
		s.AverageLoss = grossLoss.Div(decimal.NewFromInt(int64(s.LosingTrades)))
	}

	switch {
	case grossLoss.IsNegative():
		s.ProfitFactor = grossProfit.Div(grossLoss.Abs()).InexactFloat64()
	case grossProfit.IsPositive():
		s.ProfitFactor = math.Inf(1)
	}

	s.Expectancy = s.TotalPnL.InexactFloat64() / float64(len(trades))
	s.SharpeRatio = sharpeRatio(pnlFloats)
	s.MaxDrawdown = maxDrawdown(trades)

	s.DaysTraded = len(dayOrder)
	for _, key := range dayOrder {
		if dailyPnL[key].IsPositive() {
			s.GreenDays++
		}
	}
	s.GreenDayPercent = percent(s.GreenDays, s.DaysTraded)

	return s, nil
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}

// maxDrawdown walks the cumulative equity curve and returns the largest
// peak-to-trough decline, as a non-negative decimal.
func maxDrawdown(trades []engine.TradeRecord) decimal.Decimal {
	equity := decimal.Zero
	peak := decimal.Zero
	dd := decimal.Zero
	for _, t := range trades {
		equity = equity.Add(decimal.NewFromFloat(t.PnL))
		if equity.GreaterThan(peak) {
			peak = equity
		}
		if d := peak.Sub(equity); d.GreaterThan(dd) {
			dd = d
		}
	}
	return dd
}

// sharpeRatio is the mean per-trade PnL over its standard deviation,
// with a zero risk-free rate. Zero when the deviation vanishes.
func sharpeRatio(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)))
	if stdDev == 0 {
		return 0
	}
	return mean / stdDev
}

// Service reads the trade ledger from Postgres and persists summaries.
type Service struct {
	db *pgxpool.Pool
}

// NewService creates a report service backed by the given pool.
func NewService(db *pgxpool.Pool) *Service {
	return &Service{db: db}
}

// FetchTrades loads the full trade ledger ordered by entry time.
func (s *Service) FetchTrades(ctx context.Context) ([]engine.TradeRecord, error) {
	query := `
        SELECT id, day_key, entry_time, side, entry_price, stop_loss,
               take_profit, exit_time, exit_price, exit_reason, pnl_usdt,
               position_size, strategy_used, used_fallback, r_multiple
        FROM trades
        ORDER BY entry_time ASC;
    `
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []engine.TradeRecord
	for rows.Next() {
		var t engine.TradeRecord
		var side string
		if err := rows.Scan(
			&t.ID, &t.DayKey, &t.EntryTime, &side, &t.EntryPrice, &t.StopLoss,
			&t.TakeProfit, &t.ExitTime, &t.ExitPrice, &t.ExitReason, &t.PnL,
			&t.PositionSize, &t.Strategy, &t.UsedFallback, &t.RMultiple,
		); err != nil {
			return nil, err
		}
		t.Side = candle.Side(side)
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// SaveSummary writes one summary row to the backtest_reports table.
func (s *Service) SaveSummary(ctx context.Context, sum Summary) error {
	query := `
        INSERT INTO backtest_reports (
            time, start_date, end_date, total_trades, winning_trades,
            losing_trades, win_rate, total_pnl, gross_profit, gross_loss,
            profit_factor, expectancy, avg_r_multiple, sharpe_ratio,
            max_drawdown, max_consecutive_wins, max_consecutive_losses,
            days_traded, green_days, green_day_percent
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
            $11, $12, $13, $14, $15, $16, $17, $18, $19, $20
        );
    `
	// +Inf is not representable in a numeric column.
	profitFactor := sum.ProfitFactor
	if math.IsInf(profitFactor, 1) {
		profitFactor = 0
	}
	_, err := s.db.Exec(ctx, query,
		time.Now().UTC(), sum.StartDate, sum.EndDate, sum.TotalTrades, sum.WinningTrades,
		sum.LosingTrades, sum.WinRate, sum.TotalPnL, sum.GrossProfit, sum.GrossLoss,
		profitFactor, sum.Expectancy, sum.AvgRMultiple, sum.SharpeRatio,
		sum.MaxDrawdown, sum.MaxConsecutiveWins, sum.MaxConsecutiveLosses,
		sum.DaysTraded, sum.GreenDays, sum.GreenDayPercent,
	)
	return err
}
