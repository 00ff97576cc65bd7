// Command report analyzes the persisted trade ledger and prints a
// performance summary. With -save it also stores the summary row.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/your-org/btc-1tpd-backtester/internal/config"
	"github.com/your-org/btc-1tpd-backtester/internal/report"
)

func main() {
	configPath := flag.String("config", "", "Path to the configuration file")
	save := flag.Bool("save", false, "Persist the summary to backtest_reports")
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	if !cfg.Database.Enabled() {
		logger.Fatal("database is not enabled in the configuration")
	}

	ctx := context.Background()
	dbpool, err := pgxpool.New(ctx, cfg.Database.URL())
	if err != nil {
		logger.Fatal("unable to connect to database", zap.Error(err))
	}
	defer dbpool.Close()

	service := report.NewService(dbpool)
	trades, err := service.FetchTrades(ctx)
	if err != nil {
		logger.Fatal("failed to fetch trades", zap.Error(err))
	}

	summary, err := report.AnalyzeTrades(trades)
	if err != nil {
		if errors.Is(err, report.ErrNoTrades) {
			logger.Info("trade ledger is empty, nothing to report")
			return
		}
		logger.Fatal("failed to analyze trades", zap.Error(err))
	}

	printSummary(summary)

	if *save {
		if err := service.SaveSummary(ctx, summary); err != nil {
			logger.Fatal("failed to save summary", zap.Error(err))
		}
		logger.Info("summary saved", zap.Int("trades", summary.TotalTrades))
	}
}

func printSummary(s report.Summary) {
	const dateLayout = "2006-01-02"

	fmt.Println("=== Ledger Summary ===")
	fmt.Printf("Period:                %s .. %s\n", s.StartDate.Format(dateLayout), s.EndDate.Format(dateLayout))
	fmt.Printf("Trades:                %d (%d W / %d L)\n", s.TotalTrades, s.WinningTrades, s.LosingTrades)
	fmt.Printf("Win rate:              %.1f%% (long %.1f%%, short %.1f%%)\n", s.WinRate, s.LongWinRate, s.ShortWinRate)
	fmt.Printf("Total PnL:             %s USDT\n", s.TotalPnL.StringFixed(2))
	if math.IsInf(s.ProfitFactor, 1) {
		fmt.Printf("Profit factor:         inf\n")
	} else {
		fmt.Printf("Profit factor:         %.2f\n", s.ProfitFactor)
	}
	fmt.Printf("Expectancy:            %.2f USDT/trade\n", s.Expectancy)
	fmt.Printf("Avg R multiple:        %.2f\n", s.AvgRMultiple)
	fmt.Printf("Sharpe ratio:          %.2f\n", s.SharpeRatio)
	fmt.Printf("Max drawdown:          %s USDT\n", s.MaxDrawdown.StringFixed(2))
	fmt.Printf("Green days:            %d / %d (%.1f%%)\n", s.GreenDays, s.DaysTraded, s.GreenDayPercent)

	reasons := make([]string, 0, len(s.ExitReasons))
	for reason := range s.ExitReasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	fmt.Println("Exit reasons:")
	for _, reason := range reasons {
		fmt.Printf("  %-16s %d\n", reason, s.ExitReasons[reason])
	}

	names := make([]string, 0, len(s.Strategies))
	for name := range s.Strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Println("Strategies:")
	for _, name := range names {
		st := s.Strategies[name]
		fmt.Printf("  %-16s %3d trades, %.1f%% win, %s USDT, avg %.2fR, %d fallback\n",
			name, st.Trades, st.WinRate, st.TotalPnL.StringFixed(2), st.AvgR, st.Fallbacks)
	}
}
