// Package main is the entry point of the one-trade-per-day backtester.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
	"github.com/your-org/btc-1tpd-backtester/internal/config"
	"github.com/your-org/btc-1tpd-backtester/internal/csvwriter"
	"github.com/your-org/btc-1tpd-backtester/internal/datastore"
	"github.com/your-org/btc-1tpd-backtester/internal/dbwriter"
	"github.com/your-org/btc-1tpd-backtester/internal/engine"
	"github.com/your-org/btc-1tpd-backtester/internal/exchange/binance"
	"github.com/your-org/btc-1tpd-backtester/internal/report"
)

const dateLayout = "2006-01-02"

// htfWarmup extends the higher-timeframe fetch backwards so the macro
// bias has its 200 bars of history from the first simulated day.
const htfWarmup = 10 * 24 * time.Hour

func main() {
	configPath := flag.String("config", "", "Path to the configuration file")
	fromStr := flag.String("from", "", "First day of the backtest (YYYY-MM-DD)")
	toStr := flag.String("to", "", "Day after the last day of the backtest (YYYY-MM-DD)")
	output := flag.String("output", "", "Trade ledger CSV path (overrides config)")
	cacheDir := flag.String("cache", ".cache", "Candle cache directory")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *output != "" {
		cfg.OutputCSV = *output
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	from, to, err := parseRange(*fromStr, *toStr)
	if err != nil {
		logger.Fatal("invalid backtest range", zap.Error(err))
	}

	logger.Info("backtest starting",
		zap.String("symbol", cfg.Symbol),
		zap.String("from", from.Format(dateLayout)),
		zap.String("to", to.Format(dateLayout)))

	ctx := context.Background()
	ltf, htf, err := loadCandles(ctx, cfg, *cacheDir, from, to, logger)
	if err != nil {
		logger.Fatal("failed to load candles", zap.Error(err))
	}
	if len(ltf) == 0 {
		logger.Fatal("no candles in the requested range")
	}

	sim, err := engine.NewSimulator(cfg.Strategy, cfg.Session, logger)
	if err != nil {
		logger.Fatal("failed to build simulator", zap.Error(err))
	}
	result, err := sim.Run(ltf, htf)
	if err != nil {
		logger.Fatal("simulation failed", zap.Error(err))
	}

	if err := writeLedger(cfg.OutputCSV, result.Trades, logger); err != nil {
		logger.Fatal("failed to write trade ledger", zap.Error(err))
	}

	summary, err := report.AnalyzeTrades(result.Trades)
	if err != nil {
		logger.Info("no trades in backtest window, skipping summary")
		return
	}
	printSummary(summary, result)

	if cfg.Database.Enabled() {
		if err := persist(ctx, cfg, result.Trades, summary, logger); err != nil {
			logger.Fatal("failed to persist results", zap.Error(err))
		}
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func parseRange(fromStr, toStr string) (time.Time, time.Time, error) {
	if fromStr == "" || toStr == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("both -from and -to are required")
	}
	from, err := time.ParseInLocation(dateLayout, fromStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -from: %w", err)
	}
	to, err := time.ParseInLocation(dateLayout, toStr, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -to: %w", err)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("-from %s must be before -to %s", fromStr, toStr)
	}
	return from, to, nil
}

func loadCandles(ctx context.Context, cfg *config.Config, cacheDir string, from, to time.Time, logger *zap.Logger) (ltf, htf candle.Series, err error) {
	cache, err := datastore.NewCache(cacheDir, logger)
	if err != nil {
		return nil, nil, err
	}
	client := binance.NewClient(logger)
	symbol := binance.NormalizeSymbol(cfg.Symbol)

	// The requested range is part of the cache key, so differently
	// scoped runs never share a file.
	rangeTag := from.Format("20060102") + "_" + to.Format("20060102")

	ltf, err = cache.LoadOrFetch(ctx, symbol, cfg.SignalTF+"_"+rangeTag, func(ctx context.Context) (candle.Series, error) {
		return client.FetchKlines(ctx, symbol, cfg.SignalTF, from, to)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s candles: %w", cfg.SignalTF, err)
	}

	htf, err = cache.LoadOrFetch(ctx, symbol, cfg.HTFTimeframe+"_"+rangeTag, func(ctx context.Context) (candle.Series, error) {
		return client.FetchKlines(ctx, symbol, cfg.HTFTimeframe, from.Add(-htfWarmup), to)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %s candles: %w", cfg.HTFTimeframe, err)
	}
	return ltf, htf, nil
}

func writeLedger(path string, trades []engine.TradeRecord, logger *zap.Logger) error {
	w, err := csvwriter.NewWriter(path, logger)
	if err != nil {
		return err
	}
	if err := w.WriteTrades(trades); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func persist(ctx context.Context, cfg *config.Config, trades []engine.TradeRecord, summary report.Summary, logger *zap.Logger) error {
	dbURL := cfg.Database.URL()
	if err := dbwriter.RunMigrations(dbURL, "db/migrations", logger); err != nil {
		return err
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}

	writer, err := dbwriter.NewWriter(pool, cfg.DBWriter, logger)
	if err != nil {
		pool.Close()
		return err
	}
	for _, t := range trades {
		writer.SaveTrade(t)
	}
	writer.Close() // flushes and closes the pool

	reportPool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect to database for report: %w", err)
	}
	defer reportPool.Close()

	if err := report.NewService(reportPool).SaveSummary(ctx, summary); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	logger.Info("results persisted", zap.Int("trades", len(trades)))
	return nil
}

func printSummary(s report.Summary, r *engine.Result) {
	fmt.Println()
	fmt.Println("=== Backtest Summary ===")
	fmt.Printf("Period:                %s .. %s\n", s.StartDate.Format(dateLayout), s.EndDate.Format(dateLayout))
	fmt.Printf("Days (total/traded):   %d / %d\n", r.DaysTotal, r.DaysTraded)
	if len(r.SkippedDays) > 0 {
		fmt.Printf("Days skipped:          %d %v\n", len(r.SkippedDays), r.SkippedDays)
	}
	fmt.Printf("Trades:                %d (%d W / %d L)\n", s.TotalTrades, s.WinningTrades, s.LosingTrades)
	fmt.Printf("Win rate:              %.1f%%\n", s.WinRate)
	fmt.Printf("Total PnL:             %s USDT\n", s.TotalPnL.StringFixed(2))
	if math.IsInf(s.ProfitFactor, 1) {
		fmt.Printf("Profit factor:         inf\n")
	} else {
		fmt.Printf("Profit factor:         %.2f\n", s.ProfitFactor)
	}
	fmt.Printf("Expectancy:            %.2f USDT/trade\n", s.Expectancy)
	fmt.Printf("Avg R multiple:        %.2f\n", s.AvgRMultiple)
	fmt.Printf("Max drawdown:          %s USDT\n", s.MaxDrawdown.StringFixed(2))
	fmt.Printf("Max consecutive loss:  %d\n", s.MaxConsecutiveLosses)
	fmt.Printf("Green days:            %d / %d (%.1f%%)\n", s.GreenDays, s.DaysTraded, s.GreenDayPercent)

	names := make([]string, 0, len(s.Strategies))
	for name := range s.Strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		st := s.Strategies[name]
		fmt.Printf("  %-16s %3d trades, %.1f%% win, %s USDT, avg %.2fR\n",
			name, st.Trades, st.WinRate, st.TotalPnL.StringFixed(2), st.AvgR)
	}
}
