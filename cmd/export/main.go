// Command export dumps the persisted trade ledger as CSV on stdout.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/your-org/btc-1tpd-backtester/internal/config"
)

func main() {
	configPath := flag.String("config", "", "Path to the configuration file")
	fromDay := flag.String("from", "", "First day key to export (YYYY-MM-DD, optional)")
	toDay := flag.String("to", "", "Day key to export up to, exclusive (YYYY-MM-DD, optional)")
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

	count, err := export(ctx, dbpool, os.Stdout, *fromDay, *toDay)
	if err != nil {
		logger.Fatal("export failed", zap.Error(err))
	}
	logger.Info("export finished", zap.Int("trades", count))
}

func export(ctx context.Context, dbpool *pgxpool.Pool, out *os.File, fromDay, toDay string) (int, error) {
	writer := csv.NewWriter(out)
	defer writer.Flush()

	header := []string{
		"day_key", "entry_time", "side", "entry_price", "sl", "tp",
		"exit_time", "exit_price", "exit_reason", "pnl_usdt",
		"position_size", "strategy_used", "used_fallback", "r_multiple",
	}
	if err := writer.Write(header); err != nil {
		return 0, fmt.Errorf("write CSV header: %w", err)
	}

	// Day keys are lexicographically ordered, so plain string bounds
	// select the range.
	query := `
        SELECT day_key, entry_time, side, entry_price, stop_loss, take_profit,
               exit_time, exit_price, exit_reason, pnl_usdt, position_size,
               strategy_used, used_fallback, r_multiple
        FROM trades
        WHERE ($1 = '' OR day_key >= $1) AND ($2 = '' OR day_key < $2)
        ORDER BY entry_time ASC;
    `
	rows, err := dbpool.Query(ctx, query, fromDay, toDay)
	if err != nil {
		return 0, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

	var count int
	for rows.Next() {
		var (
			dayKey, side, exitReason, strategy string
			entryTime, exitTime                time.Time
			entryPrice, stopLoss, takeProfit   float64
			exitPrice, pnl, size, rMultiple    float64
			usedFallback                       bool
		)
		if err := rows.Scan(
			&dayKey, &entryTime, &side, &entryPrice, &stopLoss, &takeProfit,
			&exitTime, &exitPrice, &exitReason, &pnl, &size,
			&strategy, &usedFallback, &rMultiple,
		); err != nil {
			return count, fmt.Errorf("scan trade row: %w", err)
		}

		record := []string{
			dayKey,
			entryTime.UTC().Format(time.RFC3339),
			side,
			ff(entryPrice), ff(stopLoss), ff(takeProfit),
			exitTime.UTC().Format(time.RFC3339),
			ff(exitPrice),
			exitReason,
			ff(pnl), ff(size),
			strategy,
			strconv.FormatBool(usedFallback),
			ff(rMultiple),
		}
		if err := writer.Write(record); err != nil {
			return count, fmt.Errorf("write CSV record: %w", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, fmt.Errorf("iterate trade rows: %w", err)
	}

	writer.Flush()
	return count, writer.Error()
}
