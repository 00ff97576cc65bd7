// Package csvwriter persists the trade ledger as a CSV file.
package csvwriter

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/btc-1tpd-backtester/internal/engine"
)

// ledgerHeader is the fixed column layout of the trade ledger.
var ledgerHeader = []string{
	"day_key", "entry_time", "side", "entry_price", "sl", "tp",
	"exit_time", "exit_price", "exit_reason", "pnl_usdt",
	"position_size", "strategy_used", "used_fallback", "r_multiple",
}

// Writer streams trade records into a CSV file, header first.
type Writer struct {
	file   *os.File
	writer *csv.Writer
	logger *zap.Logger
	mu     sync.Mutex
}

// NewWriter creates the output file, truncating an existing one, and
// writes the ledger header.
func NewWriter(filePath string, logger *zap.Logger) (*Writer, error) {
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV file: %w", err)
	}

	w := &Writer{
		file:   file,
		writer: csv.NewWriter(file),
		logger: logger,
	}
	if err := w.writer.Write(ledgerHeader); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return w, nil
}

// WriteTrade appends one trade record.
func (w *Writer) WriteTrade(t engine.TradeRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	record := []string{
		t.DayKey,
		t.EntryTime.UTC().Format(time.RFC3339),
		string(t.Side),
		formatFloat(t.EntryPrice),
		formatFloat(t.StopLoss),
		formatFloat(t.TakeProfit),
		t.ExitTime.UTC().Format(time.RFC3339),
		formatFloat(t.ExitPrice),
		t.ExitReason,
		formatFloat(t.PnL),
		formatFloat(t.PositionSize),
		t.Strategy,
		strconv.FormatBool(t.UsedFallback),
		formatFloat(t.RMultiple),
	}
	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record to CSV: %w", err)
	}
	return nil
}

// WriteTrades appends the full ledger in order.
func (w *Writer) WriteTrades(trades []engine.TradeRecord) error {
	for _, t := range trades {
		if err := w.WriteTrade(t); err != nil {
			return err
		}
	}
	w.logger.Info("trade ledger written",
		zap.String("path", w.file.Name()), zap.Int("trades", len(trades)))
	return nil
}

// Flush flushes any buffered data to the underlying file.
func (w *Writer) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writer.Flush()
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	w.Flush()
	return w.file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
