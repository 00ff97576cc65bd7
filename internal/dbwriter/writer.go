// Package dbwriter persists the trade ledger to Postgres in batches.
package dbwriter

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/your-org/btc-1tpd-backtester/internal/config"
	"github.com/your-org/btc-1tpd-backtester/internal/engine"
)

// LedgerWriter is the sink for closed trades. It allows swapping the
// Postgres writer for an in-memory one in tests and dry runs.
type LedgerWriter interface {
	SaveTrade(trade engine.TradeRecord)
	Close()
}

// Pool abstracts the pgxpool.Pool for testability.
type Pool interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Close()
}

var tradeColumns = []string{
	"id", "day_key", "entry_time", "side", "entry_price", "stop_loss",
	"take_profit", "exit_time", "exit_price", "exit_reason", "pnl_usdt",
	"position_size", "strategy_used", "used_fallback", "r_multiple",
}

// Writer buffers trade records and copies them into the trades table,
// either when the batch fills up or on a timer.
type Writer struct {
	pool         Pool
	logger       *zap.Logger
	config       config.DBWriterConfig
	buffer       []engine.TradeRecord
	bufferMutex  sync.Mutex
	flushTicker  *time.Ticker
	shutdownChan chan struct{}
	closeOnce    sync.Once
}

// NewWriter starts a batch writer on the given pool. A nil pool yields a
// no-op writer, which lets callers keep a single code path when the
// database sink is not configured.
func NewWriter(pool Pool, writerConfig config.DBWriterConfig, logger *zap.Logger) (LedgerWriter, error) {
	if pool == nil {
		logger.Info("no database pool, trade ledger will not be persisted")
		return &nopWriter{}, nil
	}

	if writerConfig.BatchSize <= 0 {
		logger.Warn("batch_size is zero or negative, defaulting to 100",
			zap.Int("original", writerConfig.BatchSize))
		writerConfig.BatchSize = 100
	}
	if writerConfig.WriteIntervalSeconds <= 0 {
		logger.Warn("write_interval_seconds is zero or negative, defaulting to 1s",
			zap.Int("original", writerConfig.WriteIntervalSeconds))
		writerConfig.WriteIntervalSeconds = 1
	}

	w := &Writer{
		pool:         pool,
		logger:       logger,
		config:       writerConfig,
		buffer:       make([]engine.TradeRecord, 0, writerConfig.BatchSize),
		flushTicker:  time.NewTicker(time.Duration(writerConfig.WriteIntervalSeconds) * time.Second),
		shutdownChan: make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Writer) run() {
	for {
		select {
		case <-w.flushTicker.C:
			w.flush()
		case <-w.shutdownChan:
			return
		}
	}
}

// SaveTrade buffers one trade record, flushing when the batch is full.
func (w *Writer) SaveTrade(trade engine.TradeRecord) {
	w.bufferMutex.Lock()
	w.buffer = append(w.buffer, trade)
	shouldFlush := len(w.buffer) >= w.config.BatchSize
	w.bufferMutex.Unlock()

	if shouldFlush {
		w.flush()
	}
}

func (w *Writer) flush() {
	w.bufferMutex.Lock()
	defer w.bufferMutex.Unlock()

	if len(w.buffer) == 0 {
		return
	}
	w.logger.Debug("flushing trades", zap.Int("count", len(w.buffer)))

	_, err := w.pool.CopyFrom(
		context.Background(),
		pgx.Identifier{"trades"},
		tradeColumns,
		pgx.CopyFromRows(toTradeRows(w.buffer)),
	)
	if err != nil {
		w.logger.Error("failed to batch insert trades", zap.Error(err))
	}
	w.buffer = w.buffer[:0]
}

// Close flushes outstanding records and closes the pool.
func (w *Writer) Close() {
	w.closeOnce.Do(func() {
		close(w.shutdownChan)
		w.flushTicker.Stop()
		w.flush()
		w.pool.Close()
		w.logger.Info("database writer closed")
	})
}

func toTradeRows(trades []engine.TradeRecord) [][]interface{} {
	rows := make([][]interface{}, len(trades))
	for i, t := range trades {
		rows[i] = []interface{}{
			t.ID, t.DayKey, t.EntryTime, string(t.Side), t.EntryPrice, t.StopLoss,
			t.TakeProfit, t.ExitTime, t.ExitPrice, t.ExitReason, t.PnL,
			t.PositionSize, t.Strategy, t.UsedFallback, t.RMultiple,
		}
	}
	return rows
}

type nopWriter struct{}

func (*nopWriter) SaveTrade(engine.TradeRecord) {}
func (*nopWriter) Close()                       {}
