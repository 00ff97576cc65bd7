package dbwriter

import (
	"sync"

	"github.com/your-org/btc-1tpd-backtester/internal/engine"
)

// InMemWriter is an in-memory LedgerWriter for tests.
type InMemWriter struct {
	mu       sync.RWMutex
	Trades   []engine.TradeRecord
	IsClosed bool
}

// NewInMemWriter creates a new InMemWriter.
func NewInMemWriter() *InMemWriter {
	return &InMemWriter{Trades: make([]engine.TradeRecord, 0)}
}

// SaveTrade appends a trade to the in-memory slice.
func (w *InMemWriter) SaveTrade(trade engine.TradeRecord) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.Trades = append(w.Trades, trade)
}

// Saved returns a copy of the stored trades.
func (w *InMemWriter) Saved() []engine.TradeRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]engine.TradeRecord, len(w.Trades))
	copy(out, w.Trades)
	return out
}

// Close marks the writer as closed.
func (w *InMemWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.IsClosed = true
}
