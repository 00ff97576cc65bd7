package csvwriter

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
	"github.com/your-org/btc-1tpd-backtester/internal/engine"
	"github.com/your-org/btc-1tpd-backtester/internal/position"
	"github.com/your-org/btc-1tpd-backtester/internal/signal"
)

func TestWriterLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")

	w, err := NewWriter(path, zap.NewNop())
	require.NoError(t, err)

	entry := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	trades := []engine.TradeRecord{
		{
			DayKey:       "2024-01-02",
			EntryTime:    entry,
			Side:         candle.Long,
			EntryPrice:   106,
			StopLoss:     104.5,
			TakeProfit:   109,
			ExitTime:     entry.Add(2 * time.Hour),
			ExitPrice:    109,
			ExitReason:   position.ReasonTakeProfit,
			PnL:          40,
			PositionSize: 13.33,
			Strategy:     signal.StrategyORB,
			UsedFallback: false,
			RMultiple:    2,
		},
	}
	require.NoError(t, w.WriteTrades(trades))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, ledgerHeader, rows[0])
	assert.Equal(t, []string{
		"2024-01-02", "2024-01-02T12:00:00Z", "long", "106", "104.5", "109",
		"2024-01-02T14:00:00Z", "109", "take_profit", "40",
		"13.33", "orb", "false", "2",
	}, rows[1])
}

func TestNewWriterBadPath(t *testing.T) {
	_, err := NewWriter(filepath.Join(t.TempDir(), "missing", "trades.csv"), zap.NewNop())
	assert.Error(t, err)
}
