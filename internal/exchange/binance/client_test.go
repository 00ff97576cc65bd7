package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func klineRow(t time.Time, open, high, low, close, volume float64) []interface{} {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return []interface{}{
		t.UnixMilli(), f(open), f(high), f(low), f(close), f(volume),
		t.Add(15 * time.Minute).UnixMilli() - 1, "0", 0, "0", "0", "0",
	}
}

func TestFetchKlines(t *testing.T) {
	start := time.Date(2024, 1, 2, 11, 0, 0, 0, time.UTC)

	var capturedQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/fapi/v1/klines", r.URL.Path)
		capturedQuery = map[string]string{
			"symbol":   r.URL.Query().Get("symbol"),
			"interval": r.URL.Query().Get("interval"),
		}
		startMillis, err := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		require.NoError(t, err)

		// Serve two bars from the requested start; duplicates and bars
		// past the range test the client-side clipping.
		from := time.UnixMilli(startMillis).UTC()
		rows := [][]interface{}{
			klineRow(from, 100, 101, 99.5, 100.5, 12),
			klineRow(from.Add(15*time.Minute), 100.5, 102, 100, 101.5, 8),
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(rows)
	}))
	defer server.Close()

	originalBaseURL := GetBaseURL()
	SetBaseURL(server.URL)
	defer SetBaseURL(originalBaseURL)

	client := NewClient(zap.NewNop())
	series, err := client.FetchKlines(context.Background(), "BTCUSDT", "15m",
		start, start.Add(30*time.Minute))
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", capturedQuery["symbol"])
	assert.Equal(t, "15m", capturedQuery["interval"])

	require.Len(t, series, 2)
	assert.Equal(t, start, series[0].Time)
	assert.Equal(t, 100.0, series[0].Open)
	assert.Equal(t, 100.5, series[0].Close)
	assert.Equal(t, 12.0, series[0].Volume)
	assert.Equal(t, start.Add(15*time.Minute), series[1].Time)
}

func TestFetchKlinesChunking(t *testing.T) {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	requests := 0

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		startMillis, _ := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
		from := time.UnixMilli(startMillis).UTC()

		// Serve at most one bar per request to force chunked paging.
		var rows [][]interface{}
		if from.Before(start.Add(45 * time.Minute)) {
			rows = append(rows, klineRow(from, 100, 101, 99.5, 100.5, 10))
		}
		json.NewEncoder(w).Encode(rows)
	}))
	defer server.Close()

	originalBaseURL := GetBaseURL()
	SetBaseURL(server.URL)
	defer SetBaseURL(originalBaseURL)

	client := NewClient(zap.NewNop())
	series, err := client.FetchKlines(context.Background(), "BTCUSDT", "15m",
		start, start.Add(45*time.Minute))
	require.NoError(t, err)

	assert.Len(t, series, 3)
	assert.GreaterOrEqual(t, requests, 3)
}

func TestNormalizeSymbol(t *testing.T) {
	assert.Equal(t, "BTCUSDT", NormalizeSymbol("BTC/USDT:USDT"))
	assert.Equal(t, "BTCUSDT", NormalizeSymbol("BTC/USDT"))
	assert.Equal(t, "BTCUSDT", NormalizeSymbol("BTCUSDT"))
}

func TestFetchKlinesErrors(t *testing.T) {
	client := NewClient(zap.NewNop())
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	t.Run("unsupported timeframe", func(t *testing.T) {
		_, err := client.FetchKlines(context.Background(), "BTCUSDT", "3m", start, start.Add(time.Hour))
		assert.Error(t, err)
	})

	t.Run("inverted range", func(t *testing.T) {
		_, err := client.FetchKlines(context.Background(), "BTCUSDT", "15m", start, start)
		assert.Error(t, err)
	})

	t.Run("http error status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTeapot)
			fmt.Fprint(w, `{"code":-1121,"msg":"Invalid symbol."}`)
		}))
		defer server.Close()

		originalBaseURL := GetBaseURL()
		SetBaseURL(server.URL)
		defer SetBaseURL(originalBaseURL)

		_, err := client.FetchKlines(context.Background(), "NOPE", "15m", start, start.Add(time.Hour))
		assert.Error(t, err)
	})
}
