// Package binance fetches kline history from the Binance futures REST
// API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
)

// defaultBaseURL can be overridden for testing.
var defaultBaseURL = "https://fapi.binance.com"

// GetBaseURL returns the current base URL used by the client.
func GetBaseURL() string {
	return defaultBaseURL
}

// SetBaseURL sets the base URL for the client. This is intended for use
// in tests to redirect requests to a mock server.
func SetBaseURL(u string) {
	defaultBaseURL = u
}

// maxKlinesPerRequest is the API limit per klines call.
const maxKlinesPerRequest = 1500

// NormalizeSymbol converts a ccxt-style symbol like "BTC/USDT:USDT"
// into the raw exchange form "BTCUSDT".
func NormalizeSymbol(symbol string) string {
	if i := strings.Index(symbol, ":"); i >= 0 {
		symbol = symbol[:i]
	}
	return strings.ReplaceAll(symbol, "/", "")
}

// timeframes maps config timeframe names to their bar duration.
var timeframes = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

// Client provides read-only access to public market data.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new market data client.
func NewClient(logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// FetchKlines downloads the closed candles for symbol and timeframe in
// the half-open [start, end) range, chunking requests to the API limit.
// The result is sorted, deduplicated and clipped to the range.
func (c *Client) FetchKlines(ctx context.Context, symbol, timeframe string, start, end time.Time) (candle.Series, error) {
	interval, ok := timeframes[timeframe]
	if !ok {
		return nil, fmt.Errorf("binance: unsupported timeframe %q", timeframe)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("binance: start %s is not before end %s", start, end)
	}

	var series candle.Series
	cursor := start
	for cursor.Before(end) {
		batch, err := c.fetchChunk(ctx, symbol, timeframe, cursor, end)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		series = append(series, batch...)

		last := batch[len(batch)-1].Time
		next := last.Add(interval)
		if !next.After(cursor) {
			break // no forward progress, avoid spinning
		}
		cursor = next
	}

	series = series.Sort()
	out := series[:0]
	for _, k := range series {
		if !k.Time.Before(start) && k.Time.Before(end) {
			out = append(out, k)
		}
	}
	c.logger.Debug("fetched klines",
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.Int("candles", len(out)))
	return out, nil
}

func (c *Client) fetchChunk(ctx context.Context, symbol, timeframe string, start, end time.Time) (candle.Series, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", timeframe)
	q.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	q.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	q.Set("limit", strconv.Itoa(maxKlinesPerRequest))

	reqURL := defaultBaseURL + "/fapi/v1/klines?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("binance: failed to create klines request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance: klines request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("binance: failed to read klines response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance: klines request returned status %d: %s", resp.StatusCode, body)
	}

	// Each kline is a mixed-type JSON array: open time in ms, then OHLC
	// and volume as strings.
	var raw [][]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("binance: failed to decode klines response: %w", err)
	}

	series := make(candle.Series, 0, len(raw))
	for _, k := range raw {
		parsed, err := parseKline(k)
		if err != nil {
			return nil, err
		}
		series = append(series, parsed)
	}
	return series, nil
}

func parseKline(k []json.RawMessage) (candle.Candle, error) {
	if len(k) < 6 {
		return candle.Candle{}, fmt.Errorf("binance: kline has %d fields, want at least 6", len(k))
	}

	var openTimeMillis int64
	if err := json.Unmarshal(k[0], &openTimeMillis); err != nil {
		return candle.Candle{}, fmt.Errorf("binance: invalid kline open time: %w", err)
	}

	values := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		var s string
		if err := json.Unmarshal(k[i], &s); err != nil {
			return candle.Candle{}, fmt.Errorf("binance: invalid kline field %d: %w", i, err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return candle.Candle{}, fmt.Errorf("binance: invalid kline number %q: %w", s, err)
		}
		values[i-1] = v
	}

	return candle.Candle{
		Time:   time.UnixMilli(openTimeMillis).UTC(),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}
