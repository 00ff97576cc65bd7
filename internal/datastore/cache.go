package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
)

// FetchFunc retrieves a candle series from a remote source.
type FetchFunc func(ctx context.Context) (candle.Series, error)

// Cache is a CSV-file cache of candle history, one file per symbol and
// timeframe. A cache hit skips the remote fetch entirely.
type Cache struct {
	dir    string
	logger *zap.Logger
}

// NewCache creates the cache directory if needed.
func NewCache(dir string, logger *zap.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache{dir: dir, logger: logger}, nil
}

// LoadOrFetch returns the cached series for symbol and timeframe, or
// runs fetch and caches its result. A corrupt cache file is treated as
// a miss, not an error.
func (c *Cache) LoadOrFetch(ctx context.Context, symbol, timeframe string, fetch FetchFunc) (candle.Series, error) {
	path := c.path(symbol, timeframe)

	if _, err := os.Stat(path); err == nil {
		series, err := ReadSeries(path)
		if err == nil && len(series) > 0 {
			c.logger.Debug("candle cache hit",
				zap.String("path", path), zap.Int("candles", len(series)))
			return series, nil
		}
		c.logger.Warn("discarding unreadable cache file",
			zap.String("path", path), zap.Error(err))
	}

	series, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := WriteSeries(path, series); err != nil {
		c.logger.Warn("failed to write candle cache", zap.String("path", path), zap.Error(err))
	}
	return series, nil
}

func (c *Cache) path(symbol, timeframe string) string {
	clean := strings.NewReplacer("/", "", ":", "_").Replace(symbol)
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s.csv", clean, timeframe))
}
