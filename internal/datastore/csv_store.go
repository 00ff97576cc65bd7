// Package datastore reads and writes candle history as CSV files and
// provides a file-backed cache in front of the exchange fetcher.
package datastore

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/your-org/btc-1tpd-backtester/internal/candle"
)

var candleHeader = []string{"time", "open", "high", "low", "close", "volume"}

// ReadSeries loads a candle series from a CSV file with the layout
// time,open,high,low,close,volume. Timestamps are RFC3339. The result is
// sorted and deduplicated; invalid candles fail the load.
func ReadSeries(filePath string) (candle.Series, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}

	var series candle.Series
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv record at line %d: %w", line, err)
		}
		c, err := parseCandle(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		series = append(series, c)
	}
	return series.Sort(), nil
}

// WriteSeries writes a candle series to a CSV file, header first,
// overwriting any existing file.
func WriteSeries(filePath string, series candle.Series) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(candleHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, c := range series {
		record := []string{
			c.Time.UTC().Format(time.RFC3339),
			formatFloat(c.Open),
			formatFloat(c.High),
			formatFloat(c.Low),
			formatFloat(c.Close),
			formatFloat(c.Volume),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func parseCandle(record []string) (candle.Candle, error) {
	if len(record) != len(candleHeader) {
		return candle.Candle{}, fmt.Errorf("expected %d columns, got %d", len(candleHeader), len(record))
	}
	ts, err := time.Parse(time.RFC3339, record[0])
	if err != nil {
		return candle.Candle{}, fmt.Errorf("invalid timestamp %q: %w", record[0], err)
	}

	values := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return candle.Candle{}, fmt.Errorf("invalid %s %q: %w", candleHeader[i+1], record[i+1], err)
		}
		values[i] = v
	}
	return candle.Candle{
		Time:   ts.UTC(),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
