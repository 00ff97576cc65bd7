// Package candle defines the OHLCV data model shared by the indicator,
// signal and engine packages.
package candle

import (
	"fmt"
	"sort"
	"time"
)

// Side is the direction of a trade or signal.
type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// Candle is a single OHLCV bar. Timestamps are UTC, minute resolution.
// Candles are treated as immutable once fetched.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Validate checks the OHLC relationships and the volume sign.
func (c Candle) Validate() error {
	if c.Time.IsZero() {
		return fmt.Errorf("candle has zero timestamp")
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle at %s has negative volume %f", c.Time, c.Volume)
	}
	if c.High < c.Open || c.High < c.Close || c.High < c.Low {
		return fmt.Errorf("candle at %s: high %f below open/close/low", c.Time, c.High)
	}
	if c.Low > c.Open || c.Low > c.Close {
		return fmt.Errorf("candle at %s: low %f above open/close", c.Time, c.Low)
	}
	return nil
}

// Series is a time-ordered sequence of candles with unique timestamps.
type Series []Candle

// Sort orders the series ascending by timestamp and drops duplicate
// timestamps, keeping the first occurrence.
func (s Series) Sort() Series {
	out := make(Series, len(s))
	copy(out, s)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	dedup := out[:0]
	for i, c := range out {
		if i > 0 && c.Time.Equal(out[i-1].Time) {
			continue
		}
		dedup = append(dedup, c)
	}
	return dedup
}

// Prefix returns the sub-series of all candles with Time <= t.
// The series must already be sorted; the result shares backing storage.
func (s Series) Prefix(t time.Time) Series {
	n := sort.Search(len(s), func(i int) bool {
		return s[i].Time.After(t)
	})
	return s[:n]
}

// Last returns the most recent candle. ok is false for an empty series.
func (s Series) Last() (Candle, bool) {
	if len(s) == 0 {
		return Candle{}, false
	}
	return s[len(s)-1], true
}

// Closes returns the close prices of the series, aligned by index.
func (s Series) Closes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Close
	}
	return out
}

// Volumes returns the volumes of the series, aligned by index.
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s))
	for i, c := range s {
		out[i] = c.Volume
	}
	return out
}

// Day is one calendar day of candles, keyed by its UTC date string.
type Day struct {
	Key     string // "2006-01-02"
	Candles Series
}

// GroupByDay splits a sorted series into calendar days (UTC), preserving
// the order in which days appear.
func (s Series) GroupByDay() []Day {
	var days []Day
	for _, c := range s {
		key := c.Time.UTC().Format("2006-01-02")
		if len(days) == 0 || days[len(days)-1].Key != key {
			days = append(days, Day{Key: key})
		}
		d := &days[len(days)-1]
		d.Candles = append(d.Candles, c)
	}
	return days
}
