package indicator

import (
	"testing"
	"time"
)

func TestInHourWindow(t *testing.T) {
	at := func(hour, minute int) time.Time {
		return time.Date(2024, 1, 2, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name       string
		t          time.Time
		start, end int
		want       bool
	}{
		{"window start is inclusive", at(11, 0), 11, 13, true},
		{"inside window", at(12, 59), 11, 13, true},
		{"window end is exclusive", at(13, 0), 11, 13, false},
		{"before window", at(10, 59), 11, 13, false},
		{"non-utc time is normalized", at(11, 30).In(time.FixedZone("JST", 9*3600)), 11, 13, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InHourWindow(tt.t, tt.start, tt.end); got != tt.want {
				t.Errorf("InHourWindow() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSessionPredicates(t *testing.T) {
	noon := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	if !IsORBWindow(noon.Add(-time.Hour), 11, 12) {
		t.Error("IsORBWindow() = false at 11:00 for [11,12)")
	}
	if IsORBWindow(noon, 11, 12) {
		t.Error("IsORBWindow() = true at 12:00 for [11,12)")
	}
	if !IsEntryWindow(noon, 11, 13) {
		t.Error("IsEntryWindow() = false at 12:00 for [11,13)")
	}
	if !IsTradingSession(noon, 11, 17) {
		t.Error("IsTradingSession() = false at 12:00 for [11,17)")
	}
}
