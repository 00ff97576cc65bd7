package indicator

import "time"

// Session predicates are plain hour-of-day range checks in UTC.
// All windows are half-open: [startHour, endHour).

// InHourWindow reports whether t falls inside [startHour, endHour) UTC.
func InHourWindow(t time.Time, startHour, endHour int) bool {
	h := t.UTC().Hour()
	return h >= startHour && h < endHour
}

// IsORBWindow reports whether t falls inside the opening-range window.
func IsORBWindow(t time.Time, startHour, endHour int) bool {
	return InHourWindow(t, startHour, endHour)
}

// IsEntryWindow reports whether t falls inside the entry window.
func IsEntryWindow(t time.Time, startHour, endHour int) bool {
	return InHourWindow(t, startHour, endHour)
}

// IsTradingSession reports whether t falls inside the trading session.
func IsTradingSession(t time.Time, startHour, endHour int) bool {
	return InHourWindow(t, startHour, endHour)
}
