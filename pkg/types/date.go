package types

import (
	"math"
	"strings"
	"time"
)

// DateLayout is the only accepted textual form of a civil date.
const DateLayout = "2006-01-02"

// Day truncates t to its civil day at UTC midnight. Every date stored or
// compared by the engine goes through Day first.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date. Malformed input yields an
// InvalidMeasurementError.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &InvalidMeasurementError{
			Field:  "date",
			Value:  s,
			Reason: "dates must look like 2024-01-31",
		}
	}
	return Day(t), nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// DaysBetween returns the number of whole civil days from a to b.
// It is negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	return int(math.Round(Day(b).Sub(Day(a)).Hours() / 24))
}

// AddDays shifts a civil date by n days.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// InRange reports whether d falls inside [from, to]. A zero bound is open.
func InRange(d, from, to time.Time) bool {
	d = Day(d)
	if !from.IsZero() && d.Before(Day(from)) {
		return false
	}
	if !to.IsZero() && d.After(Day(to)) {
		return false
	}
	return true
}
