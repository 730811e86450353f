// Package engine holds the commission and pace calculations.
//
// Every function here is pure: no I/O, no shared state, inputs are never
// mutated. They are safe to call concurrently and on every request.
package engine

import (
	"math"
	"strings"
	"time"
)

// civilDate is a calendar day independent of clock time.
type civilDate struct {
	year  int
	month time.Month
	day   int
}

func civilOf(t time.Time) civilDate {
	y, m, d := t.Date()
	return civilDate{year: y, month: m, day: d}
}

func (c civilDate) sameMonth(year int, month time.Month) bool {
	return c.year == year && c.month == month
}

func (c civilDate) before(o civilDate) bool {
	if c.year != o.year {
		return c.year < o.year
	}
	if c.month != o.month {
		return c.month < o.month
	}
	return c.day < o.day
}

func (c civilDate) addDays(n int) civilDate {
	return civilOf(time.Date(c.year, c.month, c.day+n, 12, 0, 0, 0, time.UTC))
}

// timestampLayouts are tried in order after the plain date form.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseDeliveryDate resolves a delivery date to midnight of its calendar day
// in loc. Plain "YYYY-MM-DD" values are taken as calendar days; timestamps
// with an offset are converted into loc first.
func ParseDeliveryDate(s string, loc *time.Location) (time.Time, bool) {
	c, ok := parseCivil(s, loc)
	if !ok {
		return time.Time{}, false
	}
	return time.Date(c.year, c.month, c.day, 0, 0, 0, 0, loc), true
}

func parseCivil(s string, loc *time.Location) (civilDate, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return civilDate{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return civilOf(t), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return civilOf(t.In(loc)), true
		}
	}
	return civilDate{}, false
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func previousMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

// roundHalfUp rounds .5 toward +Inf, matching the rounding the dashboard
// figures have always used (-2.5 rounds to -2, 2.5 to 3).
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
