// Package period implements calendar-aligned bucket arithmetic in UTC
package period

import (
	"fmt"
	"time"
)

// Granularity is the bucket size for aggregation
type Granularity string

const (
	// Daily buckets cover one UTC calendar date
	Daily Granularity = "daily"
	// Weekly buckets run Monday 00:00 UTC to the following Monday
	Weekly Granularity = "weekly"
	// Monthly buckets cover one calendar month
	Monthly Granularity = "monthly"
	// Yearly buckets cover one calendar year
	Yearly Granularity = "yearly"
)

// All lists supported granularities in ascending coarseness
func All() []Granularity { return []Granularity{Daily, Weekly, Monthly, Yearly} }

// Valid reports whether g is one of the supported granularities
func (g Granularity) Valid() bool {
	switch g {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// StartOf truncates t to the start of its bucket at granularity g.
// Always computed in UTC regardless of t's location
func StartOf(g Granularity, t time.Time) time.Time {
	t = t.UTC()
	switch g {
	case Daily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case Weekly:
		d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		// Monday start; Go weekday Sunday==0
		off := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -off)
	case Monthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// Next returns the start of the bucket following start at granularity g
func Next(g Granularity, start time.Time) time.Time {
	start = start.UTC()
	switch g {
	case Daily:
		return start.AddDate(0, 0, 1)
	case Weekly:
		return start.AddDate(0, 0, 7)
	case Monthly:
		return start.AddDate(0, 1, 0)
	case Yearly:
		return start.AddDate(1, 0, 0)
	}
	return start
}

// Key renders a stable human-readable label for a bucket start.
// Weekly keys use the ISO week-year and week number (Thursday rule),
// so a week starting in late December can carry the next year's label
func Key(g Granularity, start time.Time) string {
	start = start.UTC()
	switch g {
	case Daily:
		return start.Format("2006-01-02")
	case Weekly:
		y, w := start.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case Monthly:
		return start.Format("2006-01")
	case Yearly:
		return start.Format("2006")
	}
	return start.Format(time.RFC3339)
}
