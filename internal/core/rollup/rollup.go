// Package rollup re-derives coarser status breakdowns from finer ones.
//
// Aggregation is an unweighted arithmetic mean of the four state shares
// across the finer points in each group, deliberately not weighted by
// duration or data coverage. For groups with unequal point counts (a
// partial week, a month with a disconnected day) this can diverge
// slightly from a recomputation straight from raw telemetry; it is an
// approximation kept for compatibility with the stored summaries
package rollup

import (
	"math"
	"sort"
	"time"

	"aquawatch/internal/core/period"
	"aquawatch/internal/core/status"
)

// Point is one finer-grained bucket feeding a rollup
type Point struct {
	PeriodStart time.Time
	Shares      status.Percentages
}

// WeeklyFromDaily groups day points into ISO weeks (Monday start) and
// averages their shares
func WeeklyFromDaily(days []Point) []Point {
	return regroup(days, func(t time.Time) time.Time {
		return period.StartOf(period.Weekly, t)
	})
}

// MonthlyFromWeekly assigns each week to the month containing its start
// date and averages the shares
func MonthlyFromWeekly(weeks []Point) []Point {
	return regroup(weeks, func(t time.Time) time.Time {
		return period.StartOf(period.Monthly, t)
	})
}

// YearlyFromMonthly groups month points by calendar year and averages
// the shares
func YearlyFromMonthly(months []Point) []Point {
	return regroup(months, func(t time.Time) time.Time {
		return period.StartOf(period.Yearly, t)
	})
}

func regroup(points []Point, bucket func(time.Time) time.Time) []Point {
	if len(points) == 0 {
		return nil
	}

	type acc struct {
		sum status.Percentages
		n   int
	}
	groups := map[time.Time]*acc{}
	for _, p := range points {
		k := bucket(p.PeriodStart)
		a := groups[k]
		if a == nil {
			a = &acc{}
			groups[k] = a
		}
		a.sum.Producing += p.Shares.Producing
		a.sum.Idle += p.Shares.Idle
		a.sum.FullWater += p.Shares.FullWater
		a.sum.Disconnected += p.Shares.Disconnected
		a.n++
	}

	out := make([]Point, 0, len(groups))
	for k, a := range groups {
		n := float64(a.n)
		out = append(out, Point{
			PeriodStart: k,
			Shares: status.Normalize(status.Percentages{
				Producing:    math.Round(a.sum.Producing / n),
				Idle:         math.Round(a.sum.Idle / n),
				FullWater:    math.Round(a.sum.FullWater / n),
				Disconnected: math.Round(a.sum.Disconnected / n),
			}),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })
	return out
}
