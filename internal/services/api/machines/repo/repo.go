// Package repo provides postgres access for machine reads
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aquawatch/internal/core/period"
	"aquawatch/internal/modkit/repokit"
	perr "aquawatch/internal/platform/errors"
	"aquawatch/internal/platform/store"
)

// Repo is the minimal persistence surface for machine reads
type Repo interface {
	List(ctx context.Context, limit int) ([]RowMachine, error)
	Summaries(ctx context.Context, machineID string, g period.Granularity, from, to time.Time) ([]RowSummary, error)
	DailySummary(ctx context.Context, machineID string, day time.Time) (RowSummary, bool, error)
}

// RowMachine is one machine joined to its lifetime totals
type RowMachine struct {
	MachineID      string
	FirstSeenAt    time.Time
	ProducedLiters float64
	DrainedLiters  float64
}

// RowSummary is one stored period summary row
type RowSummary struct {
	PeriodStart     time.Time `db:"period_start"`
	PeriodKey       string    `db:"period_key"`
	ProducedLiters  float64   `db:"produced_liters"`
	DrainedLiters   float64   `db:"drained_liters"`
	ProducingPct    float64   `db:"producing_pct"`
	IdlePct         float64   `db:"idle_pct"`
	FullWaterPct    float64   `db:"full_water_pct"`
	DisconnectedPct float64   `db:"disconnected_pct"`
}

type (
	// PG is a binder that can bind the repo to a Queryer or TxRunner
	PG struct{}
	// queries implements the Repo interface
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder that can bind the repo to a Queryer or TxRunner
func NewPG() repokit.Binder[Repo] { return PG{} }

// Bind wires a Queryer to the repo
func (PG) Bind(q repokit.Queryer) Repo { return &queries{q: q} }

func summaryTable(g period.Granularity) (string, error) {
	switch g {
	case period.Daily:
		return "summary_daily", nil
	case period.Weekly:
		return "summary_weekly", nil
	case period.Monthly:
		return "summary_monthly", nil
	case period.Yearly:
		return "summary_yearly", nil
	}
	return "", fmt.Errorf("unknown granularity %q", g)
}

func (r *queries) List(ctx context.Context, limit int) ([]RowMachine, error) {
	if limit <= 0 {
		limit = 100
	}
	const sql = `
select m.machine_id, m.first_seen_at,
	coalesce(t.produced_liters, 0), coalesce(t.drained_liters, 0)
from machines m
left join machine_production_totals t on t.machine_id = m.machine_id
order by m.machine_id asc
limit $1
`
	return store.Many(ctx, r.q, func(row store.Row) (RowMachine, error) {
		var rr RowMachine
		err := row.Scan(&rr.MachineID, &rr.FirstSeenAt, &rr.ProducedLiters, &rr.DrainedLiters)
		return rr, err
	}, sql, limit)
}

func (r *queries) Summaries(
	ctx context.Context,
	machineID string,
	g period.Granularity,
	from, to time.Time,
) ([]RowSummary, error) {
	tbl, err := summaryTable(g)
	if err != nil {
		return nil, err
	}
	return store.StructsByName[RowSummary](ctx, r.q, `
select period_start, period_key, produced_liters, drained_liters,
	producing_pct, idle_pct, full_water_pct, disconnected_pct
from `+tbl+`
where machine_id = $1 and period_start >= $2 and period_start < $3
order by period_start asc
`, machineID, from.UTC(), to.UTC())
}

func (r *queries) DailySummary(ctx context.Context, machineID string, day time.Time) (RowSummary, bool, error) {
	rr, err := store.StructByName[RowSummary](ctx, r.q, `
select period_start, period_key, produced_liters, drained_liters,
	producing_pct, idle_pct, full_water_pct, disconnected_pct
from summary_daily
where machine_id = $1 and period_start = $2
`, machineID, day.UTC())
	if errors.Is(err, perr.ErrNotFound) {
		return RowSummary{}, false, nil
	}
	if err != nil {
		return RowSummary{}, false, err
	}
	return rr, true, nil
}
