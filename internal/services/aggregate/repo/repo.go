// Package repo provides postgres access for aggregation writes and reads
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aquawatch/internal/core/period"
	"aquawatch/internal/core/status"
	"aquawatch/internal/modkit/repokit"
	perr "aquawatch/internal/platform/errors"
	"aquawatch/internal/platform/store"
	"aquawatch/internal/services/aggregate/domain"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

// summaryTable maps a granularity to its summary table.
// Summaries live in one table per granularity so each keeps its own
// natural primary key on (machine_id, period_start)
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

// ListMachineIDs returns all registered machine ids
func (r *queries) ListMachineIDs(ctx context.Context) ([]string, error) {
	return store.Many(ctx, r.q, func(row store.Row) (string, error) {
		var id string
		err := row.Scan(&id)
		return id, err
	}, `select machine_id from machines order by machine_id`)
}

// UpsertEvents stores detected events keyed by (machine_id, ts_utc).
// Re-detection of an already stored event is a no-op, which keeps
// overlapping incremental runs idempotent
func (r *queries) UpsertEvents(ctx context.Context, evs []domain.ProductionEvent) (int, error) {
	inserted := 0
	for _, ev := range evs {
		tag, err := r.q.Exec(ctx, `
			INSERT INTO production_events (machine_id, ts_utc, event_type, liters, prev_level, curr_level)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (machine_id, ts_utc) DO NOTHING
		`, ev.MachineID, ev.At.UTC(), string(ev.Type), ev.Liters, ev.PrevLevel, ev.CurrLevel)
		if err != nil {
			return inserted, fmt.Errorf("insert event %s@%s: %w", ev.MachineID, ev.At.UTC(), err)
		}
		if tag.RowsAffected() > 0 {
			inserted++
		}
	}
	return inserted, nil
}

// EventTotals sums produced and drained liters over [from, to) as positive magnitudes
func (r *queries) EventTotals(ctx context.Context, machineID string, from, to time.Time) (float64, float64, error) {
	rows, err := r.q.Query(ctx, `
		select
			coalesce(sum(liters) filter (where event_type = 'production'), 0),
			coalesce(sum(-liters) filter (where event_type = 'drainage'), 0)
		from production_events
		where machine_id = $1 and ts_utc >= $2 and ts_utc < $3
	`, machineID, from.UTC(), to.UTC())
	if err != nil {
		return 0, 0, err
	}
	defer rows.Close()
	var produced, drained float64
	if rows.Next() {
		if err := rows.Scan(&produced, &drained); err != nil {
			return 0, 0, err
		}
	}
	return produced, drained, rows.Err()
}

// Watermark returns the machine's last aggregated snapshot time
func (r *queries) Watermark(ctx context.Context, machineID string) (time.Time, bool, error) {
	ts, err := store.One(ctx, r.q, func(row store.Row) (time.Time, error) {
		var t time.Time
		return t, row.Scan(&t)
	}, `
		select last_snapshot_ts from aggregation_watermarks where machine_id = $1
	`, machineID)
	if errors.Is(err, perr.ErrNotFound) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	return ts.UTC(), true, nil
}

// AdvanceWatermark moves the watermark forward, never backward.
// The upsert touches exactly one row, so anything else is a bug
func (r *queries) AdvanceWatermark(ctx context.Context, machineID string, ts time.Time) error {
	return store.ExecOne(ctx, r.q, `
		INSERT INTO aggregation_watermarks (machine_id, last_snapshot_ts, last_run_at)
		VALUES ($1, $2, now())
		ON CONFLICT (machine_id) DO UPDATE
		SET last_snapshot_ts = greatest(aggregation_watermarks.last_snapshot_ts, excluded.last_snapshot_ts),
			last_run_at = now()
	`, machineID, ts.UTC())
}

// UpsertSummaries writes period summaries, replacing any stored row for
// the same bucket
func (r *queries) UpsertSummaries(ctx context.Context, sums []domain.PeriodSummary) error {
	for _, s := range sums {
		tbl, err := summaryTable(s.Granularity)
		if err != nil {
			return err
		}
		_, err = r.q.Exec(ctx, `
			INSERT INTO `+tbl+` (
				machine_id, period_start, period_key,
				produced_liters, drained_liters,
				producing_pct, idle_pct, full_water_pct, disconnected_pct,
				updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
			ON CONFLICT (machine_id, period_start) DO UPDATE SET
				period_key = excluded.period_key,
				produced_liters = excluded.produced_liters,
				drained_liters = excluded.drained_liters,
				producing_pct = excluded.producing_pct,
				idle_pct = excluded.idle_pct,
				full_water_pct = excluded.full_water_pct,
				disconnected_pct = excluded.disconnected_pct,
				updated_at = now()
		`,
			s.MachineID, s.PeriodStart.UTC(), s.PeriodKey,
			s.ProducedLiters, s.DrainedLiters,
			s.Shares.Producing, s.Shares.Idle, s.Shares.FullWater, s.Shares.Disconnected,
		)
		if err != nil {
			return fmt.Errorf("upsert %s summary %s/%s: %w", s.Granularity, s.MachineID, s.PeriodKey, err)
		}
	}
	return nil
}

// summaryRow mirrors one summary table row for by-name scanning
type summaryRow struct {
	MachineID       string    `db:"machine_id"`
	PeriodStart     time.Time `db:"period_start"`
	PeriodKey       string    `db:"period_key"`
	ProducedLiters  float64   `db:"produced_liters"`
	DrainedLiters   float64   `db:"drained_liters"`
	ProducingPct    float64   `db:"producing_pct"`
	IdlePct         float64   `db:"idle_pct"`
	FullWaterPct    float64   `db:"full_water_pct"`
	DisconnectedPct float64   `db:"disconnected_pct"`
}

func (rr summaryRow) toDomain(g period.Granularity) domain.PeriodSummary {
	return domain.PeriodSummary{
		MachineID:      rr.MachineID,
		Granularity:    g,
		PeriodStart:    rr.PeriodStart.UTC(),
		PeriodKey:      rr.PeriodKey,
		ProducedLiters: rr.ProducedLiters,
		DrainedLiters:  rr.DrainedLiters,
		Shares: status.Percentages{
			Producing:    rr.ProducingPct,
			Idle:         rr.IdlePct,
			FullWater:    rr.FullWaterPct,
			Disconnected: rr.DisconnectedPct,
		},
	}
}

// Summaries reads stored summaries with period_start in [from, to)
func (r *queries) Summaries(
	ctx context.Context,
	machineID string,
	g period.Granularity,
	from, to time.Time,
) ([]domain.PeriodSummary, error) {
	tbl, err := summaryTable(g)
	if err != nil {
		return nil, err
	}
	rowsT, err := store.StructsByName[summaryRow](ctx, r.q, `
		select machine_id, period_start, period_key,
			produced_liters, drained_liters,
			producing_pct, idle_pct, full_water_pct, disconnected_pct
		from `+tbl+`
		where machine_id = $1 and period_start >= $2 and period_start < $3
		order by period_start asc
	`, machineID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	out := make([]domain.PeriodSummary, 0, len(rowsT))
	for _, rr := range rowsT {
		out = append(out, rr.toDomain(g))
	}
	return out, nil
}

// RecomputeTotals rebuilds lifetime totals from stored events. Events
// are append only, so repeated recomputes can only grow the totals
func (r *queries) RecomputeTotals(ctx context.Context, machineID string) (domain.MachineTotals, error) {
	rows, err := r.q.Query(ctx, `
		INSERT INTO machine_production_totals (machine_id, produced_liters, drained_liters, updated_at)
		SELECT $1,
			coalesce(sum(liters) filter (where event_type = 'production'), 0),
			coalesce(sum(-liters) filter (where event_type = 'drainage'), 0),
			now()
		FROM production_events
		WHERE machine_id = $1
		ON CONFLICT (machine_id) DO UPDATE SET
			produced_liters = excluded.produced_liters,
			drained_liters = excluded.drained_liters,
			updated_at = now()
		RETURNING produced_liters, drained_liters
	`, machineID)
	if err != nil {
		return domain.MachineTotals{}, err
	}
	defer rows.Close()
	t := domain.MachineTotals{MachineID: machineID}
	if rows.Next() {
		if err := rows.Scan(&t.ProducedLiters, &t.DrainedLiters); err != nil {
			return domain.MachineTotals{}, err
		}
	}
	return t, rows.Err()
}
