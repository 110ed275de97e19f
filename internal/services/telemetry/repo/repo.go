// Package repo provides clickhouse and postgres access for telemetry
package repo

import (
	"context"
	"time"

	"aquawatch/internal/modkit/repokit"
	perr "aquawatch/internal/platform/errors"
	"aquawatch/internal/platform/store"
	"aquawatch/internal/services/telemetry/domain"
)

// snapshotCols is the column list used for both inserts and range reads.
// Order must match the batch row layout in InsertSnapshots
const snapshotCols = "machine_id, ts_utc, water_level, producing, compressor_on, full_tank, ambient_temp_c, humidity_pct"

// CH is a clickhouse backed snapshot repository
type CH struct {
	db store.Clickhouse
}

// NewCH wires a clickhouse connection to the snapshot repo
func NewCH(db store.Clickhouse) *CH {
	if db == nil {
		panic("telemetry repo requires a non nil clickhouse")
	}
	return &CH{db: db}
}

// InsertSnapshots appends a batch of snapshots to telemetry_snapshots
func (r *CH) InsertSnapshots(ctx context.Context, ss []domain.Snapshot) error {
	if len(ss) == 0 {
		return nil
	}
	rows := make([][]any, 0, len(ss))
	for _, s := range ss {
		rows = append(rows, []any{
			s.MachineID,
			s.At.UTC(),
			s.WaterLevel,
			s.Producing,
			s.CompressorOn,
			s.FullTank,
			s.AmbientTempC,
			s.HumidityPct,
		})
	}
	if err := r.db.Insert(ctx, "telemetry_snapshots ("+snapshotCols+")", rows); err != nil {
		return perr.Wrap(err, perr.ErrorCodeDB, "insert snapshots")
	}
	return nil
}

// Range returns snapshots for one machine in [from, to) ordered by time
func (r *CH) Range(ctx context.Context, machineID string, from, to time.Time) ([]domain.Snapshot, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+snapshotCols+`
		FROM telemetry_snapshots
		WHERE machine_id = ? AND ts_utc >= ? AND ts_utc < ?
		ORDER BY ts_utc ASC
	`, machineID, from.UTC(), to.UTC())
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "query snapshot range")
	}
	defer rows.Close()

	var out []domain.Snapshot
	for rows.Next() {
		var s domain.Snapshot
		if err := rows.Scan(
			&s.MachineID, &s.At, &s.WaterLevel,
			&s.Producing, &s.CompressorOn, &s.FullTank,
			&s.AmbientTempC, &s.HumidityPct,
		); err != nil {
			return nil, perr.Wrap(err, perr.ErrorCodeDB, "scan snapshot")
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Earliest returns the timestamp of a machine's first snapshot
func (r *CH) Earliest(ctx context.Context, machineID string) (time.Time, bool, error) {
	rows, err := r.db.Query(ctx, `
		SELECT min(ts_utc), count()
		FROM telemetry_snapshots
		WHERE machine_id = ?
	`, machineID)
	if err != nil {
		return time.Time{}, false, perr.Wrap(err, perr.ErrorCodeDB, "query earliest snapshot")
	}
	defer rows.Close()

	if !rows.Next() {
		return time.Time{}, false, rows.Err()
	}
	var (
		min time.Time
		n   uint64
	)
	if err := rows.Scan(&min, &n); err != nil {
		return time.Time{}, false, perr.Wrap(err, perr.ErrorCodeDB, "scan earliest snapshot")
	}
	if n == 0 {
		return time.Time{}, false, nil
	}
	return min.UTC(), true, nil
}

type (
	// PG is a Postgres binder for domain.MachineRegistrar
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.MachineRegistrar
func NewPG() repokit.Binder[domain.MachineRegistrar] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.MachineRegistrar { return &queries{q: q} }

// EnsureMachines registers any machine ids not yet present (idempotent)
func (r *queries) EnsureMachines(ctx context.Context, machineIDs []string) error {
	if len(machineIDs) == 0 {
		return nil
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO machines (machine_id, first_seen_at)
		SELECT unnest($1::text[]), now()
		ON CONFLICT (machine_id) DO NOTHING
	`, machineIDs)
	return err
}
