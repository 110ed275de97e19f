// Package service contains telemetry ingest workflows
package service

import (
	"context"
	"time"

	"aquawatch/internal/modkit/repokit"
	perr "aquawatch/internal/platform/errors"
	"aquawatch/internal/platform/logger"
	"aquawatch/internal/platform/metrics"
	"aquawatch/internal/services/telemetry/domain"
)

// Service defines the telemetry service contract
type Service interface {
	domain.WriterPort
	domain.ReaderPort
}

// Svc implements the telemetry service
type Svc struct {
	snaps     domain.SnapshotRepo
	registrar domain.MachineRegistrar
	db        repokit.TxRunner
}

// New constructs a telemetry service
func New(db repokit.TxRunner, binder repokit.Binder[domain.MachineRegistrar], snaps domain.SnapshotRepo) *Svc {
	if db == nil {
		panic("telemetry.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("telemetry.Service requires a non nil registrar binder")
	}
	if snaps == nil {
		panic("telemetry.Service requires a non nil snapshot repo")
	}
	return &Svc{snaps: snaps, registrar: binder.Bind(db), db: db}
}

// Ingest validates, registers machines, and stores a batch of snapshots
func (s *Svc) Ingest(ctx context.Context, batch domain.IngestBatch) (domain.IngestResult, error) {
	start := time.Now()

	ss := make([]domain.Snapshot, 0, len(batch.Snapshots))
	seen := map[string]struct{}{}
	ids := make([]string, 0, 8)
	for i, in := range batch.Snapshots {
		at, err := time.Parse(time.RFC3339, in.Timestamp)
		if err != nil {
			metrics.ObserveIngest(metrics.ResultError, time.Since(start))
			return domain.IngestResult{}, perr.InvalidArgf("snapshot %d: bad timestamp %q", i, in.Timestamp)
		}
		if in.WaterLevel != nil && *in.WaterLevel < 0 {
			metrics.ObserveIngest(metrics.ResultError, time.Since(start))
			return domain.IngestResult{}, perr.InvalidArgf("snapshot %d: negative water level", i)
		}
		ss = append(ss, domain.Snapshot{
			MachineID:    in.MachineID,
			At:           at.UTC(),
			WaterLevel:   in.WaterLevel,
			Producing:    in.Producing,
			CompressorOn: in.CompressorOn,
			FullTank:     in.FullTank,
			AmbientTempC: in.AmbientTempC,
			HumidityPct:  in.HumidityPct,
		})
		if _, ok := seen[in.MachineID]; !ok {
			seen[in.MachineID] = struct{}{}
			ids = append(ids, in.MachineID)
		}
	}

	if err := s.registrar.EnsureMachines(ctx, ids); err != nil {
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		return domain.IngestResult{}, perr.Wrap(err, perr.ErrorCodeDB, "register machines")
	}
	if err := s.snaps.InsertSnapshots(ctx, ss); err != nil {
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		return domain.IngestResult{}, err
	}

	logger.C(ctx).Debug().
		Int("snapshots", len(ss)).
		Int("machines", len(ids)).
		Msg("telemetry batch stored")
	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
	return domain.IngestResult{Accepted: len(ss)}, nil
}

// Range returns snapshots for one machine in [from, to) ordered by time
func (s *Svc) Range(ctx context.Context, machineID string, from, to time.Time) ([]domain.Snapshot, error) {
	return s.snaps.Range(ctx, machineID, from, to)
}

// Earliest returns the timestamp of a machine's first snapshot
func (s *Svc) Earliest(ctx context.Context, machineID string) (time.Time, bool, error) {
	return s.snaps.Earliest(ctx, machineID)
}
