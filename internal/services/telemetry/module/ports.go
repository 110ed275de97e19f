package module

import (
	"context"
	"time"

	"aquawatch/internal/services/telemetry/domain"
	telsvc "aquawatch/internal/services/telemetry/service"
)

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

type adaptTelemetryPort struct{ svc telsvc.Service }

// Ingest stores a validated batch of snapshots
func (a adaptTelemetryPort) Ingest(ctx context.Context, batch domain.IngestBatch) (domain.IngestResult, error) {
	return a.svc.Ingest(ctx, batch)
}

// Range returns snapshots for one machine in [from, to)
func (a adaptTelemetryPort) Range(ctx context.Context, machineID string, from, to time.Time) ([]domain.Snapshot, error) {
	return a.svc.Range(ctx, machineID, from, to)
}

// Earliest returns the machine's first snapshot time
func (a adaptTelemetryPort) Earliest(ctx context.Context, machineID string) (time.Time, bool, error) {
	return a.svc.Earliest(ctx, machineID)
}
