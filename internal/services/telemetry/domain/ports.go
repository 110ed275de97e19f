package domain

import (
	"context"
	"time"
)

// WriterPort accepts validated snapshots for storage
type WriterPort interface {
	Ingest(ctx context.Context, batch IngestBatch) (IngestResult, error)
}

// ReaderPort exposes the snapshot reads the aggregation pipeline needs
type ReaderPort interface {
	// Range returns snapshots for one machine in [from, to), ordered by time
	Range(ctx context.Context, machineID string, from, to time.Time) ([]Snapshot, error)

	// Earliest returns the timestamp of the machine's first snapshot,
	// ok=false when the machine has no telemetry at all
	Earliest(ctx context.Context, machineID string) (time.Time, bool, error)
}

// SnapshotRepo is the storage surface backed by clickhouse
type SnapshotRepo interface {
	InsertSnapshots(ctx context.Context, ss []Snapshot) error
	Range(ctx context.Context, machineID string, from, to time.Time) ([]Snapshot, error)
	Earliest(ctx context.Context, machineID string) (time.Time, bool, error)
}

// MachineRegistrar keeps the machine registry in step with incoming telemetry
type MachineRegistrar interface {
	EnsureMachines(ctx context.Context, machineIDs []string) error
}
