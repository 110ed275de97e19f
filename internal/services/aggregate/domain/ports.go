package domain

import (
	"context"
	"time"

	"aquawatch/internal/core/period"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	Run(ctx context.Context, in RunInput) (RunReport, error)
}

// SnapshotSource reads telemetry for detection and classification
type SnapshotSource interface {
	Range(ctx context.Context, machineID string, from, to time.Time) ([]Snapshot, error)
	Earliest(ctx context.Context, machineID string) (time.Time, bool, error)
}

// StorageRepo is the postgres persistence surface for aggregation
type StorageRepo interface {
	// ListMachineIDs returns all registered machine ids
	ListMachineIDs(ctx context.Context) ([]string, error)

	// UpsertEvents stores detected events, skipping already-known ones
	UpsertEvents(ctx context.Context, evs []ProductionEvent) (inserted int, err error)

	// EventTotals sums produced and drained liters over [from, to).
	// Both results are positive magnitudes
	EventTotals(ctx context.Context, machineID string, from, to time.Time) (produced, drained float64, err error)

	// Watermark returns the machine's last aggregated snapshot time,
	// ok=false when the machine has never been aggregated
	Watermark(ctx context.Context, machineID string) (time.Time, bool, error)

	// AdvanceWatermark moves the watermark forward, never backward
	AdvanceWatermark(ctx context.Context, machineID string, ts time.Time) error

	// UpsertSummaries writes period summaries for one granularity
	UpsertSummaries(ctx context.Context, sums []PeriodSummary) error

	// Summaries reads stored summaries with period_start in [from, to)
	Summaries(ctx context.Context, machineID string, g period.Granularity, from, to time.Time) ([]PeriodSummary, error)

	// RecomputeTotals rebuilds the lifetime totals from stored events
	RecomputeTotals(ctx context.Context, machineID string) (MachineTotals, error)
}
