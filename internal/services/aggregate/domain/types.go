// Package domain holds the core data structures for production aggregation
package domain

import (
	"time"

	"aquawatch/internal/core/event"
	"aquawatch/internal/core/period"
	"aquawatch/internal/core/status"
	teldomain "aquawatch/internal/services/telemetry/domain"
)

// Snapshot re-exports the telemetry snapshot shape consumed by the detector
type Snapshot = teldomain.Snapshot

// Mode selects how far back a run reaches
type Mode string

const (
	// ModeIncremental resumes from the stored watermark with a lookback overlap
	ModeIncremental Mode = "incremental"
	// ModeBackfill reprocesses from the machine's earliest snapshot
	ModeBackfill Mode = "backfill"
)

// Valid reports whether m is a supported run mode
func (m Mode) Valid() bool { return m == ModeIncremental || m == ModeBackfill }

// RunInput is the request shape for one aggregation run
type RunInput struct {
	Mode Mode `json:"mode" validate:"required,oneof=incremental backfill"`
	// MachineID limits the run to a single machine when set
	MachineID string `json:"machine_id,omitempty" validate:"omitempty,min=1,max=64"`
}

// MachineResult reports the outcome for one machine in a run.
// A failed machine never aborts the run; its error lands here
type MachineResult struct {
	MachineID      string `json:"machine_id"`
	Status         string `json:"status"` // ok, skipped, or error
	Error          string `json:"error,omitempty"`
	SnapshotsRead  int    `json:"snapshots_read"`
	EventsDetected int    `json:"events_detected"`
	PeriodsUpdated int    `json:"periods_updated"`
}

// Machine result statuses
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// RunReport is the response shape for one aggregation run
type RunReport struct {
	RunID             string          `json:"run_id"`
	Mode              Mode            `json:"mode"`
	StartedAt         time.Time       `json:"started_at"`
	FinishedAt        time.Time       `json:"finished_at"`
	MachinesProcessed int             `json:"machines_processed"`
	Results           []MachineResult `json:"results"`
}

// ProductionEvent is a persisted water level change.
// Liters is signed: positive for production, negative for drainage
type ProductionEvent struct {
	MachineID string
	At        time.Time
	Type      event.Type
	Liters    float64
	PrevLevel float64
	CurrLevel float64
}

// PeriodSummary is one machine's aggregate for one calendar bucket
type PeriodSummary struct {
	MachineID      string
	Granularity    period.Granularity
	PeriodStart    time.Time
	PeriodKey      string
	ProducedLiters float64
	DrainedLiters  float64
	Shares         status.Percentages
}

// MachineTotals is the lifetime production balance for one machine
type MachineTotals struct {
	MachineID      string  `json:"machine_id"`
	ProducedLiters float64 `json:"produced_liters"`
	DrainedLiters  float64 `json:"drained_liters"`
}
