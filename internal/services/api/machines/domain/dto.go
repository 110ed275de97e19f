// Package domain holds DTOs for machine http and service contracts
package domain

// Query windows use ISO dates interpreted as UTC day boundaries

// DateRange defines a start and end date for queries, inclusive start
// and exclusive end
type DateRange struct {
	Start string `json:"start" validate:"required,datetime=2006-01-02" example:"2026-08-01"`
	End   string `json:"end" validate:"required,datetime=2006-01-02" example:"2026-08-31"`
}

// ListInput filters the machine listing
type ListInput struct {
	Limit int `json:"limit,omitempty" validate:"omitempty,min=1,max=500" example:"100"`
}

// Machine is one registered machine with its lifetime totals
type Machine struct {
	MachineID      string  `json:"machine_id" example:"awg-001"`
	FirstSeenAt    string  `json:"first_seen_at" example:"2026-01-12T08:00:00Z"`
	ProducedLiters float64 `json:"produced_liters" example:"1280.5"`
	DrainedLiters  float64 `json:"drained_liters" example:"1100.0"`
}

// SummariesInput selects stored period summaries for one machine
type SummariesInput struct {
	MachineID   string    `json:"machine_id" validate:"required,min=1,max=64" example:"awg-001"`
	Granularity string    `json:"granularity" validate:"required,oneof=daily weekly monthly yearly" example:"daily"`
	Range       DateRange `json:"range"`
}

// SummaryRow is one stored period summary
type SummaryRow struct {
	PeriodStart     string  `json:"period_start" example:"2026-08-01"`
	PeriodKey       string  `json:"period_key" example:"2026-08-01"`
	ProducedLiters  float64 `json:"produced_liters" example:"12.4"`
	DrainedLiters   float64 `json:"drained_liters" example:"10.0"`
	ProducingPct    float64 `json:"producing_pct" example:"41"`
	IdlePct         float64 `json:"idle_pct" example:"40"`
	FullWaterPct    float64 `json:"full_water_pct" example:"11"`
	DisconnectedPct float64 `json:"disconnected_pct" example:"8"`
}

// StatusTodayInput selects the current UTC day's breakdown
type StatusTodayInput struct {
	MachineID string `json:"machine_id" validate:"required,min=1,max=64" example:"awg-001"`
}

// StatusToday is the current UTC day's state breakdown
type StatusToday struct {
	MachineID       string  `json:"machine_id" example:"awg-001"`
	Date            string  `json:"date" example:"2026-08-29"`
	ProducingPct    float64 `json:"producing_pct" example:"41"`
	IdlePct         float64 `json:"idle_pct" example:"40"`
	FullWaterPct    float64 `json:"full_water_pct" example:"11"`
	DisconnectedPct float64 `json:"disconnected_pct" example:"8"`
}
