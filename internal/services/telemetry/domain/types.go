// Package domain holds the telemetry snapshot shapes shared by ingest and readers
package domain

import "time"

// Snapshot is one machine telemetry record as stored in clickhouse
type Snapshot struct {
	MachineID    string
	At           time.Time
	WaterLevel   *float64
	Producing    bool
	CompressorOn bool
	FullTank     bool
	AmbientTempC *float64
	HumidityPct  *float64
}

// IngestSnapshot is the wire shape accepted by the ingest endpoint
type IngestSnapshot struct {
	MachineID    string   `json:"machine_id" validate:"required,min=1,max=64"`
	Timestamp    string   `json:"timestamp" validate:"required"`
	WaterLevel   *float64 `json:"water_level,omitempty" validate:"omitempty,gte=0"`
	Producing    bool     `json:"producing"`
	CompressorOn bool     `json:"compressor_on"`
	FullTank     bool     `json:"full_tank"`
	AmbientTempC *float64 `json:"ambient_temp_c,omitempty"`
	HumidityPct  *float64 `json:"humidity_pct,omitempty" validate:"omitempty,gte=0,lte=100"`
}

// IngestBatch is a batch of snapshots from one or more machines
type IngestBatch struct {
	Snapshots []IngestSnapshot `json:"snapshots" validate:"required,min=1,max=5000,dive"`
}

// IngestResult reports how many snapshots were accepted
type IngestResult struct {
	Accepted int `json:"accepted"`
}
