// Package event detects discrete production and drainage events from
// consecutive water-level readings
package event

import "time"

// Type discriminates detected events
type Type string

const (
	// TypeProduction is a plausible water-level increase from generation
	TypeProduction Type = "production"
	// TypeDrainage is a sharp decrease attributed to manual tank emptying
	TypeDrainage Type = "drainage"
)

// Snapshot is the slice of a telemetry record the detector compares.
// WaterLevel is nil when the sensor did not report a level
type Snapshot struct {
	MachineID  string
	At         time.Time
	WaterLevel *float64
}

// Event is a detected level transition. Liters is signed: positive for
// production, negative for drainage. At is the timestamp of the later
// of the two compared snapshots
type Event struct {
	MachineID string
	At        time.Time
	Type      Type
	Liters    float64
	PrevLevel float64
	CurrLevel float64
}

// Params tunes detection thresholds. The reference deployment values are
// empirically tuned, not derived; they are configuration, not truth
type Params struct {
	// DrainMinLiters is the absolute drop that always counts as drainage
	DrainMinLiters float64
	// DrainMinPct is the percentage drop that counts as drainage
	DrainMinPct float64
	// ProdMinLiters is the smallest increase treated as production
	ProdMinLiters float64
	// MaxRateLPM caps the physically plausible production rate in
	// liters per minute; faster increases are sensor glitches
	MaxRateLPM float64
	// Staleness bounds how old the current snapshot may be, relative to
	// the moment detection runs, before it is ignored
	Staleness time.Duration
}

// DefaultParams returns the reference deployment tuning
func DefaultParams() Params {
	return Params{
		DrainMinLiters: 3.0,
		DrainMinPct:    50,
		ProdMinLiters:  0.05,
		MaxRateLPM:     0.05,
		Staleness:      2 * time.Hour,
	}
}

// Detector classifies snapshot pairs. The zero value is unusable; build
// one with New so zeroed params fall back to defaults
type Detector struct {
	params Params
}

// New builds a Detector, substituting reference defaults for zeroed params
func New(p Params) Detector {
	def := DefaultParams()
	if p.DrainMinLiters <= 0 {
		p.DrainMinLiters = def.DrainMinLiters
	}
	if p.DrainMinPct <= 0 {
		p.DrainMinPct = def.DrainMinPct
	}
	if p.ProdMinLiters <= 0 {
		p.ProdMinLiters = def.ProdMinLiters
	}
	if p.MaxRateLPM <= 0 {
		p.MaxRateLPM = def.MaxRateLPM
	}
	if p.Staleness <= 0 {
		p.Staleness = def.Staleness
	}
	return Detector{params: p}
}

// Params returns the effective tuning
func (d Detector) Params() Params { return d.params }

// Detect compares two consecutive snapshots for the same machine,
// ordered prev before curr, and reports whether a production or drainage
// event occurred. asOf is the moment detection runs and gates staleness:
// a curr older than Staleness yields no event, so long outages cannot
// manufacture production. A pair can never yield both event types
func (d Detector) Detect(prev, curr Snapshot, asOf time.Time) (Event, bool) {
	if prev.WaterLevel == nil || curr.WaterLevel == nil {
		return Event{}, false
	}
	if !curr.At.After(prev.At) {
		return Event{}, false
	}
	if asOf.Sub(curr.At) > d.params.Staleness {
		return Event{}, false
	}

	pl, cl := *prev.WaterLevel, *curr.WaterLevel

	if decrease := pl - cl; decrease > 0 {
		pctDecrease := 0.0
		if pl > 0 {
			pctDecrease = decrease / pl * 100
		}
		if decrease > d.params.DrainMinLiters || pctDecrease > d.params.DrainMinPct {
			return Event{
				MachineID: curr.MachineID,
				At:        curr.At,
				Type:      TypeDrainage,
				Liters:    cl - pl,
				PrevLevel: pl,
				CurrLevel: cl,
			}, true
		}
		return Event{}, false
	}

	diff := cl - pl
	if diff <= d.params.ProdMinLiters {
		return Event{}, false
	}
	minutes := curr.At.Sub(prev.At).Minutes()
	if diff > d.params.MaxRateLPM*minutes {
		// implies an impossible fill rate; sensor glitch or clock jump
		return Event{}, false
	}
	return Event{
		MachineID: curr.MachineID,
		At:        curr.At,
		Type:      TypeProduction,
		Liters:    diff,
		PrevLevel: pl,
		CurrLevel: cl,
	}, true
}
