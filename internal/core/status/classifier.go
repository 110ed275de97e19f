package status

import (
	"math"
	"sort"
	"time"
)

// State is one of the four mutually exclusive operational states
type State int

const (
	// StateProducing means the machine was actively generating water
	StateProducing State = iota
	// StateIdle means the machine was powered and connected but not generating
	StateIdle
	// StateFullWater means the tank was full and generation was suppressed
	StateFullWater
	// StateDisconnected means no (or stale) telemetry covered the interval
	StateDisconnected
)

// Sample is the slice of a telemetry record the classifier needs
type Sample struct {
	At           time.Time
	Producing    bool
	CompressorOn bool
	FullTank     bool
}

// StateOf maps one sample to its state. Priority: full tank first, then
// any sign of active generation (producing flag or compressor running),
// otherwise idle
func StateOf(s Sample) State {
	switch {
	case s.FullTank:
		return StateFullWater
	case s.Producing || s.CompressorOn:
		return StateProducing
	default:
		return StateIdle
	}
}

// Classifier computes state shares over bounded windows of samples
type Classifier struct {
	// GapThreshold is the silence span beyond which the remainder of a
	// gap counts as disconnected rather than the last reported state
	GapThreshold time.Duration

	// NominalInterval is the expected sampling cadence; when a gap
	// exceeds GapThreshold, the reporting sample keeps only one nominal
	// interval's worth of its state
	NominalInterval time.Duration

	// Now is the clock used to clip in-progress windows; nil means time.Now
	Now func() time.Time
}

// Default tuning for the reference fleet: samples arrive roughly every
// ten seconds, and half a minute of silence is treated as a disconnect
const (
	DefaultGapThreshold    = 30 * time.Second
	DefaultNominalInterval = 10 * time.Second
)

// NewClassifier builds a Classifier, substituting defaults for
// non-positive tunables
func NewClassifier(gap, nominal time.Duration) Classifier {
	if gap <= 0 {
		gap = DefaultGapThreshold
	}
	if nominal <= 0 {
		nominal = DefaultNominalInterval
	}
	return Classifier{GapThreshold: gap, NominalInterval: nominal}
}

// Classify walks samples inside [windowStart, windowEnd) and returns the
// integer-rounded share of elapsed time spent in each state, corrected
// to sum to exactly 100. Windows that include the current moment are
// clipped to now, so querying an in-progress day yields shares of the
// elapsed portion only. Empty or zero-length windows return the no-data
// convention (disconnected 100)
func (c Classifier) Classify(samples []Sample, windowStart, windowEnd time.Time) Percentages {
	if !windowEnd.After(windowStart) {
		return NoData()
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	end := windowEnd
	if n := now(); n.Before(end) {
		end = n
	}
	if !end.After(windowStart) {
		// window lies entirely in the future
		return NoData()
	}

	gap := c.GapThreshold
	if gap <= 0 {
		gap = DefaultGapThreshold
	}
	nominal := c.NominalInterval
	if nominal <= 0 {
		nominal = DefaultNominalInterval
	}

	in := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s.At.Before(windowStart) || !s.At.Before(end) {
			continue
		}
		in = append(in, s)
	}
	if len(in) == 0 {
		return NoData()
	}
	sort.Slice(in, func(i, j int) bool { return in[i].At.Before(in[j].At) })

	var durations [4]time.Duration
	total := end.Sub(windowStart)

	// time before the first sample is unaccounted for
	durations[StateDisconnected] += in[0].At.Sub(windowStart)

	for i, s := range in {
		st := StateOf(s)
		if i+1 == len(in) {
			// the last record's state runs to the effective window end
			durations[st] += end.Sub(s.At)
			break
		}
		span := in[i+1].At.Sub(s.At)
		if span <= 0 {
			continue
		}
		if span > gap {
			// the machine reported this state briefly, then went silent
			durations[st] += nominal
			durations[StateDisconnected] += span - nominal
			continue
		}
		durations[st] += span
	}

	totalMin := total.Minutes()
	pct := func(st State) float64 {
		return math.Round(durations[st].Minutes() / totalMin * 100)
	}
	return Normalize(Percentages{
		Producing:    pct(StateProducing),
		Idle:         pct(StateIdle),
		FullWater:    pct(StateFullWater),
		Disconnected: pct(StateDisconnected),
	})
}
