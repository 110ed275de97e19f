// Package status classifies machine uptime windows into operational states
package status

// Percentages is the share of a window spent in each operational state.
// For any fully computed non-empty window the four fields sum to exactly 100
type Percentages struct {
	Producing    float64 `json:"producing"`
	Idle         float64 `json:"idle"`
	FullWater    float64 `json:"full_water"`
	Disconnected float64 `json:"disconnected"`
}

// Sum returns the total of the four state shares
func (p Percentages) Sum() float64 {
	return p.Producing + p.Idle + p.FullWater + p.Disconnected
}

// NoData is the defined convention for a window with no usable records
func NoData() Percentages { return Percentages{Disconnected: 100} }

// Normalize corrects independent rounding drift so the four shares sum
// to exactly 100. The difference is applied to the largest share; ties
// break toward the first-listed state (producing, idle, fullWater,
// disconnected). A zero-valued input is returned unchanged
func Normalize(p Percentages) Percentages {
	sum := p.Sum()
	if sum == 100 || sum == 0 {
		return p
	}
	diff := 100 - sum

	fields := [4]*float64{&p.Producing, &p.Idle, &p.FullWater, &p.Disconnected}
	largest := fields[0]
	for _, f := range fields[1:] {
		if *f > *largest {
			largest = f
		}
	}
	*largest += diff
	return p
}
