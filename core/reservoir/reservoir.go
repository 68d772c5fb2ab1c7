// Package reservoir tracks the stored energy of the hydro plant from one
// period to the next.
package reservoir

import "github.com/kilianp07/hydrothermal/core/model"

// Transition is the outcome of one period applied to the reservoir.
type Transition struct {
	Before float64
	After  float64
	// Spill is the energy that would have pushed storage above the maximum
	// and was discarded by the clamp.
	Spill float64
	// Shortfall is the energy missing to keep storage at the minimum; the
	// clamp creates it out of nothing.
	Shortfall float64
}

// Clamped reports whether the bounds absorbed any energy.
func (t Transition) Clamped() bool { return t.Spill > 0 || t.Shortfall > 0 }

// Tracker applies hydro releases and inflows to the storage volume.
type Tracker struct {
	min, max float64
}

// NewTracker returns a Tracker for the operating range of res.
func NewTracker(res model.Reservoir) Tracker {
	return Tracker{min: res.VolumeMin(), max: res.VolumeMax()}
}

// Bounds returns the operating range in MWh.
func (t Tracker) Bounds() (min, max float64) { return t.min, t.max }

// Step returns the storage after a period in which the plant generated
// hydroMW for hours and inflowMWh entered the reservoir. The result is
// clamped to the operating range.
func (t Tracker) Step(before, inflowMWh, hydroMW, hours float64) Transition {
	raw := before + inflowMWh - hydroMW*hours
	tr := Transition{Before: before, After: raw}
	switch {
	case raw > t.max:
		tr.After = t.max
		tr.Spill = raw - t.max
	case raw < t.min:
		tr.After = t.min
		tr.Shortfall = t.min - raw
	}
	return tr
}
