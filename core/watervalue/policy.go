package watervalue

import (
	"fmt"

	"github.com/kilianp07/hydrothermal/core/model"
)

// Policy names accepted in configuration.
const (
	PolicyFlat         = "flat"
	PolicyStorageRatio = "storage_ratio"
)

// Policy derives the next water-value vector from a completed annual pass.
type Policy interface {
	Name() string
	// Next returns a new vector; prev must not be modified.
	Next(prev []float64, traj model.Trajectory) []float64
}

// Flat prices water at a fixed share of the thermal cost in every period
// except the last, whatever the trajectory.
type Flat struct {
	ThermalCost      float64
	EfficiencyFactor float64
}

func (Flat) Name() string { return PolicyFlat }

// Next implements Policy.
func (f Flat) Next(prev []float64, _ model.Trajectory) []float64 {
	next := append([]float64(nil), prev...)
	for i := 0; i < len(next)-1; i++ {
		next[i] = f.ThermalCost * f.EfficiencyFactor
	}
	return next
}

// StorageRatio is the shadow-price update: storage left at the end of period i
// sets the value of water in period i+1, from zero when the reservoir is full
// to the thermal cost when it is empty. The first period keeps its value.
type StorageRatio struct {
	ThermalCost float64
	Reservoir   model.Reservoir
}

func (StorageRatio) Name() string { return PolicyStorageRatio }

// Next implements Policy.
func (s StorageRatio) Next(prev []float64, traj model.Trajectory) []float64 {
	next := append([]float64(nil), prev...)
	for i := 0; i+1 < len(next) && i < len(traj.Periods); i++ {
		next[i+1] = s.ThermalCost * (1 - s.Reservoir.StorageRatio(traj.Periods[i].StorageAfter))
	}
	return next
}

// NewPolicy builds the policy selected by name.
func NewPolicy(name string, plant model.Plant, res model.Reservoir, efficiency float64) (Policy, error) {
	switch name {
	case PolicyFlat:
		return Flat{ThermalCost: plant.ThermalCost, EfficiencyFactor: efficiency}, nil
	case PolicyStorageRatio, "":
		return StorageRatio{ThermalCost: plant.ThermalCost, Reservoir: res}, nil
	default:
		return nil, fmt.Errorf("unknown water value policy %q", name)
	}
}
