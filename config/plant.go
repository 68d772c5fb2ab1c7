package config

import (
	"math"

	"github.com/kilianp07/hydrothermal/core/model"
)

// ValidatePlant checks the static generation and network limits.
func ValidatePlant(p model.Plant) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"plant.hydro_min_mw", p.HydroMinMW},
		{"plant.hydro_max_mw", p.HydroMaxMW},
		{"plant.thermo_min_mw", p.ThermoMinMW},
		{"plant.thermo_max_mw", p.ThermoMaxMW},
		{"plant.loss_coefficient", p.LossCoefficient},
		{"plant.transmission_max_mw", p.TransmissionMaxMW},
		{"plant.thermal_cost", p.ThermalCost},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fieldError(f.name, "must be finite")
		}
		if f.v < 0 {
			return fieldError(f.name, "must not be negative (%g)", f.v)
		}
	}
	if p.HydroMinMW > p.HydroMaxMW {
		return fieldError("plant.hydro_min_mw", "exceeds hydro_max_mw (%g > %g)", p.HydroMinMW, p.HydroMaxMW)
	}
	if p.ThermoMinMW > p.ThermoMaxMW {
		return fieldError("plant.thermo_min_mw", "exceeds thermo_max_mw (%g > %g)", p.ThermoMinMW, p.ThermoMaxMW)
	}
	if p.TransmissionMaxMW == 0 {
		return fieldError("plant.transmission_max_mw", "must be positive")
	}
	if minGen := p.HydroMinMW + p.ThermoMinMW; minGen > p.TransmissionMaxMW {
		return fieldError("plant.transmission_max_mw", "below combined minimum generation (%g < %g)",
			p.TransmissionMaxMW, minGen)
	}
	return nil
}

// ValidateReservoir checks capacity and the operating fractions.
func ValidateReservoir(r model.Reservoir) error {
	if math.IsNaN(r.CapacityMWh) || r.CapacityMWh <= 0 {
		return fieldError("reservoir.capacity_mwh", "must be positive (%g)", r.CapacityMWh)
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"reservoir.min_fraction", r.MinFraction},
		{"reservoir.max_fraction", r.MaxFraction},
		{"reservoir.initial_fraction", r.InitialFraction},
	} {
		if math.IsNaN(f.v) || f.v < 0 || f.v > 1 {
			return fieldError(f.name, "must be within [0,1] (%g)", f.v)
		}
	}
	if r.MinFraction >= r.MaxFraction {
		return fieldError("reservoir.min_fraction", "must be below max_fraction (%g >= %g)", r.MinFraction, r.MaxFraction)
	}
	if r.InitialFraction < r.MinFraction || r.InitialFraction > r.MaxFraction {
		return fieldError("reservoir.initial_fraction", "outside [%g,%g]", r.MinFraction, r.MaxFraction)
	}
	return nil
}
