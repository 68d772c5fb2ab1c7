package model

// PeriodsPerYear is the length of the planning horizon.
const PeriodsPerYear = 12

// Period holds the exogenous inputs of one planning period.
type Period struct {
	Index     int     `json:"index"`
	DemandMW  float64 `json:"demand_mw"`  // average load to serve during the period
	InflowMWh float64 `json:"inflow_mwh"` // natural inflow converted to energy
}

// Plant groups the static limits of the two generating units and the line.
type Plant struct {
	HydroMinMW        float64 `json:"hydro_min_mw"`
	HydroMaxMW        float64 `json:"hydro_max_mw"`
	ThermoMinMW       float64 `json:"thermo_min_mw"`
	ThermoMaxMW       float64 `json:"thermo_max_mw"`
	LossCoefficient   float64 `json:"loss_coefficient"`    // loss = k * P^2
	TransmissionMaxMW float64 `json:"transmission_max_mw"` // limit on hydro + thermo
	ThermalCost       float64 `json:"thermal_cost"`        // currency per MWh
}

// Loss returns the transmission loss for a total dispatched power.
func (p Plant) Loss(totalMW float64) float64 {
	return p.LossCoefficient * totalMW * totalMW
}

// Reservoir describes the storage of the hydro plant. Fractions are relative
// to CapacityMWh.
type Reservoir struct {
	CapacityMWh     float64 `json:"capacity_mwh"`
	MinFraction     float64 `json:"min_fraction"`
	MaxFraction     float64 `json:"max_fraction"`
	InitialFraction float64 `json:"initial_fraction"`
}

// VolumeMin returns the lower operating bound in MWh.
func (r Reservoir) VolumeMin() float64 { return r.MinFraction * r.CapacityMWh }

// VolumeMax returns the upper operating bound in MWh.
func (r Reservoir) VolumeMax() float64 { return r.MaxFraction * r.CapacityMWh }

// InitialVolume returns the storage at the start of every annual pass.
func (r Reservoir) InitialVolume() float64 { return r.InitialFraction * r.CapacityMWh }

// StorageRatio returns the filled share of the usable range, clamped to [0,1].
func (r Reservoir) StorageRatio(volume float64) float64 {
	span := r.VolumeMax() - r.VolumeMin()
	if span <= 0 {
		return 0
	}
	ratio := (volume - r.VolumeMin()) / span
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	}
	return ratio
}

// HydroCeiling returns the effective upper bound of hydro output for a period:
// the static maximum or the energy physically available, whichever is lower.
func HydroCeiling(plant Plant, res Reservoir, storage, inflow, hours float64) float64 {
	if storage > res.VolumeMax() {
		storage = res.VolumeMax()
	}
	available := (inflow + storage) / hours
	if available < plant.HydroMaxMW {
		return available
	}
	return plant.HydroMaxMW
}
