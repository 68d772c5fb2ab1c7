package model

// Decision is the generation mix chosen for one period.
type Decision struct {
	HydroMW  float64 `json:"hydro_mw"`
	ThermoMW float64 `json:"thermo_mw"`
}

// TotalMW returns the dispatched power before losses.
func (d Decision) TotalMW() float64 { return d.HydroMW + d.ThermoMW }

// PeriodResult is one row of an annual trajectory.
type PeriodResult struct {
	Period        Period   `json:"period"`
	Decision      Decision `json:"decision"`
	WaterValue    float64  `json:"water_value"`
	HydroCeiling  float64  `json:"hydro_ceiling_mw"`
	StorageBefore float64  `json:"storage_before_mwh"`
	StorageAfter  float64  `json:"storage_after_mwh"`
	SpillMWh      float64  `json:"spill_mwh"`
	ShortfallMWh  float64  `json:"shortfall_mwh"`
	LossMW        float64  `json:"loss_mw"`
	Imbalance     float64  `json:"imbalance_mw"`
	ThermalCost   float64  `json:"thermal_cost"`
	WaterCost     float64  `json:"water_cost"`
	// Approximate is set when the solver did not converge and the seed
	// dispatch was kept instead.
	Approximate bool   `json:"approximate"`
	Iterations  int    `json:"iterations"`
	Note        string `json:"note,omitempty"`
}

// Clamped reports whether the reservoir bounds absorbed energy in this period.
func (r PeriodResult) Clamped() bool { return r.SpillMWh > 0 || r.ShortfallMWh > 0 }

// Trajectory is the outcome of one annual pass.
type Trajectory struct {
	Periods   []PeriodResult `json:"periods"`
	TotalCost float64        `json:"total_cost"`
}

// StorageAfter returns the end-of-period storage for every period.
func (t Trajectory) StorageAfter() []float64 {
	out := make([]float64, len(t.Periods))
	for i, p := range t.Periods {
		out[i] = p.StorageAfter
	}
	return out
}

// ApproximatePeriods returns the indexes of periods solved by fallback.
func (t Trajectory) ApproximatePeriods() []int {
	var idx []int
	for _, p := range t.Periods {
		if p.Approximate {
			idx = append(idx, p.Period.Index)
		}
	}
	return idx
}
