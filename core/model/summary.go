package model

// Summary aggregates a trajectory into annual totals.
type Summary struct {
	HydroMWh           float64 `json:"hydro_mwh"`
	ThermoMWh          float64 `json:"thermo_mwh"`
	LossMWh            float64 `json:"loss_mwh"`
	DemandMWh          float64 `json:"demand_mwh"`
	SpillMWh           float64 `json:"spill_mwh"`
	ShortfallMWh       float64 `json:"shortfall_mwh"`
	ThermalCost        float64 `json:"thermal_cost"`
	ApproximatePeriods int     `json:"approximate_periods"`
	FinalStorageMWh    float64 `json:"final_storage_mwh"`
}

// HydroShare returns the fraction of generated energy that came from hydro.
func (s Summary) HydroShare() float64 {
	total := s.HydroMWh + s.ThermoMWh
	if total == 0 {
		return 0
	}
	return s.HydroMWh / total
}

// Summarize totals t assuming each period lasts hours.
func Summarize(t Trajectory, hours float64) Summary {
	var s Summary
	for _, p := range t.Periods {
		s.HydroMWh += p.Decision.HydroMW * hours
		s.ThermoMWh += p.Decision.ThermoMW * hours
		s.LossMWh += p.LossMW * hours
		s.DemandMWh += p.Period.DemandMW * hours
		s.SpillMWh += p.SpillMWh
		s.ShortfallMWh += p.ShortfallMWh
		s.ThermalCost += p.ThermalCost
		if p.Approximate {
			s.ApproximatePeriods++
		}
	}
	if n := len(t.Periods); n > 0 {
		s.FinalStorageMWh = t.Periods[n-1].StorageAfter
	}
	return s
}
