package config

import (
	"fmt"
	"math"

	"github.com/kilianp07/hydrothermal/core/model"
)

// HoursPerMonth is the default period length, a twelfth of 8760 h.
const HoursPerMonth = 730

// HorizonConfig is the period table of one planning year.
type HorizonConfig struct {
	PeriodHours float64        `json:"period_hours"`
	Periods     []model.Period `json:"periods"`
}

// SetDefaults applies the monthly period length and the reference profile
// when no table is given. Period indexes follow table order.
func (h *HorizonConfig) SetDefaults() {
	if h.PeriodHours <= 0 {
		h.PeriodHours = HoursPerMonth
	}
	if len(h.Periods) == 0 {
		h.Periods = DefaultPeriods()
	}
	for i := range h.Periods {
		h.Periods[i].Index = i
	}
}

// Validate checks every period against the plant. A demand below the
// combined minimum generation makes the power balance infeasible even
// without losses.
func (h HorizonConfig) Validate(p model.Plant) error {
	if h.PeriodHours <= 0 || math.IsInf(h.PeriodHours, 0) {
		return fieldError("horizon.period_hours", "must be positive")
	}
	if len(h.Periods) != model.PeriodsPerYear {
		return fieldError("horizon.periods", "expected %d periods, got %d", model.PeriodsPerYear, len(h.Periods))
	}
	for i, per := range h.Periods {
		if err := validatePeriod(p, per, func(name string) string { return periodField(i, name) }); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePeriod checks one period's demand and inflow against the plant.
func ValidatePeriod(p model.Plant, per model.Period) error {
	return validatePeriod(p, per, func(name string) string { return "period." + name })
}

func validatePeriod(p model.Plant, per model.Period, field func(string) string) error {
	minGen := p.HydroMinMW + p.ThermoMinMW
	if math.IsNaN(per.DemandMW) || per.DemandMW <= 0 {
		return fieldError(field("demand_mw"), "must be positive (%g)", per.DemandMW)
	}
	if per.DemandMW < minGen {
		return fieldError(field("demand_mw"), "below combined minimum generation (%g < %g)", per.DemandMW, minGen)
	}
	if math.IsNaN(per.InflowMWh) || per.InflowMWh < 0 {
		return fieldError(field("inflow_mwh"), "must not be negative (%g)", per.InflowMWh)
	}
	return nil
}

func periodField(i int, name string) string {
	return fmt.Sprintf("horizon.periods[%d].%s", i, name)
}

// DefaultPeriods is a wet-spring, dry-autumn monthly profile around the
// 500 MW reference demand.
func DefaultPeriods() []model.Period {
	demand := []float64{540, 520, 500, 470, 450, 460, 480, 490, 470, 480, 510, 550}
	inflow := []float64{
		180000, 220000, 290000, 320000, 260000, 170000,
		110000, 80000, 70000, 90000, 130000, 160000,
	}
	out := make([]model.Period, model.PeriodsPerYear)
	for i := range out {
		out[i] = model.Period{Index: i, DemandMW: demand[i], InflowMWh: inflow[i]}
	}
	return out
}
