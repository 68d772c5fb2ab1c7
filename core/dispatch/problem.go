package dispatch

import (
	"math"

	"github.com/kilianp07/hydrothermal/core/model"
	"github.com/kilianp07/hydrothermal/pkg/nlp"
)

// Input gathers everything needed to dispatch one period.
type Input struct {
	Plant    model.Plant
	DemandMW float64
	// HydroCeiling is the hydro upper bound for the period after accounting
	// for the energy stored and flowing in.
	HydroCeiling float64
	WaterValue   float64
	PeriodHours  float64
}

// HydroBounds returns the box of the hydro unit. A ceiling below the static
// minimum collapses the box onto the minimum.
func (in Input) HydroBounds() (lo, hi float64) {
	lo = in.Plant.HydroMinMW
	hi = math.Min(in.Plant.HydroMaxMW, in.HydroCeiling)
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Cost is the operating cost of d: thermal fuel plus the water priced at its
// opportunity value over the whole period.
func Cost(d model.Decision, in Input) float64 {
	return in.Plant.ThermalCost*d.ThermoMW + in.WaterValue*d.HydroMW*in.PeriodHours
}

// Balance is generation minus demand minus transmission loss. It must be zero.
func Balance(d model.Decision, in Input) float64 {
	total := d.TotalMW()
	return total - in.DemandMW - in.Plant.Loss(total)
}

// Headroom is the unused transmission capacity. It must be non-negative.
func Headroom(d model.Decision, in Input) float64 {
	return in.Plant.TransmissionMaxMW - d.TotalMW()
}

// Seed splits demand between the units, filling hydro first up to its
// ceiling. The result always lies within both boxes.
func Seed(in Input) model.Decision {
	lo, hi := in.HydroBounds()
	hydro := clamp(in.DemandMW, lo, hi)
	thermo := clamp(in.DemandMW-hydro, in.Plant.ThermoMinMW, in.Plant.ThermoMaxMW)
	return model.Decision{HydroMW: hydro, ThermoMW: thermo}
}

func decision(x []float64) model.Decision {
	return model.Decision{HydroMW: x[0], ThermoMW: x[1]}
}

// problem maps in onto an nlp.Problem over x = (hydro, thermo). Every
// callback evaluates the explicit functions above on its own copy of in.
func problem(in Input) nlp.Problem {
	lo, hi := in.HydroBounds()
	return nlp.Problem{
		Dim:       2,
		Objective: func(x []float64) float64 { return Cost(decision(x), in) },
		Gradient: func(g, _ []float64) {
			g[0] = in.WaterValue * in.PeriodHours
			g[1] = in.Plant.ThermalCost
		},
		Equality: []nlp.Constraint{{
			Name: "balance",
			Func: func(x []float64) float64 { return Balance(decision(x), in) },
			Grad: func(g, x []float64) {
				d := 1 - 2*in.Plant.LossCoefficient*decision(x).TotalMW()
				g[0], g[1] = d, d
			},
		}},
		Inequality: []nlp.Constraint{{
			Name: "transmission",
			Func: func(x []float64) float64 { return Headroom(decision(x), in) },
			Grad: func(g, _ []float64) { g[0], g[1] = -1, -1 },
		}},
		Lower: []float64{lo, in.Plant.ThermoMinMW},
		Upper: []float64{hi, in.Plant.ThermoMaxMW},
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
