package scheduler

import (
	"errors"
	"fmt"

	"github.com/kilianp07/hydrothermal/core/dispatch"
	"github.com/kilianp07/hydrothermal/core/model"
	"github.com/kilianp07/hydrothermal/core/reservoir"
)

// ErrHorizonMismatch is returned when water values and periods differ in length.
var ErrHorizonMismatch = errors.New("water values do not match the horizon")

// ErrReservoirClamped is reported in strict mode when the reservoir bounds
// absorbed spill or shortfall.
var ErrReservoirClamped = errors.New("reservoir bounds absorbed energy")

// PeriodSolver dispatches one period. *dispatch.Solver implements it.
type PeriodSolver interface {
	Solve(in dispatch.Input) dispatch.Output
}

// Config holds the pass parameters that are not plant data.
type Config struct {
	// PeriodHours is set from the horizon table.
	PeriodHours float64 `json:"-"`
	// StrictClamp turns every spill or shortfall into an error returned with
	// the trajectory. The numerics are the same in both modes.
	StrictClamp bool `json:"strict_clamp"`
}

// Pass evaluates whole years for fixed water values.
type Pass struct {
	plant   model.Plant
	res     model.Reservoir
	cfg     Config
	solver  PeriodSolver
	tracker reservoir.Tracker
}

// NewPass creates a Pass for the given plant and reservoir.
func NewPass(plant model.Plant, res model.Reservoir, cfg Config, solver PeriodSolver) *Pass {
	return &Pass{plant: plant, res: res, cfg: cfg, solver: solver, tracker: reservoir.NewTracker(res)}
}

// Reservoir returns the reservoir description used by the pass.
func (p *Pass) Reservoir() model.Reservoir { return p.res }

// Plant returns the plant description used by the pass.
func (p *Pass) Plant() model.Plant { return p.plant }

// Run dispatches periods in order starting from storage initial. It returns a
// new trajectory owned by the caller. In strict mode a non-nil error may
// accompany a complete trajectory when the reservoir was clamped. Invalid plant
// limits abort the pass with an error wrapping dispatch.ErrInvalidInput.
func (p *Pass) Run(periods []model.Period, waterValues []float64, initial float64) (model.Trajectory, error) {
	if len(periods) != len(waterValues) {
		return model.Trajectory{}, fmt.Errorf("%w: %d periods, %d values", ErrHorizonMismatch, len(periods), len(waterValues))
	}
	traj := model.Trajectory{Periods: make([]model.PeriodResult, 0, len(periods))}
	var clamped []error
	storage := initial
	for i, per := range periods {
		in := dispatch.Input{
			Plant:        p.plant,
			DemandMW:     per.DemandMW,
			HydroCeiling: model.HydroCeiling(p.plant, p.res, storage, per.InflowMWh, p.cfg.PeriodHours),
			WaterValue:   waterValues[i],
			PeriodHours:  p.cfg.PeriodHours,
		}
		out := p.solver.Solve(in)
		if errors.Is(out.Cause, dispatch.ErrInvalidInput) {
			return model.Trajectory{}, fmt.Errorf("period %d: %w", per.Index, out.Cause)
		}
		tr := p.tracker.Step(storage, per.InflowMWh, out.Decision.HydroMW, p.cfg.PeriodHours)

		row := model.PeriodResult{
			Period:        per,
			Decision:      out.Decision,
			WaterValue:    in.WaterValue,
			HydroCeiling:  in.HydroCeiling,
			StorageBefore: tr.Before,
			StorageAfter:  tr.After,
			SpillMWh:      tr.Spill,
			ShortfallMWh:  tr.Shortfall,
			LossMW:        out.LossMW,
			Imbalance:     out.Imbalance,
			ThermalCost:   p.plant.ThermalCost * out.Decision.ThermoMW,
			WaterCost:     out.Cost - p.plant.ThermalCost*out.Decision.ThermoMW,
			Approximate:   out.Approximate,
			Iterations:    out.Iterations,
		}
		if out.Cause != nil {
			row.Note = out.Cause.Error()
		}
		if p.cfg.StrictClamp && tr.Clamped() {
			clamped = append(clamped, fmt.Errorf("%w: period %d spill %.3f MWh shortfall %.3f MWh",
				ErrReservoirClamped, per.Index, tr.Spill, tr.Shortfall))
		}
		traj.Periods = append(traj.Periods, row)
		traj.TotalCost += row.ThermalCost
		storage = tr.After
	}
	return traj, errors.Join(clamped...)
}
