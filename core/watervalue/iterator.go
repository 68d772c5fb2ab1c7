package watervalue

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/hydrothermal/core/logger"
	"github.com/kilianp07/hydrothermal/core/model"
	"github.com/kilianp07/hydrothermal/core/scheduler"
)

// Config controls the outer fixed-point loop.
type Config struct {
	MaxIterations    int     `json:"max_iterations"`
	Tolerance        float64 `json:"tolerance"`
	Policy           string  `json:"policy"`
	EfficiencyFactor float64 `json:"efficiency_factor"`
	// Initial is the starting water-value vector; zeros when empty.
	Initial []float64 `json:"initial"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 50
	}
	if c.Tolerance <= 0 {
		c.Tolerance = 1e-3
	}
	if c.Policy == "" {
		c.Policy = PolicyStorageRatio
	}
	if c.EfficiencyFactor == 0 {
		c.EfficiencyFactor = 0.5
	}
}

// IterationReport describes one completed outer iteration.
type IterationReport struct {
	Iteration  int
	Trajectory model.Trajectory
	// WaterValues priced the pass; Next is the vector derived from it.
	WaterValues []float64
	Next        []float64
	Delta       float64
	State       model.State
}

// Observer receives every iteration report. Observers run synchronously on
// the iterator goroutine.
type Observer interface {
	ObserveIteration(r IterationReport)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(IterationReport)

func (f ObserverFunc) ObserveIteration(r IterationReport) { f(r) }

// Outcome is the result of a complete run.
type Outcome struct {
	State      model.State
	Iterations int
	Delta      float64
	// WaterValues is the vector produced by the last update.
	WaterValues []float64
	// Trajectory is the pass of the last iteration, priced with the vector
	// that preceded WaterValues.
	Trajectory model.Trajectory
}

// Converged reports whether the fixed point was reached.
func (o Outcome) Converged() bool { return o.State == model.StateConverged }

// Iterator alternates annual passes and water-value updates until the values
// stop moving or the iteration budget is spent.
type Iterator struct {
	pass      *scheduler.Pass
	policy    Policy
	cfg       Config
	log       logger.Logger
	observers []Observer
}

// NewIterator creates an Iterator. A nil logger disables logging.
func NewIterator(pass *scheduler.Pass, policy Policy, cfg Config, log logger.Logger, observers ...Observer) *Iterator {
	cfg.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Iterator{pass: pass, policy: policy, cfg: cfg, log: log, observers: observers}
}

// Run iterates from the configured initial vector. The context is checked
// between outer iterations only.
func (it *Iterator) Run(ctx context.Context, periods []model.Period) (Outcome, error) {
	values := make([]float64, len(periods))
	if len(it.cfg.Initial) > 0 {
		if len(it.cfg.Initial) != len(periods) {
			return Outcome{}, fmt.Errorf("%w: %d initial values for %d periods",
				scheduler.ErrHorizonMismatch, len(it.cfg.Initial), len(periods))
		}
		copy(values, it.cfg.Initial)
	}

	out := Outcome{State: model.StateIterating, WaterValues: values}
	initial := it.pass.Reservoir().InitialVolume()
	for out.State == model.StateIterating {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		traj, err := it.pass.Run(periods, values, initial)
		if err != nil {
			return out, fmt.Errorf("annual pass %d: %w", out.Iterations+1, err)
		}
		out.Iterations++
		next := it.policy.Next(values, traj)
		delta := floats.Distance(next, values, math.Inf(1))

		state := model.StateIterating
		switch {
		case delta < it.cfg.Tolerance:
			state = model.StateConverged
		case out.Iterations >= it.cfg.MaxIterations:
			state = model.StateExhausted
		}
		out.State, out.Delta, out.Trajectory, out.WaterValues = state, delta, traj, next

		it.log.Debugw("water value iteration", map[string]any{
			"iteration":   out.Iterations,
			"delta":       delta,
			"total_cost":  traj.TotalCost,
			"approximate": len(traj.ApproximatePeriods()),
			"state":       state.String(),
		})
		report := IterationReport{
			Iteration:   out.Iterations,
			Trajectory:  traj,
			WaterValues: values,
			Next:        next,
			Delta:       delta,
			State:       state,
		}
		for _, o := range it.observers {
			o.ObserveIteration(report)
		}
		values = next
	}

	if out.State == model.StateExhausted {
		it.log.Warnf("water values did not converge after %d iterations (delta %.6f)", out.Iterations, out.Delta)
	} else {
		it.log.Infof("water values converged after %d iterations (delta %.6f)", out.Iterations, out.Delta)
	}
	return out, nil
}
