package dispatch

import (
	"errors"
	"fmt"

	"github.com/kilianp07/hydrothermal/core/logger"
	"github.com/kilianp07/hydrothermal/core/model"
	"github.com/kilianp07/hydrothermal/pkg/nlp"
)

// ErrSolverNonconvergence marks a period whose dispatch fell back to the seed.
var ErrSolverNonconvergence = errors.New("dispatch solver did not converge")

// ErrInvalidInput marks a period whose plant limits cannot form a problem,
// such as an inverted box. Callers must treat it as a configuration error.
var ErrInvalidInput = errors.New("invalid dispatch input")

// minimize points to the nonlinear solver. It can be overridden in tests to
// simulate solver failures.
var minimize = nlp.Minimize

// Output is the dispatch chosen for one period.
type Output struct {
	Decision model.Decision
	Seed     model.Decision
	// Approximate is true when Decision is the seed kept after a failed
	// solve. Power balance may not hold for such periods.
	Approximate bool
	Status      nlp.Status
	Iterations  int
	// Imbalance is Balance(Decision) and LossMW the loss it implies.
	Imbalance float64
	LossMW    float64
	Cost      float64
	// Cause wraps ErrSolverNonconvergence or ErrInvalidInput when
	// Approximate is set.
	Cause error
}

// Solver dispatches single periods. It holds no per-call state and may be
// shared between goroutines.
type Solver struct {
	settings nlp.Settings
	log      logger.Logger
}

// NewSolver returns a Solver using the given inner solver settings.
func NewSolver(settings nlp.Settings, log logger.Logger) *Solver {
	settings.SetDefaults()
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Solver{settings: settings, log: log}
}

// Settings returns the inner solver settings in use.
func (s *Solver) Settings() nlp.Settings { return s.settings }

// Solve returns the least-cost dispatch of in.
func (s *Solver) Solve(in Input) Output {
	seed := Seed(in)
	out := Output{Seed: seed}

	res, err := minimize(problem(in), []float64{seed.HydroMW, seed.ThermoMW}, s.settings)
	switch {
	case errors.Is(err, nlp.ErrBadProblem):
		out.Status = nlp.Stalled
		out.Cause = fmt.Errorf("%w: %w", ErrInvalidInput, err)
	case err != nil:
		out.Status = nlp.Stalled
		out.Cause = fmt.Errorf("%w: %v", ErrSolverNonconvergence, err)
	case !res.Success():
		out.Status = res.Status
		out.Iterations = res.Iterations
		out.Cause = fmt.Errorf("%w: %s after %d iterations, violation %.3g",
			ErrSolverNonconvergence, res.Status, res.Iterations, res.Violation)
	default:
		out.Status = res.Status
		out.Iterations = res.Iterations
		out.Decision = decision(res.X)
	}
	if out.Cause != nil {
		out.Decision = seed
		out.Approximate = true
		s.log.Warnf("dispatch fallback to seed (demand %.2f MW, water value %.4f): %v",
			in.DemandMW, in.WaterValue, out.Cause)
	}

	out.Imbalance = Balance(out.Decision, in)
	out.LossMW = in.Plant.Loss(out.Decision.TotalMW())
	out.Cost = Cost(out.Decision, in)
	s.log.Debugw("period dispatched", map[string]any{
		"hydro_mw":    out.Decision.HydroMW,
		"thermo_mw":   out.Decision.ThermoMW,
		"status":      out.Status.String(),
		"iterations":  out.Iterations,
		"approximate": out.Approximate,
	})
	return out
}
