package nlp

import (
	"errors"
	"fmt"
	"math"
)

// Func evaluates a scalar function at x.
type Func func(x []float64) float64

// Grad writes the gradient of a scalar function at x into grad.
type Grad func(grad, x []float64)

// Constraint is a scalar constraint with its gradient. Equality constraints
// require Func(x) == 0, inequality constraints require Func(x) >= 0.
type Constraint struct {
	Name string
	Func Func
	Grad Grad
}

// Problem describes a nonlinear program in Dim variables.
type Problem struct {
	Dim        int
	Objective  Func
	Gradient   Grad
	Equality   []Constraint
	Inequality []Constraint
	// Lower and Upper bound every variable. Use math.Inf for free variables.
	Lower []float64
	Upper []float64
}

// ErrBadProblem is returned when a Problem is malformed.
var ErrBadProblem = errors.New("nlp: malformed problem")

func (p Problem) validate(x0 []float64) error {
	if p.Dim <= 0 {
		return fmt.Errorf("%w: dimension %d", ErrBadProblem, p.Dim)
	}
	if p.Objective == nil || p.Gradient == nil {
		return fmt.Errorf("%w: objective and gradient are required", ErrBadProblem)
	}
	if len(x0) != p.Dim || len(p.Lower) != p.Dim || len(p.Upper) != p.Dim {
		return fmt.Errorf("%w: expected %d values for x0 and bounds", ErrBadProblem, p.Dim)
	}
	for i := range p.Lower {
		if math.IsNaN(p.Lower[i]) || math.IsNaN(p.Upper[i]) || p.Lower[i] > p.Upper[i] {
			return fmt.Errorf("%w: bounds of x[%d] are [%v, %v]", ErrBadProblem, i, p.Lower[i], p.Upper[i])
		}
	}
	for _, c := range append(append([]Constraint(nil), p.Equality...), p.Inequality...) {
		if c.Func == nil || c.Grad == nil {
			return fmt.Errorf("%w: constraint %q lacks a function or gradient", ErrBadProblem, c.Name)
		}
	}
	return nil
}

// project clamps x into the box in place.
func (p Problem) project(x []float64) {
	for i := range x {
		if x[i] < p.Lower[i] {
			x[i] = p.Lower[i]
		}
		if x[i] > p.Upper[i] {
			x[i] = p.Upper[i]
		}
	}
}

// Violation returns the l1 infeasibility of x: the sum of |h(x)| over the
// equality constraints and of max(0, -c(x)) over the inequality constraints.
func (p Problem) Violation(x []float64) float64 {
	var v float64
	for _, h := range p.Equality {
		v += math.Abs(h.Func(x))
	}
	for _, c := range p.Inequality {
		if g := c.Func(x); g < 0 {
			v -= g
		}
	}
	return v
}

// Status reports how Minimize terminated.
type Status int

const (
	// Converged means a feasible point was found at which the linearised
	// model predicts no further merit reduction.
	Converged Status = iota
	// IterationLimit means MaxIterations was reached.
	IterationLimit
	// Stalled means the trust region collapsed before convergence.
	Stalled
	// Infeasible means the iterate is stationary for the merit function but
	// still violates the constraints.
	Infeasible
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case Converged:
		return "converged"
	case IterationLimit:
		return "iteration limit"
	case Stalled:
		return "stalled"
	case Infeasible:
		return "infeasible"
	default:
		return "unknown"
	}
}

// Result is the outcome of Minimize.
type Result struct {
	X          []float64
	F          float64
	Violation  float64
	Iterations int
	Status     Status
}

// Success reports whether the solver converged to a feasible point.
func (r Result) Success() bool { return r.Status == Converged }
