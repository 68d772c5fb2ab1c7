package dispatch

import (
	"errors"
	"math"
	"testing"

	"github.com/kilianp07/hydrothermal/core/model"
	"github.com/kilianp07/hydrothermal/pkg/nlp"
)

func examplePlant() model.Plant {
	return model.Plant{
		HydroMinMW:        50,
		HydroMaxMW:        400,
		ThermoMinMW:       100,
		ThermoMaxMW:       600,
		LossCoefficient:   0.0001,
		TransmissionMaxMW: 800,
		ThermalCost:       50,
	}
}

func exampleInput() Input {
	return Input{Plant: examplePlant(), DemandMW: 500, HydroCeiling: 400, PeriodHours: 730}
}

// totalFor returns the dispatched power that exactly covers demand plus loss.
func totalFor(demand, k float64) float64 {
	return (1 - math.Sqrt(1-4*k*demand)) / (2 * k)
}

func checkBounds(t *testing.T, in Input, d model.Decision) {
	t.Helper()
	lo, hi := in.HydroBounds()
	if d.HydroMW < lo || d.HydroMW > hi {
		t.Fatalf("hydro %v outside [%v, %v]", d.HydroMW, lo, hi)
	}
	if d.ThermoMW < in.Plant.ThermoMinMW || d.ThermoMW > in.Plant.ThermoMaxMW {
		t.Fatalf("thermo %v outside [%v, %v]", d.ThermoMW, in.Plant.ThermoMinMW, in.Plant.ThermoMaxMW)
	}
}

func TestSolveZeroWaterValueFavoursHydro(t *testing.T) {
	s := NewSolver(nlp.Settings{}, nil)
	in := exampleInput()
	out := s.Solve(in)
	if out.Approximate {
		t.Fatalf("unexpected fallback: %v", out.Cause)
	}
	if math.Abs(out.Decision.HydroMW-400) > 1e-6 {
		t.Fatalf("expected hydro 400 got %v", out.Decision.HydroMW)
	}
	wantThermo := totalFor(500, 0.0001) - 400
	if math.Abs(out.Decision.ThermoMW-wantThermo) > 1e-3 {
		t.Fatalf("expected thermo %.4f got %.4f", wantThermo, out.Decision.ThermoMW)
	}
	if math.Abs(out.Cost-50*out.Decision.ThermoMW) > 1e-9 {
		t.Fatalf("expected cost 50*thermo got %v", out.Cost)
	}
	if math.Abs(out.Imbalance) > s.Settings().ConstraintTolerance {
		t.Fatalf("imbalance %v above tolerance", out.Imbalance)
	}
	checkBounds(t, in, out.Decision)
}

func TestSolveExpensiveWaterShiftsToThermal(t *testing.T) {
	s := NewSolver(nlp.Settings{}, nil)
	in := exampleInput()
	in.WaterValue = 1
	out := s.Solve(in)
	if out.Approximate {
		t.Fatalf("unexpected fallback: %v", out.Cause)
	}
	if math.Abs(out.Decision.HydroMW-50) > 1e-6 {
		t.Fatalf("expected hydro at minimum got %v", out.Decision.HydroMW)
	}
	wantThermo := totalFor(500, 0.0001) - 50
	if math.Abs(out.Decision.ThermoMW-wantThermo) > 1e-3 {
		t.Fatalf("expected thermo %.4f got %.4f", wantThermo, out.Decision.ThermoMW)
	}
}

func TestSolveCollapsedCeilingForcesMinimum(t *testing.T) {
	s := NewSolver(nlp.Settings{}, nil)
	for _, ceiling := range []float64{50, 10} {
		in := exampleInput()
		in.HydroCeiling = ceiling
		out := s.Solve(in)
		if out.Approximate {
			t.Fatalf("ceiling %v: unexpected fallback: %v", ceiling, out.Cause)
		}
		if out.Decision.HydroMW != 50 {
			t.Fatalf("ceiling %v: expected hydro 50 got %v", ceiling, out.Decision.HydroMW)
		}
		checkBounds(t, in, out.Decision)
	}
}

func TestSolveInfeasibleKeepsSeed(t *testing.T) {
	s := NewSolver(nlp.Settings{}, nil)
	in := exampleInput()
	in.DemandMW = 790 // needs about 865 MW with losses, above the 800 MW line
	out := s.Solve(in)
	if !out.Approximate {
		t.Fatalf("expected approximate result got %+v", out.Decision)
	}
	if !errors.Is(out.Cause, ErrSolverNonconvergence) {
		t.Fatalf("expected ErrSolverNonconvergence got %v", out.Cause)
	}
	if out.Decision != out.Seed {
		t.Fatalf("expected seed %+v got %+v", out.Seed, out.Decision)
	}
	if out.Decision != (model.Decision{HydroMW: 400, ThermoMW: 390}) {
		t.Fatalf("unexpected seed %+v", out.Decision)
	}
	checkBounds(t, in, out.Decision)
}

func TestSolveSolverErrorFallback(t *testing.T) {
	old := minimize
	minimize = func(nlp.Problem, []float64, nlp.Settings) (nlp.Result, error) {
		return nlp.Result{}, errors.New("fail")
	}
	defer func() { minimize = old }()

	out := NewSolver(nlp.Settings{}, nil).Solve(exampleInput())
	if !out.Approximate || !errors.Is(out.Cause, ErrSolverNonconvergence) {
		t.Fatalf("expected fallback got %+v", out)
	}
	if out.Decision != Seed(exampleInput()) {
		t.Fatalf("expected seed dispatch got %+v", out.Decision)
	}
}

func TestSolveIterationLimitIsApproximate(t *testing.T) {
	out := NewSolver(nlp.Settings{MaxIterations: 1}, nil).Solve(exampleInput())
	if !out.Approximate {
		t.Fatalf("expected approximate result with a single iteration")
	}
	if out.Status != nlp.IterationLimit {
		t.Fatalf("expected iteration limit got %s", out.Status)
	}
}

func TestSolveIsDeterministic(t *testing.T) {
	s := NewSolver(nlp.Settings{}, nil)
	in := exampleInput()
	in.WaterValue = 0.03
	a, b := s.Solve(in), s.Solve(in)
	if a.Decision != b.Decision || a.Iterations != b.Iterations {
		t.Fatalf("results differ: %+v vs %+v", a, b)
	}
}

func TestSeedWithinBounds(t *testing.T) {
	cases := []struct {
		demand, ceiling float64
		want            model.Decision
	}{
		{500, 400, model.Decision{HydroMW: 400, ThermoMW: 100}},
		{300, 400, model.Decision{HydroMW: 300, ThermoMW: 100}},
		{900, 200, model.Decision{HydroMW: 200, ThermoMW: 600}},
		{500, 20, model.Decision{HydroMW: 50, ThermoMW: 450}},
	}
	for _, c := range cases {
		in := exampleInput()
		in.DemandMW, in.HydroCeiling = c.demand, c.ceiling
		if got := Seed(in); got != c.want {
			t.Fatalf("demand %v ceiling %v: expected %+v got %+v", c.demand, c.ceiling, c.want, got)
		}
	}
}

func TestEvaluators(t *testing.T) {
	in := exampleInput()
	in.WaterValue = 2
	d := model.Decision{HydroMW: 300, ThermoMW: 200}
	if got := Cost(d, in); got != 50*200+2*300*730 {
		t.Fatalf("unexpected cost %v", got)
	}
	if got := Balance(d, in); math.Abs(got-(500-500-25)) > 1e-9 {
		t.Fatalf("unexpected balance %v", got)
	}
	if got := Headroom(d, in); got != 300 {
		t.Fatalf("unexpected headroom %v", got)
	}
}

func TestSolveBoundaryCases(t *testing.T) {
	cases := []struct {
		name            string
		demand, ceiling float64
		hydro, thermo   float64
	}{
		{"ceiling equals hydro max and demand", 400, 400, totalFor(400, 0.0001) - 100, 100},
		{"ceiling just below hydro max", 405.5, 397.3, totalFor(405.5, 0.0001) - 100, 100},
		{"demand at both minimums", 150, 400, totalFor(150, 0.0001) - 100, 100},
		{"empty reservoir", 150, 0, 50, totalFor(150, 0.0001) - 50},
		{"ceiling on hydro min", 150, 50, 50, totalFor(150, 0.0001) - 50},
	}
	s := NewSolver(nlp.Settings{}, nil)
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			in := exampleInput()
			in.DemandMW, in.HydroCeiling = c.demand, c.ceiling
			out := s.Solve(in)
			if out.Approximate {
				t.Fatalf("unexpected fallback: %v", out.Cause)
			}
			checkBounds(t, in, out.Decision)
			if math.Abs(out.Decision.HydroMW-c.hydro) > 1e-3 || math.Abs(out.Decision.ThermoMW-c.thermo) > 1e-3 {
				t.Fatalf("expected (%.3f, %.3f) got %+v", c.hydro, c.thermo, out.Decision)
			}
			if math.Abs(out.Imbalance) > s.Settings().ConstraintTolerance {
				t.Fatalf("imbalance %v above tolerance", out.Imbalance)
			}
		})
	}
}

func TestSolveOperatingRange(t *testing.T) {
	s := NewSolver(nlp.Settings{}, nil)
	tol := s.Settings().ConstraintTolerance
	var solved, approximate int
	for demand := 150.0; demand <= 760; demand += 20 {
		for ceiling := 0.0; ceiling <= 420; ceiling += 35 {
			for _, w := range []float64{0, 0.005, 0.05, 0.5, 5} {
				in := exampleInput()
				in.DemandMW, in.HydroCeiling, in.WaterValue = demand, ceiling, w
				out := s.Solve(in)
				solved++
				checkBounds(t, in, out.Decision)
				if out.Approximate {
					approximate++
					if out.Decision != out.Seed {
						t.Fatalf("demand %v ceiling %v w %v: fallback differs from seed", demand, ceiling, w)
					}
					continue
				}
				if math.Abs(out.Imbalance) > tol {
					t.Fatalf("demand %v ceiling %v w %v: imbalance %v", demand, ceiling, w, out.Imbalance)
				}
				if out.Decision.TotalMW() > in.Plant.TransmissionMaxMW+tol {
					t.Fatalf("demand %v ceiling %v w %v: line overloaded at %v", demand, ceiling, w, out.Decision.TotalMW())
				}
			}
		}
	}
	t.Logf("%d inputs, %d approximate", solved, approximate)
}

func TestSolveInvertedBoxIsInvalidInput(t *testing.T) {
	in := exampleInput()
	in.Plant.ThermoMinMW, in.Plant.ThermoMaxMW = 600, 100
	out := NewSolver(nlp.Settings{}, nil).Solve(in)
	if !errors.Is(out.Cause, ErrInvalidInput) || !errors.Is(out.Cause, nlp.ErrBadProblem) {
		t.Fatalf("expected ErrInvalidInput got %v", out.Cause)
	}
	if errors.Is(out.Cause, ErrSolverNonconvergence) {
		t.Fatalf("invalid input reported as nonconvergence: %v", out.Cause)
	}
	if !out.Approximate || out.Decision != out.Seed {
		t.Fatalf("expected the seed to be kept got %+v", out)
	}
}
