package scenarios

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kilianp07/hydrothermal/core/dispatch"
	"github.com/kilianp07/hydrothermal/core/scheduler"
	"github.com/kilianp07/hydrothermal/core/watervalue"
	"github.com/kilianp07/hydrothermal/infra/logger"
	"github.com/kilianp07/hydrothermal/infra/metrics"
)

const hydroTolerance = 1e-6

// RunScenario executes the scenario and checks its expectations.
//
//nolint:gocyclo
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	cfg, err := sc.Config()
	if err != nil {
		t.Fatalf("scenario %s config: %v", sc.Name, err)
	}

	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}

	solver := dispatch.NewSolver(cfg.Solver, logger.NopLogger{})
	pass := scheduler.NewPass(cfg.Plant, cfg.Reservoir, cfg.Scheduler, solver)
	policy, err := watervalue.NewPolicy(cfg.WaterValue.Policy, cfg.Plant, cfg.Reservoir, cfg.WaterValue.EfficiencyFactor)
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	record := watervalue.ObserverFunc(func(r watervalue.IterationReport) {
		if err := metrics.Record(sink, sc.Name, r, time.Unix(0, 0)); err != nil {
			t.Errorf("record: %v", err)
		}
	})
	it := watervalue.NewIterator(pass, policy, cfg.WaterValue, logger.NopLogger{}, record)
	out, err := it.Run(context.Background(), cfg.Horizon.Periods)
	if err != nil {
		t.Fatalf("scenario %s run: %v", sc.Name, err)
	}

	exp := sc.Expected
	if got := out.State.String(); got != exp.State {
		t.Errorf("scenario %s expected state %s, got %s (delta %g)", sc.Name, exp.State, got, out.Delta)
	}
	if exp.Iterations > 0 && out.Iterations != exp.Iterations {
		t.Errorf("scenario %s expected %d iterations, got %d", sc.Name, exp.Iterations, out.Iterations)
	}
	if exp.MaxIterations > 0 && out.Iterations > exp.MaxIterations {
		t.Errorf("scenario %s expected at most %d iterations, got %d", sc.Name, exp.MaxIterations, out.Iterations)
	}
	if got := testutil.ToFloat64(sink.Iterations()); int(got) != out.Iterations {
		t.Errorf("scenario %s iteration counter %v, outcome %d", sc.Name, got, out.Iterations)
	}
	approx := len(out.Trajectory.ApproximatePeriods())
	if exp.MaxApproximate != nil && approx > *exp.MaxApproximate {
		t.Errorf("scenario %s expected at most %d approximate periods, got %d", sc.Name, *exp.MaxApproximate, approx)
	}
	if exp.FirstWaterValue != nil && math.Abs(out.WaterValues[0]-*exp.FirstWaterValue) > 1e-9 {
		t.Errorf("scenario %s expected first water value %g, got %g", sc.Name, *exp.FirstWaterValue, out.WaterValues[0])
	}
	vmin, vmax := cfg.Reservoir.VolumeMin(), cfg.Reservoir.VolumeMax()
	for _, p := range out.Trajectory.Periods {
		if exp.HydroAtMin && math.Abs(p.Decision.HydroMW-cfg.Plant.HydroMinMW) > hydroTolerance {
			t.Errorf("scenario %s period %d hydro %g, expected minimum %g", sc.Name, p.Period.Index, p.Decision.HydroMW, cfg.Plant.HydroMinMW)
		}
		if exp.StorageWithinRange && (p.StorageAfter < vmin || p.StorageAfter > vmax) {
			t.Errorf("scenario %s period %d storage %g outside [%g,%g]", sc.Name, p.Period.Index, p.StorageAfter, vmin, vmax)
		}
	}
}
