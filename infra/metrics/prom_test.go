package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/hydrothermal/core/metrics"
	"github.com/kilianp07/hydrothermal/core/model"
	"github.com/kilianp07/hydrothermal/core/watervalue"
	"github.com/kilianp07/hydrothermal/internal/eventbus"
)

func TestPromSink_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordIteration(coremetrics.IterationEvent{Iteration: 1, Delta: 2.5, TotalCost: 900}))
	require.NoError(t, sink.RecordIteration(coremetrics.IterationEvent{Iteration: 2, Delta: 0.5, TotalCost: 800}))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.iterations))
	assert.Equal(t, 0.5, testutil.ToFloat64(sink.delta))
	assert.Equal(t, 800.0, testutil.ToFloat64(sink.annualCost))

	require.NoError(t, sink.RecordPeriods([]coremetrics.PeriodEvent{
		{Result: model.PeriodResult{Iterations: 3}},
		{Result: model.PeriodResult{Iterations: 1, Approximate: true}},
	}))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.approximate))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.solverIters))

	require.NoError(t, sink.RecordRun(coremetrics.RunEvent{State: model.StateExhausted}))
	assert.Equal(t, 1.0, testutil.ToFloat64(sink.runs.WithLabelValues("EXHAUSTED")))
}

func TestPromSink_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	b, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, a.RecordIteration(coremetrics.IterationEvent{}))
	require.NoError(t, b.RecordIteration(coremetrics.IterationEvent{}))
	assert.Equal(t, 2.0, testutil.ToFloat64(a.iterations))
}

type captureSink struct {
	iterations []coremetrics.IterationEvent
	periods    []coremetrics.PeriodEvent
}

func (c *captureSink) RecordIteration(ev coremetrics.IterationEvent) error {
	c.iterations = append(c.iterations, ev)
	return nil
}

func (c *captureSink) RecordPeriods(evs []coremetrics.PeriodEvent) error {
	c.periods = append(c.periods, evs...)
	return nil
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New[watervalue.IterationReport](4)
	sink := &captureSink{}
	done := StartEventCollector(context.Background(), bus, sink, "run-7")

	traj := model.Trajectory{
		Periods: []model.PeriodResult{
			{Period: model.Period{Index: 0}},
			{Period: model.Period{Index: 1}, Approximate: true},
		},
		TotalCost: 42,
	}
	bus.Publish(watervalue.IterationReport{Iteration: 1, Trajectory: traj, Delta: 3, State: model.StateIterating})
	bus.Publish(watervalue.IterationReport{Iteration: 2, Trajectory: traj, Delta: 0, State: model.StateConverged})
	bus.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop")
	}
	require.Len(t, sink.iterations, 2)
	assert.Equal(t, "run-7", sink.iterations[0].RunID)
	assert.Equal(t, 1, sink.iterations[0].ApproximatePeriods)
	assert.Equal(t, 42.0, sink.iterations[1].TotalCost)
	assert.Equal(t, model.StateConverged, sink.iterations[1].State)
	require.Len(t, sink.periods, 4)
	assert.Equal(t, 2, sink.periods[3].Iteration)
}

func TestStartEventCollector_NilBus(t *testing.T) {
	done := StartEventCollector(context.Background(), nil, coremetrics.NopSink{}, "")
	select {
	case <-done:
	default:
		t.Fatal("expected closed channel")
	}
}
