package metrics

import (
	"time"

	"github.com/kilianp07/hydrothermal/core/model"
)

// IterationEvent summarises one outer water-value iteration.
type IterationEvent struct {
	RunID              string
	Iteration          int
	Delta              float64
	TotalCost          float64
	ApproximatePeriods int
	State              model.State
	Time               time.Time
}

// MetricsSink records iteration events for observability purposes.
type MetricsSink interface {
	RecordIteration(ev IterationEvent) error
}

// PeriodEvent is one dispatched period of an iteration.
type PeriodEvent struct {
	RunID     string
	Iteration int
	Result    model.PeriodResult
	Time      time.Time
}

// PeriodRecorder records per-period dispatch results.
type PeriodRecorder interface {
	RecordPeriods(events []PeriodEvent) error
}

// RunEvent is the terminal outcome of a run.
type RunEvent struct {
	RunID      string
	State      model.State
	Iterations int
	Delta      float64
	Summary    model.Summary
	Duration   time.Duration
	Time       time.Time
}

// RunRecorder records completed runs.
type RunRecorder interface {
	RecordRun(ev RunEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordIteration(IterationEvent) error { return nil }
func (NopSink) RecordPeriods([]PeriodEvent) error    { return nil }
func (NopSink) RecordRun(RunEvent) error             { return nil }
