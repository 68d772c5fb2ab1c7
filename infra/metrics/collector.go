package metrics

import (
	"context"
	"time"

	coremetrics "github.com/kilianp07/hydrothermal/core/metrics"
	"github.com/kilianp07/hydrothermal/core/watervalue"
	"github.com/kilianp07/hydrothermal/infra/logger"
	"github.com/kilianp07/hydrothermal/internal/eventbus"
)

// StartEventCollector subscribes to the iteration bus and records every report
// on the sink. It stops when the bus is closed or the context is cancelled;
// the returned channel is closed once the collector has drained.
func StartEventCollector(ctx context.Context, bus *eventbus.Bus[watervalue.IterationReport], sink coremetrics.MetricsSink, runID string) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case r, ok := <-sub:
				if !ok {
					return
				}
				if err := Record(sink, runID, r, time.Now()); err != nil {
					log.Warnf("record iteration %d: %v", r.Iteration, err)
				}
			}
		}
	}()
	return done
}

// Record converts an iteration report into sink events.
func Record(sink coremetrics.MetricsSink, runID string, r watervalue.IterationReport, now time.Time) error {
	err := sink.RecordIteration(coremetrics.IterationEvent{
		RunID:              runID,
		Iteration:          r.Iteration,
		Delta:              r.Delta,
		TotalCost:          r.Trajectory.TotalCost,
		ApproximatePeriods: len(r.Trajectory.ApproximatePeriods()),
		State:              r.State,
		Time:               now,
	})
	if err != nil {
		return err
	}
	pr, ok := sink.(coremetrics.PeriodRecorder)
	if !ok {
		return nil
	}
	evs := make([]coremetrics.PeriodEvent, len(r.Trajectory.Periods))
	for i, p := range r.Trajectory.Periods {
		evs[i] = coremetrics.PeriodEvent{RunID: runID, Iteration: r.Iteration, Result: p, Time: now}
	}
	return pr.RecordPeriods(evs)
}
