package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/hydrothermal/config"
	"github.com/kilianp07/hydrothermal/core/dispatch"
	coremetrics "github.com/kilianp07/hydrothermal/core/metrics"
	"github.com/kilianp07/hydrothermal/core/model"
	"github.com/kilianp07/hydrothermal/core/scheduler"
	"github.com/kilianp07/hydrothermal/core/watervalue"
	"github.com/kilianp07/hydrothermal/infra/logger"
	"github.com/kilianp07/hydrothermal/infra/metrics"
	"github.com/kilianp07/hydrothermal/infra/mqtt"
	"github.com/kilianp07/hydrothermal/infra/store"
	"github.com/kilianp07/hydrothermal/internal/eventbus"
	"github.com/kilianp07/hydrothermal/pkg/export"
)

// Report is the outcome of one optimisation run.
type Report struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   watervalue.Outcome
	Summary   model.Summary
}

// Service wires the optimizer to its sinks and outputs.
type Service struct {
	cfg       *config.Config
	log       logger.Logger
	sink      coremetrics.MetricsSink
	solver    *dispatch.Solver
	store     *store.SQLiteStore
	publisher *mqtt.Publisher
	newRunID  func() string
}

// New validates cfg and creates a Service from it.
func New(cfg *config.Config) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logg := logger.New("service")
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	svc := &Service{
		cfg:      cfg,
		log:      logg,
		sink:     sink,
		solver:   dispatch.NewSolver(cfg.Solver, logger.New("dispatch")),
		newRunID: uuid.NewString,
	}
	if cfg.Store.Enabled() {
		st, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("run store: %w", err)
		}
		svc.store = st
	}
	if cfg.MQTT.Enabled() {
		pub, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.publisher = pub
	}
	return svc, nil
}

// Store returns the run store, nil when persistence is disabled.
func (s *Service) Store() *store.SQLiteStore { return s.store }

// Optimize runs the water-value iteration over the configured horizon, then
// persists, exports and publishes the final schedule. Output failures are
// logged and joined into the returned error; the report is always complete
// once the iteration has finished.
func (s *Service) Optimize(ctx context.Context) (Report, error) {
	rep := Report{RunID: s.newRunID(), StartedAt: time.Now()}
	cfg := s.cfg
	policy, err := watervalue.NewPolicy(cfg.WaterValue.Policy, cfg.Plant, cfg.Reservoir, cfg.WaterValue.EfficiencyFactor)
	if err != nil {
		return rep, err
	}
	pass := scheduler.NewPass(cfg.Plant, cfg.Reservoir, cfg.Scheduler, s.solver)

	bus := eventbus.New[watervalue.IterationReport](cfg.WaterValue.MaxIterations + 1)
	waits := []<-chan struct{}{metrics.StartEventCollector(ctx, bus, s.sink, rep.RunID)}
	if s.publisher != nil {
		waits = append(waits, s.publisher.StartProgress(ctx, bus, rep.RunID))
	}

	s.log.Infof("run %s: %s policy over %d periods", rep.RunID, policy.Name(), len(cfg.Horizon.Periods))
	it := watervalue.NewIterator(pass, policy, cfg.WaterValue, logger.New("watervalue"),
		watervalue.ObserverFunc(bus.Publish))
	out, err := it.Run(ctx, cfg.Horizon.Periods)
	bus.Close()
	for _, w := range waits {
		<-w
	}
	rep.Outcome = out
	rep.Duration = time.Since(rep.StartedAt)
	if err != nil {
		return rep, fmt.Errorf("run %s: %w", rep.RunID, err)
	}
	rep.Summary = model.Summarize(out.Trajectory, cfg.Horizon.PeriodHours)
	if d := bus.Dropped(); d > 0 {
		s.log.Warnf("run %s: %d iteration events dropped", rep.RunID, d)
	}
	return rep, s.deliver(ctx, rep)
}

func (s *Service) deliver(ctx context.Context, rep Report) error {
	var errs []error
	out := rep.Outcome
	if r, ok := s.sink.(coremetrics.RunRecorder); ok {
		if err := r.RecordRun(coremetrics.RunEvent{
			RunID:      rep.RunID,
			State:      out.State,
			Iterations: out.Iterations,
			Delta:      out.Delta,
			Summary:    rep.Summary,
			Duration:   rep.Duration,
			Time:       time.Now(),
		}); err != nil {
			errs = append(errs, fmt.Errorf("record run: %w", err))
		}
	}
	if s.store != nil {
		if err := s.store.SaveRun(ctx, store.Run{
			ID:          rep.RunID,
			StartedAt:   rep.StartedAt,
			State:       out.State,
			Iterations:  out.Iterations,
			Delta:       out.Delta,
			WaterValues: out.WaterValues,
			Trajectory:  out.Trajectory,
		}); err != nil {
			errs = append(errs, fmt.Errorf("save run: %w", err))
		}
	}
	if s.cfg.Export.Enabled() {
		if err := export.WriteFile(s.cfg.Export, out.Trajectory); err != nil {
			errs = append(errs, fmt.Errorf("export: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishSchedule(ctx, mqtt.Schedule{
			RunID:       rep.RunID,
			State:       out.State.String(),
			Iterations:  out.Iterations,
			Delta:       out.Delta,
			WaterValues: out.WaterValues,
			Trajectory:  out.Trajectory,
			Summary:     rep.Summary,
		}); err != nil {
			errs = append(errs, fmt.Errorf("publish schedule: %w", err))
		}
	}
	for _, err := range errs {
		s.log.Errorf("run %s: %v", rep.RunID, err)
	}
	return errors.Join(errs...)
}

// DispatchPeriod solves one period in isolation from the given storage and
// water value.
func (s *Service) DispatchPeriod(per model.Period, storage, waterValue float64) (dispatch.Output, error) {
	if err := config.ValidatePeriod(s.cfg.Plant, per); err != nil {
		return dispatch.Output{}, err
	}
	hours := s.cfg.Horizon.PeriodHours
	in := dispatch.Input{
		Plant:        s.cfg.Plant,
		DemandMW:     per.DemandMW,
		HydroCeiling: model.HydroCeiling(s.cfg.Plant, s.cfg.Reservoir, storage, per.InflowMWh, hours),
		WaterValue:   waterValue,
		PeriodHours:  hours,
	}
	return s.solver.Solve(in), nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}
