package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/kilianp07/hydrothermal/core/metrics"
)

// PromSink exposes optimisation progress as Prometheus metrics.
type PromSink struct {
	iterations  prometheus.Counter
	delta       prometheus.Gauge
	annualCost  prometheus.Gauge
	approximate prometheus.Counter
	solverIters prometheus.Histogram
	runs        *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "watervalue_iterations_total",
			Help: "Outer water-value iterations completed",
		}),
		delta: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "watervalue_delta",
			Help: "Largest water-value change of the last iteration",
		}),
		annualCost: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "annual_thermal_cost",
			Help: "Thermal cost of the last annual pass",
		}),
		approximate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_approximate_periods_total",
			Help: "Periods dispatched with the seed after a failed solve",
		}),
		solverIters: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_solver_iterations",
			Help:    "Inner solver iterations per period",
			Buckets: prometheus.LinearBuckets(1, 2, 10),
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "optimization_runs_total",
			Help: "Completed optimisation runs by terminal state",
		}, []string{"state"}),
	}
	var err error
	if s.iterations, err = register(reg, s.iterations); err != nil {
		return nil, err
	}
	if s.delta, err = register(reg, s.delta); err != nil {
		return nil, err
	}
	if s.annualCost, err = register(reg, s.annualCost); err != nil {
		return nil, err
	}
	if s.approximate, err = register(reg, s.approximate); err != nil {
		return nil, err
	}
	if s.solverIters, err = register(reg, s.solverIters); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, s.runs); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when c was registered
// before, so that several sinks can share the default registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Iterations returns the outer iteration counter.
func (s *PromSink) Iterations() prometheus.Counter { return s.iterations }

// RecordIteration updates the iteration counter, delta and annual cost.
func (s *PromSink) RecordIteration(ev coremetrics.IterationEvent) error {
	s.iterations.Inc()
	s.delta.Set(ev.Delta)
	s.annualCost.Set(ev.TotalCost)
	return nil
}

// RecordPeriods counts approximate periods and observes solver effort.
func (s *PromSink) RecordPeriods(evs []coremetrics.PeriodEvent) error {
	for _, ev := range evs {
		if ev.Result.Approximate {
			s.approximate.Inc()
		}
		s.solverIters.Observe(float64(ev.Result.Iterations))
	}
	return nil
}

// RecordRun counts completed runs by state.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	s.runs.WithLabelValues(ev.State.String()).Inc()
	return nil
}

// StartPromServer serves /metrics on addr until ctx is cancelled.
func StartPromServer(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return Serve(ctx, addr, mux)
}

// Serve runs an HTTP server for h until ctx is cancelled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
