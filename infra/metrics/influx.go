package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/hydrothermal/core/metrics"
	"github.com/kilianp07/hydrothermal/infra/logger"
)

// InfluxSink writes optimisation events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a NopSink
// if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordIteration writes one water_value_iteration point.
func (s *InfluxSink) RecordIteration(ev coremetrics.IterationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("water_value_iteration").
		AddTag("run_id", ev.RunID).
		AddTag("state", ev.State.String()).
		AddField("iteration", ev.Iteration).
		AddField("delta", round3(ev.Delta)).
		AddField("total_cost", round3(ev.TotalCost)).
		AddField("approximate_periods", ev.ApproximatePeriods).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPeriods writes one period_dispatch point per period.
func (s *InfluxSink) RecordPeriods(evs []coremetrics.PeriodEvent) error {
	if len(evs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(evs))
	for _, ev := range evs {
		r := ev.Result
		points = append(points, write.NewPointWithMeasurement("period_dispatch").
			AddTag("run_id", ev.RunID).
			AddTag("period", strconv.Itoa(r.Period.Index)).
			AddTag("approximate", strconv.FormatBool(r.Approximate)).
			AddField("iteration", ev.Iteration).
			AddField("hydro_mw", round3(r.Decision.HydroMW)).
			AddField("thermo_mw", round3(r.Decision.ThermoMW)).
			AddField("storage_mwh", round3(r.StorageAfter)).
			AddField("water_value", round3(r.WaterValue)).
			AddField("loss_mw", round3(r.LossMW)).
			SetTime(ev.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// Close releases the underlying HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
