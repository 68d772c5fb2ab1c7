package metrics_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	metrics "github.com/kilianp07/hydrothermal/core/metrics"
	"github.com/kilianp07/hydrothermal/core/model"
	inframetrics "github.com/kilianp07/hydrothermal/infra/metrics"
)

// fakeInflux answers the health check and keeps every line-protocol body.
type fakeInflux struct {
	mu     sync.Mutex
	writes []string
}

func (f *fakeInflux) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/health":
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"name":"influxdb","message":"ready","status":"pass","checks":[]}`)
	case "/api/v2/write":
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.writes = append(f.writes, string(body))
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeInflux) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.writes, "\n")
}

func TestMetricsConfigDecodeYAML(t *testing.T) {
	influx := &fakeInflux{}
	srv := httptest.NewServer(influx)
	defer srv.Close()

	data := `sinks:
  - type: prometheus
  - type: influx
    conf:
      url: ` + srv.URL + `/api/v2/write
      token: secret
      org: grid
      bucket: hydrothermal
`
	var cfg metrics.Config
	if err := yaml.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("yaml unmarshal: %v", err)
	}
	s, err := metrics.NewMetricsSink(cfg.Sinks)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	m, ok := s.(*metrics.MultiSink)
	if !ok {
		t.Fatalf("expected MultiSink, got %T", s)
	}
	if len(m.Sinks) != 2 {
		t.Fatalf("expected 2 sinks, got %d", len(m.Sinks))
	}
	if _, ok := m.Sinks[0].(*inframetrics.PromSink); !ok {
		t.Fatalf("expected PromSink first, got %T", m.Sinks[0])
	}
	if _, ok := m.Sinks[1].(*inframetrics.InfluxSink); !ok {
		t.Fatalf("expected InfluxSink second, got %T", m.Sinks[1])
	}

	err = s.RecordIteration(metrics.IterationEvent{
		RunID:     "run-1",
		Iteration: 2,
		Delta:     0.25,
		TotalCost: 1234.5,
		State:     model.StateConverged,
		Time:      time.Unix(0, 0),
	})
	if err != nil {
		t.Fatalf("record iteration: %v", err)
	}
	got := influx.body()
	for _, want := range []string{"water_value_iteration", "run_id=run-1", "state=CONVERGED", "total_cost=1234.5"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
}

func TestMetricsConfigDecodeJSON_UnreachableInflux(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	data := `{"sinks":[{"type":"influx","conf":{"url":"` + url + `","org":"grid","bucket":"hydrothermal"}}]}`
	var cfg metrics.Config
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	s, err := metrics.NewMetricsSink(cfg.Sinks)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, ok := s.(metrics.NopSink); !ok {
		t.Fatalf("expected NopSink fallback, got %T", s)
	}
}
