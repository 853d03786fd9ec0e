package sink

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/runner"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/stats"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tags(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func fields(p *write.Point) map[string]any {
	out := make(map[string]any)
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

var cfg = spec.Configuration{Engine: "myrocks", Workload: "oltp_read_write", Threads: 32}

func TestTrialPoint(t *testing.T) {
	ended := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := TrialPoint("run-1", runner.Trial{
		Configuration:  cfg,
		Label:          "warm1",
		Status:         runner.StatusOK,
		Elapsed:        90 * time.Second,
		ThermalReached: true,
		EndedAt:        ended,
		Metrics:        map[string]float64{"tps": 1234.5},
		Summaries: []stats.MetricSummary{
			{Category: "cpu", Metric: "all.%usr", Summary: stats.Summary{Count: 90, Mean: 41.5}},
		},
	})

	assert.Equal(t, MeasurementTrial, p.Name())
	assert.Equal(t, ended, p.Time())
	assert.Equal(t, map[string]string{
		"run":      "run-1",
		"engine":   "myrocks",
		"workload": "oltp_read_write",
		"threads":  "32",
		"label":    "warm1",
		"status":   "OK",
	}, tags(p))

	f := fields(p)
	assert.Equal(t, 90.0, f["elapsed_sec"])
	assert.Equal(t, true, f["thermal_reached"])
	assert.Equal(t, 1234.5, f["tps"])
	assert.Equal(t, 41.5, f["cpu.all.%usr"])
}

func TestConfigurationPoint_SkipsUnavailable(t *testing.T) {
	p := ConfigurationPoint("run-1", runner.ConfigSummary{
		Configuration: cfg,
		Status:        runner.StatusTimeout,
		Repetitions:   3,
		OKCount:       2,
		Metrics:       map[string]*float64{"tps": nil},
	})

	f := fields(p)
	assert.NotContains(t, f, "best_sec")
	assert.NotContains(t, f, "mean_sec")
	assert.NotContains(t, f, "tps")
	assert.Equal(t, "TIMEOUT", tags(p)["status"])
}

func TestInflux_WritesLineProtocol(t *testing.T) {
	var (
		mu     sync.Mutex
		bodies []string
		query  string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(body))
		query = r.URL.RawQuery
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewInflux(spec.InfluxConfig{URL: srv.URL, Token: "t", Org: "bench", Bucket: "trials"})
	defer s.Close()

	best := 30 * time.Second
	require.NoError(t, s.WriteTrial(context.Background(), "run-1", runner.Trial{Configuration: cfg, Label: "cold", Status: runner.StatusOK}))
	require.NoError(t, s.WriteConfiguration(context.Background(), "run-1", runner.ConfigSummary{Configuration: cfg, Status: runner.StatusOK, Best: &best}))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 2)
	assert.Contains(t, bodies[0], "trial,")
	assert.Contains(t, bodies[0], "label=cold")
	assert.Contains(t, bodies[1], "configuration,")
	assert.Contains(t, bodies[1], "best_sec=30")
	assert.Contains(t, query, "bucket=trials")
}
