package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/api/results"
	"github.com/DjordjeVuckovic/engine-bench/internal/apperr"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/report"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/runner"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedRun(t *testing.T, root, id string) {
	t.Helper()

	store, err := runner.NewStore(root, id, []string{"tps"})
	require.NoError(t, err)
	for _, eng := range []string{"innodb", "myrocks"} {
		require.NoError(t, store.WriteTrial(runner.Trial{
			Configuration: spec.Configuration{Engine: eng, Workload: "oltp", Threads: 8},
			Label:         "cold",
			Status:        runner.StatusOK,
			Elapsed:       10 * time.Second,
			Metrics:       map[string]float64{"tps": 100},
		}))
	}
	require.NoError(t, store.Close())

	best := func(s float64) *float64 { return &s }
	tables := []*report.Table{
		{Engine: "innodb", Metrics: []string{"tps"}, Rows: []report.Row{{
			Workload: "oltp", Threads: 8, Status: runner.StatusOK, Repetitions: 1, OK: 1,
			BestSec: best(10), MeanSec: best(10), Metrics: map[string]*float64{"tps": best(100)},
		}}},
		{Engine: "myrocks", Metrics: []string{"tps"}, Rows: []report.Row{{
			Workload: "oltp", Threads: 8, Status: runner.StatusOK, Repetitions: 1, OK: 1,
			BestSec: best(5), MeanSec: best(5), Metrics: map[string]*float64{"tps": best(150)},
		}}},
	}
	manifest := report.Manifest{
		ID:        id,
		Name:      "nightly",
		StartedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Engines:   map[string]report.EngineInfo{"innodb": {Kind: "mysql"}, "myrocks": {Kind: "mysql"}},
		Metrics:   map[string]bool{"tps": true},
	}
	require.NoError(t, report.Persist(filepath.Join(root, id), tables, manifest))
}

func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()
	root := t.TempDir()
	seedRun(t, root, "run-1")

	e := echo.New()
	e.HTTPErrorHandler = apperr.GlobalErrorHandler()
	NewResultsRouter(e, results.NewBrowser(root)).Bind()
	return e
}

func get(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestListRuns(t *testing.T) {
	rec := get(newTestEcho(t), "/runs")
	require.Equal(t, http.StatusOK, rec.Code)

	var runs []results.RunInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, "nightly", runs[0].Name)
	assert.Equal(t, []string{"innodb", "myrocks"}, runs[0].Engines)
}

func TestListTrials(t *testing.T) {
	e := newTestEcho(t)

	rec := get(e, "/runs/run-1/trials")
	require.Equal(t, http.StatusOK, rec.Code)
	var trials []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &trials))
	require.Len(t, trials, 2)
	assert.Equal(t, "innodb", trials[0]["engine"])
	assert.Equal(t, "OK", trials[0]["status"])
	assert.Equal(t, "100.0000", trials[0]["tps"])

	assert.Equal(t, http.StatusNotFound, get(e, "/runs/run-2/trials").Code)
	assert.Equal(t, http.StatusBadRequest, get(e, "/runs/..hidden/trials").Code)
}

func TestGetTable(t *testing.T) {
	e := newTestEcho(t)

	rec := get(e, "/runs/run-1/tables/myrocks")
	require.Equal(t, http.StatusOK, rec.Code)
	var table report.Table
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &table))
	assert.Equal(t, "myrocks", table.Engine)
	require.Len(t, table.Rows, 1)
	assert.InDelta(t, 5.0, *table.Rows[0].BestSec, 1e-9)

	assert.Equal(t, http.StatusNotFound, get(e, "/runs/run-1/tables/rocksdb").Code)
}

func TestCompare(t *testing.T) {
	e := newTestEcho(t)

	rec := get(e, "/compare?run=run-1&baseline=innodb&candidate=myrocks")
	require.Equal(t, http.StatusOK, rec.Code)
	var cmp report.Comparison
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmp))
	require.Len(t, cmp.Rows, 1)
	assert.InDelta(t, 2.0, cmp.Rows[0].Speedup, 1e-9)
	assert.Equal(t, report.VerdictBetter, cmp.Rows[0].Metrics[0].Verdict)
	require.NotNil(t, cmp.GeoMeanSpeedup)

	rec = get(e, "/compare?run=run-1&baseline=innodb")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation error")
}
