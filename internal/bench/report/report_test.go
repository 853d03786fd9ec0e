package report

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/runner"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func okRow(workload string, threads int, best float64, tps float64) Row {
	return Row{
		Workload:    workload,
		Threads:     threads,
		Status:      runner.StatusOK,
		Repetitions: 3,
		OK:          3,
		BestSec:     ptr(best),
		MeanSec:     ptr(best * 1.1),
		Metrics:     map[string]*float64{"tps": ptr(tps)},
	}
}

func scenarioTables() (*Table, *Table) {
	a := &Table{Engine: "innodb", Metrics: []string{"tps"}, Rows: []Row{
		okRow("X", 8, 10, 100),
		okRow("Y", 8, 20, 50),
	}}
	b := &Table{Engine: "myrocks", Metrics: []string{"tps"}, Rows: []Row{
		okRow("X", 8, 5, 200),
		{Workload: "Y", Threads: 8, Status: runner.StatusTimeout, Repetitions: 3, OK: 2,
			Metrics: map[string]*float64{"tps": nil}},
	}}
	return a, b
}

func TestCompare_OnlyBothOKKeysAreRows(t *testing.T) {
	a, b := scenarioTables()
	c := Compare(a, b, Options{HigherIsBetter: map[string]bool{"tps": true}})

	require.Len(t, c.Rows, 1)
	row := c.Rows[0]
	assert.Equal(t, spec.Key{Workload: "X", Threads: 8}, row.Key)
	assert.InDelta(t, 2.0, row.Speedup, 1e-12)
	require.Len(t, row.Metrics, 1)
	assert.InDelta(t, 2.0, row.Metrics[0].Ratio, 1e-12)
	assert.InDelta(t, 100.0, row.Metrics[0].DeltaPct, 1e-12)
	assert.Equal(t, VerdictBetter, row.Metrics[0].Verdict)

	require.Len(t, c.NotComparable, 1)
	one := c.NotComparable[0]
	assert.Equal(t, spec.Key{Workload: "Y", Threads: 8}, one.Key)
	assert.Equal(t, "candidate TIMEOUT", one.Reason)
	assert.Equal(t, "OK 3/3", one.Baseline)
	assert.Equal(t, "TIMEOUT 2/3", one.Candidate)

	require.NotNil(t, c.GeoMeanSpeedup)
	assert.InDelta(t, 2.0, *c.GeoMeanSpeedup, 1e-12)
	assert.Equal(t, []spec.Key{{Workload: "X", Threads: 8}}, c.GeoMeanKeys)
}

func TestCompare_OneSidedKeysAreListed(t *testing.T) {
	a := &Table{Engine: "innodb", Rows: []Row{okRow("q1", 1, 4, 0), okRow("q2", 1, 9, 0)}}
	b := &Table{Engine: "myrocks", Rows: []Row{okRow("q1", 1, 1, 0), okRow("q3", 1, 2, 0)}}

	c := Compare(a, b, Options{})
	require.Len(t, c.Rows, 1)
	require.Len(t, c.NotComparable, 2)
	assert.Equal(t, "missing in candidate", c.NotComparable[0].Reason)
	assert.Equal(t, "missing", c.NotComparable[0].Candidate)
	assert.Equal(t, "missing in baseline", c.NotComparable[1].Reason)
	assert.InDelta(t, 4.0, *c.GeoMeanSpeedup, 1e-12)
}

func TestCompare_GeometricMean(t *testing.T) {
	a := &Table{Engine: "a", Rows: []Row{okRow("q1", 1, 8, 0), okRow("q2", 1, 2, 0)}}
	b := &Table{Engine: "b", Rows: []Row{okRow("q1", 1, 1, 0), okRow("q2", 1, 4, 0)}}

	c := Compare(a, b, Options{})
	// speedups 8 and 0.5
	assert.InDelta(t, 2.0, *c.GeoMeanSpeedup, 1e-12)
	assert.Len(t, c.GeoMeanKeys, 2)
}

func TestCompare_NoCommonKeys(t *testing.T) {
	a := &Table{Engine: "a", Rows: []Row{{Workload: "q1", Threads: 1, Status: runner.StatusError}}}
	b := &Table{Engine: "b", Rows: []Row{okRow("q1", 1, 1, 0)}}

	c := Compare(a, b, Options{})
	assert.Empty(t, c.Rows)
	assert.Nil(t, c.GeoMeanSpeedup)
	assert.Equal(t, "baseline ERROR", c.NotComparable[0].Reason)

	var buf bytes.Buffer
	require.NoError(t, WriteText(c, &buf))
	assert.Contains(t, buf.String(), "Geometric mean speedup: N/A")
}

func TestMetricVerdict_LowerIsBetter(t *testing.T) {
	d, ok := metricDelta("latency_avg", ptr(20), ptr(10), Options{HigherIsBetter: map[string]bool{"latency_avg": false}})
	require.True(t, ok)
	assert.Equal(t, VerdictBetter, d.Verdict)
	assert.InDelta(t, -50.0, d.DeltaPct, 1e-12)

	_, ok = metricDelta("latency_avg", ptr(0), ptr(10), Options{})
	assert.False(t, ok)
}

func TestWriteText(t *testing.T) {
	a, b := scenarioTables()
	c := Compare(a, b, Options{HigherIsBetter: map[string]bool{"tps": true}})

	var buf bytes.Buffer
	require.NoError(t, WriteText(c, &buf))
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, "=== myrocks (candidate) vs innodb (baseline) ==="))
	assert.Contains(t, out, "2.0000x")
	assert.Contains(t, out, "2.0000 (+100.00%) better")
	assert.Contains(t, out, "Not comparable (1)")
	assert.Contains(t, out, "candidate TIMEOUT")
	assert.Contains(t, out, "Geometric mean speedup: 2.0000x over 1 of 2 keys: X/t8")
}

func TestConsolidation_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	a, b := scenarioTables()
	require.NoError(t, WriteTableFile(a, TablePath(dir, a.Engine)))
	require.NoError(t, WriteTableFile(b, TablePath(dir, b.Engine)))

	render := func() ([]byte, []byte) {
		base, err := LoadTable(TablePath(dir, "innodb"))
		require.NoError(t, err)
		cand, err := LoadTable(TablePath(dir, "myrocks"))
		require.NoError(t, err)
		c := Compare(base, cand, Options{HigherIsBetter: map[string]bool{"tps": true}})

		var text, js bytes.Buffer
		require.NoError(t, WriteText(c, &text))
		require.NoError(t, WriteJSON(c, &js))
		return text.Bytes(), js.Bytes()
	}

	text1, json1 := render()
	text2, json2 := render()
	assert.Equal(t, text1, text2)
	assert.Equal(t, json1, json2)
}

func TestTableCSV(t *testing.T) {
	a, _ := scenarioTables()
	a.Rows = append(a.Rows, Row{Workload: "Z", Threads: 1, Status: runner.StatusError, Repetitions: 3,
		Metrics: map[string]*float64{}})

	var buf bytes.Buffer
	require.NoError(t, a.WriteCSV(&buf))
	assert.Equal(t, strings.Join([]string{
		"engine,workload,threads,status,repetitions,ok,best_sec,mean_sec,tps",
		"innodb,X,8,OK,3,3,10.0000,11.0000,100.0000",
		"innodb,Y,8,OK,3,3,20.0000,22.0000,50.0000",
		"innodb,Z,1,ERROR,3,0,N/A,N/A,N/A",
		"",
	}, "\n"), buf.String())

	got, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, "innodb", got.Engine)
	assert.Equal(t, []string{"tps"}, got.Metrics)
	require.Len(t, got.Rows, 3)
	assert.Nil(t, got.Rows[2].BestSec)
	assert.Nil(t, got.Rows[2].Metrics["tps"])
	assert.InDelta(t, 20.0, *got.Rows[1].BestSec, 1e-9)
}

func TestReadCSV_Invalid(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("a,b,c\n"))
	assert.ErrorContains(t, err, "unexpected header")

	_, err = ReadCSV(strings.NewReader(
		"engine,workload,threads,status,repetitions,ok,best_sec,mean_sec\n" +
			"innodb,q1,eight,OK,3,3,1,1\n"))
	assert.ErrorContains(t, err, "line 2")
}

func TestBuildTables(t *testing.T) {
	best := 2 * time.Second
	res := &runner.RunResult{
		Metrics: map[string]bool{"tps": true},
		Summaries: []runner.ConfigSummary{
			{Configuration: spec.Configuration{Engine: "myrocks", Workload: "oltp", Threads: 16}, Status: runner.StatusOK, Repetitions: 3, OKCount: 3, Best: &best, Mean: &best,
				Metrics: map[string]*float64{"tps": ptr(900)}},
			{Configuration: spec.Configuration{Engine: "myrocks", Workload: "oltp", Threads: 1}, Status: runner.StatusTimeout, Repetitions: 3, OKCount: 1,
				Metrics: map[string]*float64{"tps": nil}},
			{Configuration: spec.Configuration{Engine: "innodb", Workload: "oltp", Threads: 1}, Status: runner.StatusOK, Repetitions: 3, OKCount: 3, Best: &best, Mean: &best},
		},
	}

	tables := BuildTables(res)
	require.Len(t, tables, 2)
	assert.Equal(t, "myrocks", tables[0].Engine)
	assert.Equal(t, []string{"tps"}, tables[0].Metrics)
	assert.Equal(t, 1, tables[0].Rows[0].Threads)
	assert.Nil(t, tables[0].Rows[0].BestSec)
	assert.InDelta(t, 2.0, *tables[0].Rows[1].BestSec, 1e-9)
	assert.Equal(t, "innodb", tables[1].Engine)
}

func TestPersistAndLoadManifest(t *testing.T) {
	dir := t.TempDir()
	a, _ := scenarioTables()
	cfg := spec.RunConfig{
		Engines:     []spec.Engine{{Name: "innodb", Kind: "mysql", Process: "mysqld"}},
		Workloads:   []spec.Workload{{Name: "X"}},
		Threads:     []int{8},
		Repetitions: []string{"cold"},
	}
	res := &runner.RunResult{ID: "run-7", Metrics: map[string]bool{"tps": true}}

	require.NoError(t, Persist(dir, []*Table{a}, NewManifest(cfg, res)))

	m, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, "run-7", m.ID)
	assert.Equal(t, "mysqld", m.Engines["innodb"].Process)
	assert.True(t, m.Metrics["tps"])
	assert.FileExists(t, filepath.Join(dir, "innodb.table.csv"))
}
