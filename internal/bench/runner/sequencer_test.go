package runner

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/coldstate"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/command"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/driver"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/engine"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/sampler"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/stats"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/thermal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type events []string

func (e *events) add(format string, args ...any) {
	*e = append(*e, fmt.Sprintf(format, args...))
}

type fakeLifecycle struct{ name string }

func (f fakeLifecycle) Init(context.Context) error              { return nil }
func (f fakeLifecycle) Start(context.Context, engine.Mode) error { return nil }
func (f fakeLifecycle) Stop(context.Context) error              { return nil }
func (f fakeLifecycle) Ping(context.Context) bool               { return true }
func (f fakeLifecycle) Diagnostics(context.Context) string      { return "" }
func (f fakeLifecycle) Name() string                            { return f.name }
func (f fakeLifecycle) Process() string                         { return "mysqld" }
func (f fakeLifecycle) Close() error                            { return nil }

type fakeGate struct {
	ev  *events
	res thermal.Result
	err error
}

func (g *fakeGate) Await(context.Context) (thermal.Result, error) {
	g.ev.add("gate")
	return g.res, g.err
}

type fakeEnforcer struct {
	ev *events
	// fail maps engine name to the enforcement error.
	fail map[string]error
}

func (f *fakeEnforcer) Enforce(_ context.Context, eng engine.Lifecycle) (coldstate.Report, error) {
	f.ev.add("enforce:%s", eng.Name())
	if err := f.fail[eng.Name()]; err != nil {
		return coldstate.Report{}, err
	}
	return coldstate.Report{States: []coldstate.State{coldstate.StateReady}}, nil
}

type fakeRecording struct {
	ev     *events
	stops  int
	absent []string
}

func (r *fakeRecording) Stop() error {
	r.stops++
	r.ev.add("sampler:stop")
	return nil
}
func (r *fakeRecording) Files() []sampler.AxisFile { return nil }
func (r *fakeRecording) Absent() []string          { return r.absent }

type fakeSampling struct {
	ev         *events
	recordings []*fakeRecording
	params     []command.Params
}

func (f *fakeSampling) Start(_ string, params command.Params) (Recording, error) {
	f.ev.add("sampler:start")
	rec := &fakeRecording{ev: f.ev, absent: []string{"device"}}
	f.recordings = append(f.recordings, rec)
	f.params = append(f.params, params)
	return rec, nil
}

// fakeDriver returns scripted results keyed by engine/threads/call count.
type fakeDriver struct {
	ev      *events
	results map[string][]driver.Result
	calls   map[string]int
}

func (d *fakeDriver) Run(_ context.Context, cfg spec.Configuration, timeout time.Duration) driver.Result {
	d.ev.add("driver:%s", cfg.Engine)
	key := fmt.Sprintf("%s/%d", cfg.Engine, cfg.Threads)
	if d.calls == nil {
		d.calls = make(map[string]int)
	}
	i := d.calls[key]
	d.calls[key]++

	script := d.results[key]
	if i >= len(script) {
		return driver.Result{ExitCode: 0, Elapsed: time.Second, Output: []byte("tps: 100\n")}
	}
	res := script[i]
	if res.TimedOut {
		res.Elapsed = timeout
	}
	return res
}

func ok(elapsed time.Duration, tps float64) driver.Result {
	return driver.Result{ExitCode: 0, Elapsed: elapsed, Output: []byte(fmt.Sprintf("tps: %.2f\n", tps))}
}

func testRunConfig(t *testing.T, engines ...string) spec.RunConfig {
	t.Helper()
	cfg := spec.RunConfig{
		Name:        "unit",
		OutputDir:   t.TempDir(),
		Threads:     []int{8},
		Repetitions: []string{"cold", "warm1", "warm2"},
		Workloads: []spec.Workload{{
			Name:    "oltp_read_write",
			Command: command.Template{Path: "sysbench"},
			Timeout: 90 * time.Second,
			Metrics: []spec.MetricPattern{{Name: "tps", Pattern: `tps: ([\d.]+)`, HigherIsBetter: true}},
		}},
		Sampler: spec.SamplerConfig{Interval: 1},
	}
	for _, e := range engines {
		cfg.Engines = append(cfg.Engines, spec.Engine{Name: e, Kind: "mysql", Process: "mysqld"})
	}
	return cfg
}

type harness struct {
	ev       *events
	gate     *fakeGate
	enforcer *fakeEnforcer
	sampling *fakeSampling
	driver   *fakeDriver
	seq      *Sequencer
}

func newHarness(engines ...string) *harness {
	ev := &events{}
	h := &harness{
		ev:       ev,
		gate:     &fakeGate{ev: ev, res: thermal.Result{Reached: true}},
		enforcer: &fakeEnforcer{ev: ev, fail: map[string]error{}},
		sampling: &fakeSampling{ev: ev},
		driver:   &fakeDriver{ev: ev, results: map[string][]driver.Result{}},
	}
	lcs := make(map[string]engine.Lifecycle, len(engines))
	for _, e := range engines {
		lcs[e] = fakeLifecycle{name: e}
	}
	h.seq = NewSequencer(Deps{
		Engines:   lcs,
		Gate:      h.gate,
		Enforcer:  h.enforcer,
		Sampler:   h.sampling,
		Summarize: func([]sampler.AxisFile) ([]stats.MetricSummary, error) { return nil, nil },
		Driver:    h.driver,
		NewID:     func() string { return "run-1" },
	})
	return h
}

func TestSequencer_TimedOutRepetitionMakesBestTimeNA(t *testing.T) {
	h := newHarness("innodb")
	h.driver.results["innodb/8"] = []driver.Result{
		ok(40*time.Second, 100),
		{TimedOut: true, ExitCode: -1, Output: []byte("tps: 3.00\n")},
		ok(30*time.Second, 120),
	}

	res, err := h.seq.Run(context.Background(), testRunConfig(t, "innodb"))
	require.NoError(t, err)

	require.Len(t, res.Trials, 3)
	assert.Equal(t, StatusOK, res.Trials[0].Status)
	assert.Equal(t, StatusTimeout, res.Trials[1].Status)
	assert.Equal(t, 90*time.Second, res.Trials[1].Elapsed)
	assert.Equal(t, StatusOK, res.Trials[2].Status)

	require.Len(t, res.Summaries, 1)
	sum := res.Summaries[0]
	assert.Equal(t, StatusTimeout, sum.Status)
	assert.Equal(t, 2, sum.OKCount)
	assert.Nil(t, sum.Best, "best time must not fall back to the successful subset")
	assert.Nil(t, sum.Metrics["tps"])
	assert.Equal(t, 0, res.ExitCode(), "partial success keeps a zero exit status")
}

func TestSequencer_StageOrderAndSamplerStoppedOnEveryPath(t *testing.T) {
	h := newHarness("innodb")
	h.driver.results["innodb/8"] = []driver.Result{
		ok(time.Second, 1),
		{TimedOut: true, ExitCode: -1},
		{ExitCode: 2, Output: []byte("FATAL")},
	}

	_, err := h.seq.Run(context.Background(), testRunConfig(t, "innodb"))
	require.NoError(t, err)

	trial := []string{"gate", "enforce:innodb", "sampler:start", "driver:innodb", "sampler:stop"}
	var want []string
	for range 3 {
		want = append(want, trial...)
	}
	assert.Equal(t, want, []string(*h.ev))

	for _, rec := range h.sampling.recordings {
		assert.Equal(t, 1, rec.stops)
	}
	assert.Equal(t, "mysqld", h.sampling.params[0]["process"])
	assert.Equal(t, 1, h.sampling.params[0]["interval"])
}

func TestSequencer_PersistsEveryTrial(t *testing.T) {
	h := newHarness("innodb")
	h.driver.results["innodb/8"] = []driver.Result{
		ok(2*time.Second, 100),
		{ExitCode: 1, Elapsed: time.Second, Output: []byte("ERROR 1213: Deadlock found")},
		ok(time.Second, 110),
	}
	cfg := testRunConfig(t, "innodb")

	res, err := h.seq.Run(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.OutputDir, "run-1"), res.Dir)

	f, err := os.Open(filepath.Join(res.Dir, ResultsFile))
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, append(append([]string{}, resultsHeader...), "tps"), rows[0])
	assert.Equal(t, []string{"innodb", "oltp_read_write", "8", "warm1", "ERROR", "1", "1.0000"}, rows[2][:7])
	assert.Equal(t, "100.0000", rows[1][len(rows[1])-1])

	out, err := os.ReadFile(filepath.Join(res.Dir, "innodb", "oltp_read_write", "t8", "warm1", OutputFile))
	require.NoError(t, err)
	assert.Contains(t, string(out), "Deadlock found")

	summary, err := os.ReadFile(filepath.Join(res.Dir, "innodb", "oltp_read_write", "t8", "cold", SummaryFile))
	require.NoError(t, err)
	assert.Equal(t, "category,metric,avg,min,max,stddev,count\n", string(summary))

	assert.Equal(t, []string{"device"}, res.Trials[0].AbsentAxes)
	assert.Nil(t, res.Trials[0].Output)
}

func TestSequencer_EngineUnreadyIsLocalToTrial(t *testing.T) {
	h := newHarness("innodb", "myrocks")
	h.enforcer.fail["innodb"] = &coldstate.EngineUnreadyError{
		Engine:      "innodb",
		Diagnostics: "[ERROR] InnoDB: Cannot allocate memory for the buffer pool",
	}

	res, err := h.seq.Run(context.Background(), testRunConfig(t, "innodb", "myrocks"))
	require.NoError(t, err)

	require.Len(t, res.Summaries, 2)
	assert.Equal(t, StatusError, res.Summaries[0].Status)
	assert.Zero(t, res.Summaries[0].OKCount)
	assert.Equal(t, StatusOK, res.Summaries[1].Status)
	assert.Equal(t, 3, res.Summaries[1].OKCount)
	assert.NotContains(t, []string(*h.ev), "driver:innodb")

	assert.Equal(t, 1, res.ExitCode())
	assert.Equal(t, []spec.Configuration{{Engine: "innodb", Workload: "oltp_read_write", Threads: 8}}, res.Failed())

	out, err := os.ReadFile(filepath.Join(res.Dir, "innodb", "oltp_read_write", "t8", "cold", OutputFile))
	require.NoError(t, err)
	assert.Contains(t, string(out), "buffer pool")
}

func TestSequencer_SharedColdStateFailureAbortsRun(t *testing.T) {
	h := newHarness("innodb", "myrocks")
	dropErr := fmt.Errorf("drop page cache: %w", os.ErrPermission)
	h.enforcer.fail["innodb"] = dropErr

	_, err := h.seq.Run(context.Background(), testRunConfig(t, "innodb", "myrocks"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrPermission)
	assert.Equal(t, []string{"gate", "enforce:innodb"}, []string(*h.ev))
}

func TestSequencer_SensorUnavailableAbortsRun(t *testing.T) {
	h := newHarness("innodb")
	h.gate.err = fmt.Errorf("read nvme: %w", thermal.ErrSensorUnavailable)

	_, err := h.seq.Run(context.Background(), testRunConfig(t, "innodb"))
	assert.ErrorIs(t, err, thermal.ErrSensorUnavailable)
	assert.Equal(t, []string{"gate"}, []string(*h.ev))
}

func TestSequencer_ThermalTimeoutProceeds(t *testing.T) {
	h := newHarness("innodb")
	h.gate.res = thermal.Result{Reached: false, Waited: time.Hour, Final: 55}

	res, err := h.seq.Run(context.Background(), testRunConfig(t, "innodb"))
	require.NoError(t, err)
	for _, tr := range res.Trials {
		assert.False(t, tr.ThermalReached)
		assert.Equal(t, StatusOK, tr.Status)
	}
}

type missingDriver struct{ fakeDriver }

func (missingDriver) Preflight() error {
	return fmt.Errorf("%w: sysbench", driver.ErrDriverMissing)
}

func TestSequencer_MissingDriverAbortsBeforeFirstTrial(t *testing.T) {
	h := newHarness("innodb")
	seq := NewSequencer(Deps{
		Engines:  map[string]engine.Lifecycle{"innodb": fakeLifecycle{name: "innodb"}},
		Enforcer: h.enforcer,
		Driver:   &missingDriver{},
	})

	_, err := seq.Run(context.Background(), testRunConfig(t, "innodb"))
	assert.ErrorIs(t, err, driver.ErrDriverMissing)
	assert.Empty(t, *h.ev)
}

func TestSequencer_ContextCancelled(t *testing.T) {
	h := newHarness("innodb")
	ctx, cancel := context.WithCancel(context.Background())
	h.enforcer.fail["innodb"] = context.Canceled
	cancel()

	_, err := h.seq.Run(ctx, testRunConfig(t, "innodb"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSummarize(t *testing.T) {
	cfg := spec.Configuration{Engine: "myrocks", Workload: "q1", Threads: 1}
	okTrial := func(d time.Duration, tps float64) Trial {
		return Trial{Configuration: cfg, Status: StatusOK, Elapsed: d, Metrics: map[string]float64{"tps": tps}}
	}

	t.Run("all ok", func(t *testing.T) {
		s := Summarize(cfg, []Trial{okTrial(3*time.Second, 10), okTrial(time.Second, 20), okTrial(2*time.Second, 30)}, []string{"tps", "tpmC"})
		require.True(t, s.Comparable())
		assert.Equal(t, time.Second, *s.Best)
		assert.Equal(t, 2*time.Second, *s.Mean)
		assert.InDelta(t, 20.0, *s.Metrics["tps"], 1e-9)
		assert.Contains(t, s.Metrics, "tpmC")
		assert.Nil(t, s.Metrics["tpmC"])
	})

	t.Run("first failure decides status", func(t *testing.T) {
		s := Summarize(cfg, []Trial{
			okTrial(time.Second, 1),
			{Configuration: cfg, Status: StatusError},
			{Configuration: cfg, Status: StatusTimeout},
		}, nil)
		assert.Equal(t, StatusError, s.Status)
		assert.Equal(t, 1, s.OKCount)
		assert.False(t, s.Comparable())
		assert.Nil(t, s.Mean)
	})

	t.Run("no trials", func(t *testing.T) {
		s := Summarize(cfg, nil, nil)
		assert.Equal(t, StatusError, s.Status)
		assert.Zero(t, s.Repetitions)
	})
}
