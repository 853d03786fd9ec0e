package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/coldstate"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/command"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/driver"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/engine"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/sampler"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/stats"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/thermal"
	"github.com/google/uuid"
)

type Gate interface {
	Await(ctx context.Context) (thermal.Result, error)
}

type Enforcer interface {
	Enforce(ctx context.Context, eng engine.Lifecycle) (coldstate.Report, error)
}

// Sampling starts the resource samplers of one trial.
type Sampling interface {
	Start(dir string, params command.Params) (Recording, error)
}

type Recording interface {
	Stop() error
	Files() []sampler.AxisFile
	Absent() []string
}

// Sink receives every persisted trial and configuration summary.
type Sink interface {
	WriteTrial(ctx context.Context, runID string, t Trial) error
	WriteConfiguration(ctx context.Context, runID string, s ConfigSummary) error
}

type preflighter interface {
	Preflight() error
}

// Deps are the collaborators of a Sequencer. Gate, Sampler and Sink may
// be nil.
type Deps struct {
	Engines   map[string]engine.Lifecycle
	Gate      Gate
	Enforcer  Enforcer
	Sampler   Sampling
	Summarize func([]sampler.AxisFile) ([]stats.MetricSummary, error)
	Driver    driver.Driver
	Sink      Sink
	Logger    *slog.Logger
	Now       func() time.Time
	NewID     func() string
}

// Sequencer walks the configuration cross product one trial at a time.
type Sequencer struct {
	deps Deps
	log  *slog.Logger
}

func NewSequencer(deps Deps) *Sequencer {
	if deps.Summarize == nil {
		deps.Summarize = sampler.Summarize
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.NewString() }
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Sequencer{deps: deps, log: log}
}

// Run executes every configuration and repetition of cfg. Failures local
// to one trial are recorded and the run continues; an unreadable thermal
// sensor or a missing workload driver aborts the run.
func (s *Sequencer) Run(ctx context.Context, cfg spec.RunConfig) (*RunResult, error) {
	if p, ok := s.deps.Driver.(preflighter); ok {
		if err := p.Preflight(); err != nil {
			return nil, err
		}
	}

	extractors, directions, err := buildExtractors(cfg.Workloads)
	if err != nil {
		return nil, err
	}

	res := &RunResult{
		ID:        s.deps.NewID(),
		Name:      cfg.Name,
		StartedAt: s.deps.Now(),
		Metrics:   directions,
	}
	metrics := MetricNames(directions)

	store, err := NewStore(cfg.OutputDir, res.ID, metrics)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	res.Dir = store.Dir()

	s.log.Info("Run started",
		"run", res.ID,
		"configurations", len(cfg.Configurations()),
		"repetitions", cfg.Repetitions,
		"dir", res.Dir)

	for _, conf := range cfg.Configurations() {
		eng, ok := s.deps.Engines[conf.Engine]
		if !ok {
			return res, fmt.Errorf("no lifecycle for engine %q", conf.Engine)
		}
		wl, _ := cfg.Workload(conf.Workload)

		trials := make([]Trial, 0, len(cfg.Repetitions))
		for i, label := range cfg.Repetitions {
			t := Trial{Configuration: conf, Label: label, Ordinal: i}
			if err := s.runTrial(ctx, cfg, eng, wl, extractors[wl.Name], store, &t); err != nil {
				res.EndedAt = s.deps.Now()
				return res, err
			}
			if s.deps.Sink != nil {
				if err := s.deps.Sink.WriteTrial(ctx, res.ID, t); err != nil {
					s.log.Warn("Sink rejected trial", "error", err)
				}
			}
			t.Output = nil
			trials = append(trials, t)
		}

		summary := Summarize(conf, trials, metrics)
		s.logSummary(summary)
		if s.deps.Sink != nil {
			if err := s.deps.Sink.WriteConfiguration(ctx, res.ID, summary); err != nil {
				s.log.Warn("Sink rejected configuration summary", "error", err)
			}
		}
		res.Trials = append(res.Trials, trials...)
		res.Summaries = append(res.Summaries, summary)
	}

	res.EndedAt = s.deps.Now()
	s.log.Info("Run finished",
		"run", res.ID,
		"trials", len(res.Trials),
		"failed_configurations", len(res.Failed()),
		"duration", res.EndedAt.Sub(res.StartedAt))
	return res, nil
}

// runTrial returns an error only when the whole run must stop.
func (s *Sequencer) runTrial(
	ctx context.Context,
	cfg spec.RunConfig,
	eng engine.Lifecycle,
	wl spec.Workload,
	ex *driver.Extractor,
	store *Store,
	t *Trial,
) error {
	log := s.log.With(
		"engine", t.Engine,
		"workload", t.Workload,
		"threads", t.Threads,
		"label", t.Label)

	if s.deps.Gate != nil {
		gr, err := s.deps.Gate.Await(ctx)
		if err != nil {
			return fmt.Errorf("thermal gate: %w", err)
		}
		t.ThermalReached = gr.Reached
		if !gr.Reached && !gr.Skipped {
			log.Warn("Thermal target not reached, trial proceeds", "waited", gr.Waited, "temperature", gr.Final)
		}
	}

	t.StartedAt = s.deps.Now()
	rep, err := s.deps.Enforcer.Enforce(ctx, eng)
	t.ForceKilled = len(rep.ForceKilled) > 0
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// Only an engine that never became ready is local to this trial;
		// cache drop, process listing and kill failures hit every trial.
		var unready *coldstate.EngineUnreadyError
		if !errors.As(err, &unready) {
			return fmt.Errorf("cold state for %s: %w", t.Engine, err)
		}
		t.Status = StatusError
		t.ExitCode = -1
		t.Error = err.Error()
		t.Output = []byte(unready.Diagnostics)
		t.EndedAt = s.deps.Now()
		log.Warn("Cold state not reached, trial skipped", "error", err)
		return store.WriteTrial(*t)
	}

	dir, err := store.TrialDir(*t)
	if err != nil {
		return err
	}

	res, recording, err := s.sampled(ctx, dir, cfg, eng, wl, t)
	if err != nil {
		return err
	}
	t.EndedAt = s.deps.Now()

	if errors.Is(res.Err, exec.ErrNotFound) {
		return fmt.Errorf("%w: %v", driver.ErrDriverMissing, res.Err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	t.Output = res.Output
	t.ExitCode = res.ExitCode
	t.Elapsed = res.Elapsed
	switch {
	case res.TimedOut:
		t.Status = StatusTimeout
		log.Warn("Workload timed out", "timeout", res.Elapsed)
	case res.Err != nil:
		t.Status = StatusError
		t.Error = res.Err.Error()
		log.Warn("Workload failed to run", "error", res.Err)
	case res.ExitCode != 0:
		t.Status = StatusError
		t.Error = fmt.Sprintf("exit status %d", res.ExitCode)
		log.Warn("Workload exited non-zero", "exit_code", res.ExitCode)
	default:
		t.Status = StatusOK
	}

	if ex != nil {
		t.Metrics = ex.Extract(res.Output)
	}

	if recording != nil {
		t.AbsentAxes = recording.Absent()
		summaries, err := s.deps.Summarize(recording.Files())
		if err != nil {
			log.Warn("Sample reduction failed", "error", err)
		}
		t.Summaries = summaries
	}

	log.Info("Trial finished",
		"status", t.Status,
		"elapsed", t.Elapsed,
		"metrics", t.Metrics)
	return store.WriteTrial(*t)
}

// sampled runs the driver inside a sampling window. The samplers are
// stopped on every path before it returns.
func (s *Sequencer) sampled(
	ctx context.Context,
	dir string,
	cfg spec.RunConfig,
	eng engine.Lifecycle,
	wl spec.Workload,
	t *Trial,
) (res driver.Result, rec Recording, err error) {
	if s.deps.Sampler != nil {
		rec, err = s.deps.Sampler.Start(dir, command.Params{
			"process":  eng.Process(),
			"interval": cfg.Sampler.Interval,
			"engine":   t.Engine,
			"workload": t.Workload,
			"threads":  t.Threads,
		})
		if err != nil {
			return res, nil, fmt.Errorf("start sampler: %w", err)
		}
		defer func() {
			if stopErr := rec.Stop(); stopErr != nil {
				s.log.Warn("Sampler did not stop cleanly", "error", stopErr)
			}
		}()
	}

	res = s.deps.Driver.Run(ctx, t.Configuration, wl.Timeout)
	return res, rec, nil
}

func (s *Sequencer) logSummary(sum ConfigSummary) {
	args := []any{
		"engine", sum.Engine,
		"workload", sum.Workload,
		"threads", sum.Threads,
		"status", sum.Status,
		"ok", fmt.Sprintf("%d/%d", sum.OKCount, sum.Repetitions),
	}
	if sum.Best != nil {
		args = append(args, "best", *sum.Best)
	} else {
		args = append(args, "best", "N/A")
	}
	if sum.OKCount == 0 {
		s.log.Warn("Configuration has no successful repetition", args...)
		return
	}
	s.log.Info("Configuration summarized", args...)
}

func buildExtractors(workloads []spec.Workload) (map[string]*driver.Extractor, map[string]bool, error) {
	extractors := make(map[string]*driver.Extractor, len(workloads))
	directions := make(map[string]bool)
	for _, w := range workloads {
		ex, err := driver.NewExtractor(w.Metrics)
		if err != nil {
			return nil, nil, fmt.Errorf("workload %q: %w", w.Name, err)
		}
		extractors[w.Name] = ex
		for _, m := range w.Metrics {
			directions[m.Name] = m.HigherIsBetter
		}
	}
	return extractors, directions, nil
}

// SamplerAdapter exposes a *sampler.Sampler as Sampling.
type SamplerAdapter struct {
	*sampler.Sampler
}

func (a SamplerAdapter) Start(dir string, params command.Params) (Recording, error) {
	sess, err := a.Sampler.Start(dir, params)
	if err != nil {
		return nil, err
	}
	return sess, nil
}
