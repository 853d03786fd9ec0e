package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/coldstate"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/driver"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/engine"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/report"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/runner"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/sampler"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/sink"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/thermal"
	"github.com/spf13/cobra"
)

type runOptions struct {
	configPath    string
	outputDir     string
	threads       []int
	repetitions   []string
	noThermal     bool
	skipCacheDrop bool
	noSampler     bool
	initEngines   bool
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run every configuration of a run request",
		Long: `Walks engine x workload x threads. Every repetition waits for the thermal
gate, restarts the engine from a dropped page cache, samples host resources
and runs the workload driver under its timeout.

The exit status is non-zero when any configuration has no OK repetition.`,
		Example: `  # Run a request
  bench run -c configs/innodb-vs-myrocks.yaml

  # Only 1 and 64 threads, without waiting for the disk to cool
  bench run -c run.yaml --threads 1,64 --no-thermal`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.configPath, "config", "c", "", "Run request YAML")
	f.StringVarP(&opts.outputDir, "output-dir", "o", "", "Override the output directory")
	f.IntSliceVar(&opts.threads, "threads", nil, "Override thread counts")
	f.StringSliceVar(&opts.repetitions, "repetitions", nil, "Override repetition labels")
	f.BoolVar(&opts.noThermal, "no-thermal", false, "Disable the thermal gate")
	f.BoolVar(&opts.skipCacheDrop, "skip-cache-drop", false, "Do not drop the page cache between trials")
	f.BoolVar(&opts.noSampler, "no-sampler", false, "Do not sample host resources")
	f.BoolVar(&opts.initEngines, "init", false, "Run each engine's init command before the first trial, in bulk mode when configured")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func (o *runOptions) apply(cfg *spec.RunConfig) {
	if o.outputDir != "" {
		cfg.OutputDir = o.outputDir
	}
	if len(o.threads) > 0 {
		cfg.Threads = o.threads
	}
	if len(o.repetitions) > 0 {
		cfg.Repetitions = o.repetitions
	}
	if o.noThermal {
		cfg.Thermal.Enabled = false
	}
	if o.skipCacheDrop {
		cfg.ColdState.SkipCacheDrop = true
	}
	if o.noSampler {
		cfg.Sampler.Disabled = true
	}
}

func runBench(cmd *cobra.Command, opts *runOptions) error {
	cfg, err := spec.LoadFromFile(opts.configPath)
	if err != nil {
		return err
	}
	opts.apply(&cfg)
	if err := spec.Validate(&cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := slog.Default()

	engines, cleanup, err := engine.CreateFromSpec(ctx, cfg.Engines)
	if err != nil {
		return err
	}
	defer cleanup()

	if opts.initEngines {
		for _, e := range cfg.Engines {
			bulk := !e.Start.Bulk.IsZero()
			log.Info("Initializing engine", "engine", e.Name, "bulk", bulk)
			err := engine.Prepare(ctx, engines[e.Name], bulk, cfg.ColdState.StartTimeout, cfg.ColdState.PollInterval)
			if err != nil {
				return fmt.Errorf("init %q: %w", e.Name, err)
			}
		}
	}

	deps, closeDeps, err := buildDeps(cfg, engines, log)
	if err != nil {
		return err
	}
	defer closeDeps()

	res, err := runner.NewSequencer(deps).Run(ctx, cfg)
	if res != nil && res.Dir != "" {
		if perr := report.Persist(res.Dir, report.BuildTables(res), report.NewManifest(cfg, res)); perr != nil {
			log.Error("Failed to persist run tables", "error", perr)
		}
	}
	if err != nil {
		return err
	}

	if err := writeComparisons(cmd, res); err != nil {
		return err
	}

	if failed := res.Failed(); len(failed) > 0 {
		log.Warn("Configurations without a successful repetition", "count", len(failed), "configurations", failed)
		return &exitError{code: res.ExitCode()}
	}
	return nil
}

func buildDeps(cfg spec.RunConfig, engines map[string]engine.Lifecycle, log *slog.Logger) (runner.Deps, func(), error) {
	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	gate, err := thermal.GateFromConfig(cfg.Thermal, thermal.WithLogger(log))
	if err != nil {
		return runner.Deps{}, nil, err
	}

	finder, err := coldstate.NewProcFinder("")
	if err != nil {
		return runner.Deps{}, nil, err
	}
	enforcer := coldstate.NewEnforcer(
		coldstate.ConfigFromSpec(cfg.ColdState),
		finder,
		coldstate.PageCacheDropper{},
		coldstate.WithLogger(log))

	deps := runner.Deps{
		Engines:  engines,
		Gate:     gate,
		Enforcer: enforcer,
		Driver:   driver.NewCommandDriver(cfg.Workloads),
		Logger:   log,
	}

	if !cfg.Sampler.Disabled {
		axes, err := sampler.AxesFromConfig(cfg.Sampler)
		if err != nil {
			return runner.Deps{}, nil, err
		}
		deps.Sampler = runner.SamplerAdapter{Sampler: sampler.New(axes, sampler.WithLogger(log))}
	}

	if cfg.Influx != nil {
		s := sink.NewInflux(*cfg.Influx)
		closers = append(closers, s.Close)
		deps.Sink = s
	}

	return deps, closeAll, nil
}

// writeComparisons compares every engine against the first one and writes
// each report next to the run's tables.
func writeComparisons(cmd *cobra.Command, res *runner.RunResult) error {
	tables := report.BuildTables(res)
	if len(tables) < 2 {
		return nil
	}

	opts := report.Options{HigherIsBetter: res.Metrics}
	for _, cand := range tables[1:] {
		c := report.Compare(tables[0], cand, opts)

		path := filepath.Join(res.Dir, fmt.Sprintf("compare-%s-vs-%s.txt", cand.Engine, tables[0].Engine))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create comparison: %w", err)
		}
		if err := report.WriteText(c, f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}

		if err := report.WriteText(c, cmd.OutOrStdout()); err != nil {
			return err
		}
	}
	return nil
}
