package coldstate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/engine"
)

const (
	DefaultStopTimeout  = 2 * time.Minute
	DefaultStartTimeout = 5 * time.Minute
	DefaultPollInterval = time.Second
)

type State string

const (
	StateStopping     State = "stopping"
	StateCacheDropped State = "cache_dropped"
	StateStarting     State = "starting"
	StateReady        State = "ready"
)

type Config struct {
	StopTimeout   time.Duration
	StartTimeout  time.Duration
	PollInterval  time.Duration
	SkipCacheDrop bool
}

// Report describes one pass through the enforcement sequence.
type Report struct {
	// States lists every state entered, in order.
	States      []State
	ForceKilled []int
	StopWait    time.Duration
	StartWait   time.Duration
}

// Enforcer restarts an engine from a cold page cache before every trial.
type Enforcer struct {
	cfg     Config
	finder  ProcessFinder
	dropper CacheDropper
	kill    Killer
	sleep   func(ctx context.Context, d time.Duration) error
	log     *slog.Logger
}

type Option func(*Enforcer)

func WithLogger(l *slog.Logger) Option {
	return func(e *Enforcer) { e.log = l }
}

func WithKiller(k Killer) Option {
	return func(e *Enforcer) { e.kill = k }
}

func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Enforcer) { e.sleep = fn }
}

func NewEnforcer(cfg Config, finder ProcessFinder, dropper CacheDropper, opts ...Option) *Enforcer {
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.StartTimeout <= 0 {
		cfg.StartTimeout = DefaultStartTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.SkipCacheDrop || dropper == nil {
		dropper = noopDropper{}
	}

	e := &Enforcer{
		cfg:     cfg,
		finder:  finder,
		dropper: dropper,
		kill:    SigKill,
		sleep:   sleepContext,
		log:     slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Enforce walks Stopping, CacheDropped, Starting and Ready for one engine.
// A failed readiness probe yields an *EngineUnreadyError.
func (e *Enforcer) Enforce(ctx context.Context, eng engine.Lifecycle) (Report, error) {
	var rep Report
	log := e.log.With("engine", eng.Name())

	rep.States = append(rep.States, StateStopping)
	if err := e.stop(ctx, eng, &rep, log); err != nil {
		return rep, err
	}

	if err := e.dropper.Drop(ctx); err != nil {
		return rep, err
	}
	rep.States = append(rep.States, StateCacheDropped)

	rep.States = append(rep.States, StateStarting)
	if err := e.start(ctx, eng, &rep, log); err != nil {
		return rep, err
	}

	rep.States = append(rep.States, StateReady)
	log.Debug("Engine ready", "stop_wait", rep.StopWait, "start_wait", rep.StartWait)
	return rep, nil
}

func (e *Enforcer) stop(ctx context.Context, eng engine.Lifecycle, rep *Report, log *slog.Logger) error {
	if err := eng.Stop(ctx); err != nil {
		log.Warn("Graceful stop failed", "error", err)
	}

	for {
		pids, err := e.finder.Find(eng.Process())
		if err != nil {
			return err
		}
		if len(pids) == 0 {
			return nil
		}
		if rep.StopWait >= e.cfg.StopTimeout {
			log.Warn("Engine still running after stop timeout, force killing",
				"process", eng.Process(),
				"pids", pids,
				"timeout", e.cfg.StopTimeout)
			for _, pid := range pids {
				if err := e.kill(pid); err != nil {
					return err
				}
			}
			rep.ForceKilled = append(rep.ForceKilled, pids...)
			return nil
		}
		if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
			return err
		}
		rep.StopWait += e.cfg.PollInterval
	}
}

func (e *Enforcer) start(ctx context.Context, eng engine.Lifecycle, rep *Report, log *slog.Logger) error {
	if err := eng.Start(ctx, engine.ModeBench); err != nil {
		return e.unready(ctx, eng, err)
	}

	for !eng.Ping(ctx) {
		if rep.StartWait >= e.cfg.StartTimeout {
			log.Warn("Engine did not answer liveness probe", "timeout", e.cfg.StartTimeout)
			return e.unready(ctx, eng, fmt.Errorf("no liveness response within %s", e.cfg.StartTimeout))
		}
		if err := e.sleep(ctx, e.cfg.PollInterval); err != nil {
			return err
		}
		rep.StartWait += e.cfg.PollInterval
	}
	return nil
}

func (e *Enforcer) unready(ctx context.Context, eng engine.Lifecycle, cause error) error {
	return &EngineUnreadyError{
		Engine:      eng.Name(),
		Diagnostics: eng.Diagnostics(context.WithoutCancel(ctx)),
		Err:         cause,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
