package thermal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

const DefaultPollInterval = 10 * time.Second

type Config struct {
	Enabled bool
	// Target is the temperature a reading must be at or below.
	Target   float64
	Interval time.Duration
	// Timeout bounds the wait; zero waits until the target is met.
	Timeout time.Duration
}

type Result struct {
	Reached bool
	Skipped bool
	Waited  time.Duration
	Polls   int
	Initial float64
	Final   float64
}

// Gate blocks until a sensor reports a temperature at or below the target.
type Gate struct {
	sensor Sensor
	cfg    Config
	sleep  func(ctx context.Context, d time.Duration) error
	log    *slog.Logger
}

type Option func(*Gate)

func WithLogger(l *slog.Logger) Option {
	return func(g *Gate) { g.log = l }
}

// WithSleep replaces the wait between polls.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(g *Gate) { g.sleep = fn }
}

func NewGate(sensor Sensor, cfg Config, opts ...Option) *Gate {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPollInterval
	}
	g := &Gate{
		sensor: sensor,
		cfg:    cfg,
		sleep:  sleepContext,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Gate) Await(ctx context.Context) (Result, error) {
	if !g.cfg.Enabled {
		g.log.Warn("Thermal gate disabled, trial not gated", "target", g.cfg.Target)
		return Result{Skipped: true}, nil
	}

	current, err := g.read(ctx)
	if err != nil {
		return Result{}, err
	}

	res := Result{Initial: current, Final: current}
	if current <= g.cfg.Target {
		res.Reached = true
		return res, nil
	}

	g.log.Info("Waiting for device to cool",
		"sensor", g.sensor.Name(),
		"temperature", current,
		"target", g.cfg.Target)

	for {
		if err := g.sleep(ctx, g.cfg.Interval); err != nil {
			return res, err
		}
		res.Polls++
		res.Waited = time.Duration(res.Polls) * g.cfg.Interval

		previous := current
		current, err = g.read(ctx)
		if err != nil {
			return res, err
		}
		res.Final = current

		if current <= g.cfg.Target {
			res.Reached = true
			g.log.Info("Thermal target reached",
				"temperature", current,
				"target", g.cfg.Target,
				"waited", res.Waited)
			return res, nil
		}

		g.log.Info("Still cooling",
			"temperature", current,
			"target", g.cfg.Target,
			"waited", res.Waited,
			"eta", formatETA(EstimateETA(previous, current, g.cfg.Target, g.cfg.Interval)))

		if g.cfg.Timeout > 0 && res.Waited >= g.cfg.Timeout {
			g.log.Warn("Thermal gate timed out",
				"temperature", current,
				"target", g.cfg.Target,
				"waited", res.Waited)
			return res, nil
		}
	}
}

func (g *Gate) read(ctx context.Context) (float64, error) {
	v, err := g.sensor.Read(ctx)
	if err != nil {
		if errors.Is(err, ErrSensorUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %s: %v", ErrSensorUnavailable, g.sensor.Name(), err)
	}
	return v, nil
}

// EstimateETA extrapolates linearly from the change over the last poll only.
// It returns a negative duration when the reading is not falling.
func EstimateETA(previous, current, target float64, interval time.Duration) time.Duration {
	rate := (previous - current) / interval.Seconds()
	if rate <= 0 {
		return -1
	}
	return time.Duration((current - target) / rate * float64(time.Second))
}

func formatETA(d time.Duration) string {
	if d < 0 {
		return "unknown"
	}
	return d.Round(time.Second).String()
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
