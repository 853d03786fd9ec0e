package engine

import (
	"context"
	"fmt"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/command"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
)

func NewProber(ctx context.Context, eng spec.Engine) (Prober, error) {
	switch eng.Kind {
	case "mysql":
		return NewMySQLProbe(eng.DSN)
	case "postgres":
		return NewPostgresProbe(ctx, eng.DSN)
	case "elasticsearch":
		return NewElasticsearchProbe(eng.DSN)
	default:
		return nil, fmt.Errorf("unsupported engine kind %q for %q", eng.Kind, eng.Name)
	}
}

// CreateFromSpec builds one lifecycle per configured engine. The returned
// cleanup closes every probe.
func CreateFromSpec(ctx context.Context, engines []spec.Engine) (map[string]Lifecycle, func(), error) {
	lifecycles := make(map[string]Lifecycle, len(engines))
	var cleanups []func()

	cleanup := func() {
		for _, c := range cleanups {
			c()
		}
	}

	for _, eng := range engines {
		prober, err := NewProber(ctx, eng)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("create probe for %q: %w", eng.Name, err)
		}

		le := NewScriptEngine(eng.Name, eng.Process, Commands{
			Init: eng.Init,
			Start: map[Mode]command.Template{
				ModeBulk:  eng.Start.Bulk,
				ModeBench: eng.Start.Bench,
			},
			Stop:        eng.Stop,
			Diagnostics: eng.Diagnostics,
		}, prober)

		cleanups = append(cleanups, func() { _ = le.Close() })
		lifecycles[eng.Name] = le
	}

	return lifecycles, cleanup, nil
}
