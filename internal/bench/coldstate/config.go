package coldstate

import "github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"

func ConfigFromSpec(cfg spec.ColdStateConfig) Config {
	return Config{
		StopTimeout:   cfg.StopTimeout,
		StartTimeout:  cfg.StartTimeout,
		PollInterval:  cfg.PollInterval,
		SkipCacheDrop: cfg.SkipCacheDrop,
	}
}
