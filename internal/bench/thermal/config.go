package thermal

import (
	"fmt"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
)

// SensorFromConfig builds the sensor named by cfg.Kind.
func SensorFromConfig(cfg spec.SensorConfig) (Sensor, error) {
	switch cfg.Kind {
	case "sysfs", "":
		return NewSysfsSensor("", cfg.Zone)
	case "command":
		return NewCommandSensor(cfg.Command, cfg.Pattern)
	default:
		return nil, fmt.Errorf("unknown sensor kind %q", cfg.Kind)
	}
}

// GateFromConfig builds a gate; a disabled gate has no sensor and only
// logs that trials are not gated.
func GateFromConfig(cfg spec.ThermalConfig, opts ...Option) (*Gate, error) {
	gc := Config{
		Enabled:  cfg.Enabled,
		Target:   cfg.Target,
		Interval: cfg.Interval,
		Timeout:  cfg.Timeout,
	}
	if !cfg.Enabled {
		return NewGate(nil, gc, opts...), nil
	}

	sensor, err := SensorFromConfig(cfg.Sensor)
	if err != nil {
		return nil, err
	}
	return NewGate(sensor, gc, opts...), nil
}
