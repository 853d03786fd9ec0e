package spec

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/apperr"
	"gopkg.in/yaml.v3"
)

const (
	DefaultOutputDir       = "results"
	DefaultWorkloadTimeout = 30 * time.Minute
	DefaultStopTimeout     = 2 * time.Minute
	DefaultStartTimeout    = 5 * time.Minute
	DefaultPollInterval    = time.Second
	DefaultThermalInterval = 10 * time.Second
	DefaultSampleInterval  = 1
)

var DefaultRepetitions = []string{"cold", "warm1", "warm2"}

func LoadFromFile(path string) (RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RunConfig{}, fmt.Errorf("read run config: %w", err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references, decodes the YAML and applies defaults.
func Parse(data []byte) (RunConfig, error) {
	var c RunConfig
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &c); err != nil {
		return RunConfig{}, fmt.Errorf("parse run config YAML: %w", err)
	}
	if err := validate(&c); err != nil {
		return RunConfig{}, err
	}
	return c, nil
}

var validEngineKinds = map[string]bool{
	"mysql":         true,
	"postgres":      true,
	"elasticsearch": true,
}

var validSensorKinds = map[string]bool{
	"sysfs":   true,
	"command": true,
}

// Validate checks a config after overrides were applied; it is idempotent.
func Validate(c *RunConfig) error {
	return validate(c)
}

func validate(c *RunConfig) error {
	if len(c.Engines) == 0 {
		return apperr.NewValidation("run config has no engines")
	}
	if len(c.Workloads) == 0 {
		return apperr.NewValidation("run config has no workloads")
	}
	if len(c.Threads) == 0 {
		return apperr.NewValidation("run config has no thread counts")
	}

	seen := make(map[string]bool)
	for i, e := range c.Engines {
		if e.Name == "" {
			return apperr.NewValidation(fmt.Sprintf("engine at index %d has no name", i))
		}
		if seen[e.Name] {
			return apperr.NewValidation(fmt.Sprintf("engine %q declared twice", e.Name))
		}
		seen[e.Name] = true
		if !validEngineKinds[e.Kind] {
			return apperr.NewValidation(fmt.Sprintf("engine %q has invalid kind %q", e.Name, e.Kind))
		}
		if e.DSN == "" {
			return apperr.NewValidation(fmt.Sprintf("engine %q has no dsn", e.Name))
		}
		if e.Process == "" {
			return apperr.NewValidation(fmt.Sprintf("engine %q has no process name", e.Name))
		}
		if err := e.Start.Bench.Validate(); err != nil {
			return apperr.NewValidationWrap(fmt.Sprintf("engine %q start.bench", e.Name), err)
		}
		if err := e.Stop.Validate(); err != nil {
			return apperr.NewValidationWrap(fmt.Sprintf("engine %q stop", e.Name), err)
		}
	}

	seen = make(map[string]bool)
	for i := range c.Workloads {
		w := &c.Workloads[i]
		if w.Name == "" {
			return apperr.NewValidation(fmt.Sprintf("workload at index %d has no name", i))
		}
		if seen[w.Name] {
			return apperr.NewValidation(fmt.Sprintf("workload %q declared twice", w.Name))
		}
		seen[w.Name] = true
		if err := w.Command.Validate(); err != nil {
			return apperr.NewValidationWrap(fmt.Sprintf("workload %q", w.Name), err)
		}
		if w.Timeout <= 0 {
			w.Timeout = DefaultWorkloadTimeout
		}
		for _, m := range w.Metrics {
			if m.Name == "" {
				return apperr.NewValidation(fmt.Sprintf("workload %q has a metric without name", w.Name))
			}
			re, err := regexp.Compile(m.Pattern)
			if err != nil {
				return apperr.NewValidationWrap(fmt.Sprintf("workload %q metric %q", w.Name, m.Name), err)
			}
			if re.NumSubexp() < 1 {
				return apperr.NewValidation(fmt.Sprintf("workload %q metric %q pattern has no capture group", w.Name, m.Name))
			}
		}
	}

	for _, th := range c.Threads {
		if th <= 0 {
			return apperr.NewValidation(fmt.Sprintf("thread count must be positive, got %d", th))
		}
	}

	if len(c.Repetitions) == 0 {
		c.Repetitions = append([]string(nil), DefaultRepetitions...)
	}
	labels := make(map[string]bool)
	for _, r := range c.Repetitions {
		if r == "" || labels[r] {
			return apperr.NewValidation(fmt.Sprintf("repetition label %q is empty or repeated", r))
		}
		labels[r] = true
	}

	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}

	if c.Thermal.Enabled {
		if !validSensorKinds[c.Thermal.Sensor.Kind] {
			return apperr.NewValidation(fmt.Sprintf("thermal sensor has invalid kind %q", c.Thermal.Sensor.Kind))
		}
		if c.Thermal.Sensor.Kind == "sysfs" && c.Thermal.Sensor.Zone == "" {
			return apperr.NewValidation("thermal sysfs sensor has no zone")
		}
		if c.Thermal.Sensor.Kind == "command" {
			if err := c.Thermal.Sensor.Command.Validate(); err != nil {
				return apperr.NewValidationWrap("thermal command sensor", err)
			}
		}
		if c.Thermal.Target <= 0 {
			return apperr.NewValidation("thermal target must be positive")
		}
	}
	if c.Thermal.Interval <= 0 {
		c.Thermal.Interval = DefaultThermalInterval
	}

	if c.ColdState.StopTimeout <= 0 {
		c.ColdState.StopTimeout = DefaultStopTimeout
	}
	if c.ColdState.StartTimeout <= 0 {
		c.ColdState.StartTimeout = DefaultStartTimeout
	}
	if c.ColdState.PollInterval <= 0 {
		c.ColdState.PollInterval = DefaultPollInterval
	}

	if c.Sampler.Interval <= 0 {
		c.Sampler.Interval = DefaultSampleInterval
	}
	for i, a := range c.Sampler.Axes {
		if a.Name == "" {
			return apperr.NewValidation(fmt.Sprintf("sampler axis at index %d has no name", i))
		}
		if a.Layout == "" && a.HeaderMarker == "" {
			return apperr.NewValidation(fmt.Sprintf("sampler axis %q needs a layout or a header_marker", a.Name))
		}
		if err := a.Command.Validate(); err != nil {
			return apperr.NewValidationWrap(fmt.Sprintf("sampler axis %q", a.Name), err)
		}
	}

	if c.Influx != nil && (c.Influx.URL == "" || c.Influx.Bucket == "") {
		return apperr.NewValidation("influx sink needs url and bucket")
	}

	return nil
}
