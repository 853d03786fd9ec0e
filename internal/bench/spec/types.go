package spec

import (
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/command"
)

// RunConfig fully describes one benchmark run. It is built once by Parse
// and handed to every component by value.
type RunConfig struct {
	Name        string          `yaml:"name"`
	OutputDir   string          `yaml:"output_dir"`
	Engines     []Engine        `yaml:"engines"`
	Workloads   []Workload      `yaml:"workloads"`
	Threads     []int           `yaml:"threads"`
	Repetitions []string        `yaml:"repetitions"`
	Thermal     ThermalConfig   `yaml:"thermal"`
	ColdState   ColdStateConfig `yaml:"cold_state"`
	Sampler     SamplerConfig   `yaml:"sampler"`
	Influx      *InfluxConfig   `yaml:"influx,omitempty"`
}

type Engine struct {
	Name string `yaml:"name"`
	// Kind selects the liveness probe: mysql, postgres, elasticsearch.
	Kind    string `yaml:"kind"`
	DSN     string `yaml:"dsn"`
	Process string `yaml:"process"`

	Init        command.Template `yaml:"init"`
	Start       StartCommands    `yaml:"start"`
	Stop        command.Template `yaml:"stop"`
	Diagnostics command.Template `yaml:"diagnostics"`
}

// StartCommands holds one start command per engine mode.
type StartCommands struct {
	Bulk  command.Template `yaml:"bulk"`
	Bench command.Template `yaml:"bench"`
}

type Workload struct {
	Name    string           `yaml:"name"`
	Family  string           `yaml:"family"`
	Command command.Template `yaml:"command"`
	Timeout time.Duration    `yaml:"timeout"`
	Metrics []MetricPattern  `yaml:"metrics"`
}

// MetricPattern extracts one scalar from the driver output; the first
// capture group of Pattern is the value.
type MetricPattern struct {
	Name           string `yaml:"name"`
	Pattern        string `yaml:"pattern"`
	HigherIsBetter bool   `yaml:"higher_is_better"`
}

type ThermalConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Target   float64       `yaml:"target"`
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
	Sensor   SensorConfig  `yaml:"sensor"`
}

type SensorConfig struct {
	// Kind is sysfs or command.
	Kind    string           `yaml:"kind"`
	Zone    string           `yaml:"zone"`
	Command command.Template `yaml:"command"`
	Pattern string           `yaml:"pattern"`
}

type ColdStateConfig struct {
	StopTimeout   time.Duration `yaml:"stop_timeout"`
	StartTimeout  time.Duration `yaml:"start_timeout"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	SkipCacheDrop bool          `yaml:"skip_cache_drop"`
}

type SamplerConfig struct {
	Disabled bool `yaml:"disabled"`
	// Interval is the sampling cadence in seconds.
	Interval int          `yaml:"interval"`
	Axes     []AxisConfig `yaml:"axes"`
}

type AxisConfig struct {
	Name         string           `yaml:"name"`
	Layout       string           `yaml:"layout"`
	Command      command.Template `yaml:"command"`
	DiscardFirst bool             `yaml:"discard_first"`
	HeaderMarker string           `yaml:"header_marker"`
	LabelColumn  string           `yaml:"label_column"`
	Ignore       []string         `yaml:"ignore"`
}

type InfluxConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// Configuration is one point of the engine x workload x threads product.
type Configuration struct {
	Engine   string `json:"engine"`
	Workload string `json:"workload"`
	Threads  int    `json:"threads"`
}

func (c Configuration) Key() Key {
	return Key{Workload: c.Workload, Threads: c.Threads}
}

// Key identifies a configuration independently of the engine, so the same
// point can be matched across engines.
type Key struct {
	Workload string `json:"workload"`
	Threads  int    `json:"threads"`
}

func (c RunConfig) Engine(name string) (Engine, bool) {
	for _, e := range c.Engines {
		if e.Name == name {
			return e, true
		}
	}
	return Engine{}, false
}

func (c RunConfig) Workload(name string) (Workload, bool) {
	for _, w := range c.Workloads {
		if w.Name == name {
			return w, true
		}
	}
	return Workload{}, false
}

// Configurations enumerates the cross product in request order.
func (c RunConfig) Configurations() []Configuration {
	out := make([]Configuration, 0, len(c.Engines)*len(c.Workloads)*len(c.Threads))
	for _, e := range c.Engines {
		for _, w := range c.Workloads {
			for _, th := range c.Threads {
				out = append(out, Configuration{Engine: e.Name, Workload: w.Name, Threads: th})
			}
		}
	}
	return out
}
