package runner

import (
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/stats"
)

type Status string

const (
	StatusOK      Status = "OK"
	StatusTimeout Status = "TIMEOUT"
	StatusError   Status = "ERROR"
)

// Trial is one execution of a configuration under a repetition label.
type Trial struct {
	spec.Configuration
	Label string `json:"label"`
	// Ordinal is the position of Label in the repetition list.
	Ordinal int `json:"ordinal"`

	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Elapsed   time.Duration `json:"elapsed"`
	ExitCode  int           `json:"exit_code"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`

	ThermalReached bool `json:"thermal_reached"`
	ForceKilled    bool `json:"force_killed"`

	Metrics    map[string]float64    `json:"metrics,omitempty"`
	Summaries  []stats.MetricSummary `json:"summaries,omitempty"`
	AbsentAxes []string              `json:"absent_axes,omitempty"`

	// Output is the raw driver output. It is released once persisted.
	Output []byte `json:"-"`
}

func (t Trial) OK() bool {
	return t.Status == StatusOK
}

// RunResult collects every trial of a run and one summary per configuration.
type RunResult struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Dir       string          `json:"dir"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
	Trials    []Trial         `json:"trials"`
	Summaries []ConfigSummary `json:"summaries"`
	// Metrics is the declared direction of every extracted metric.
	Metrics map[string]bool `json:"metrics"`
}

// Failed lists the configurations that produced no OK repetition.
func (r *RunResult) Failed() []spec.Configuration {
	var failed []spec.Configuration
	for _, s := range r.Summaries {
		if s.OKCount == 0 {
			failed = append(failed, s.Configuration)
		}
	}
	return failed
}

// ExitCode is non-zero when any configuration has zero OK repetitions.
func (r *RunResult) ExitCode() int {
	if len(r.Failed()) > 0 {
		return 1
	}
	return 0
}
