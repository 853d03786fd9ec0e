package report

import (
	"runtime"
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/runner"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
)

const ManifestFile = "run.json"

// Manifest describes one run; it is written next to the run's tables.
type Manifest struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	StartedAt   time.Time             `json:"started_at"`
	EndedAt     time.Time             `json:"ended_at"`
	Engines     map[string]EngineInfo `json:"engines"`
	Workloads   []string              `json:"workloads"`
	Threads     []int                 `json:"threads"`
	Repetitions []string              `json:"repetitions"`
	// Metrics maps each extracted metric to whether higher is better.
	Metrics     map[string]bool        `json:"metrics"`
	Failed      []spec.Configuration   `json:"failed_configurations"`
	Summaries   []runner.ConfigSummary `json:"summaries"`
	Environment EnvironmentInfo        `json:"environment"`
}

type EngineInfo struct {
	Kind    string `json:"kind"`
	Process string `json:"process"`
}

type EnvironmentInfo struct {
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	NumCPU    int    `json:"num_cpu"`
}

func NewEnvironmentInfo() EnvironmentInfo {
	return EnvironmentInfo{
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		NumCPU:    runtime.NumCPU(),
	}
}

func NewManifest(cfg spec.RunConfig, res *runner.RunResult) Manifest {
	m := Manifest{
		ID:          res.ID,
		Name:        res.Name,
		StartedAt:   res.StartedAt,
		EndedAt:     res.EndedAt,
		Engines:     make(map[string]EngineInfo, len(cfg.Engines)),
		Threads:     cfg.Threads,
		Repetitions: cfg.Repetitions,
		Metrics:     res.Metrics,
		Failed:      res.Failed(),
		Summaries:   res.Summaries,
		Environment: NewEnvironmentInfo(),
	}
	for _, e := range cfg.Engines {
		m.Engines[e.Name] = EngineInfo{Kind: e.Kind, Process: e.Process}
	}
	for _, w := range cfg.Workloads {
		m.Workloads = append(m.Workloads, w.Name)
	}
	return m
}
