package runner

import (
	"sort"
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
)

// ConfigSummary folds the repetitions of one configuration.
type ConfigSummary struct {
	spec.Configuration
	// Status is OK only when every repetition is OK, otherwise the status
	// of the first failing repetition.
	Status      Status `json:"status"`
	Repetitions int    `json:"repetitions"`
	OKCount     int    `json:"ok"`

	// Best, Mean and Metrics are nil when any repetition failed.
	Best    *time.Duration      `json:"best,omitempty"`
	Mean    *time.Duration      `json:"mean,omitempty"`
	Metrics map[string]*float64 `json:"metrics,omitempty"`
}

// Comparable reports whether timing statistics exist for the configuration.
func (s ConfigSummary) Comparable() bool {
	return s.Status == StatusOK && s.Best != nil
}

// Summarize reduces the trials of one configuration. The best time is only
// defined when every repetition succeeded; it is never taken over the
// successful subset.
func Summarize(cfg spec.Configuration, trials []Trial, metrics []string) ConfigSummary {
	s := ConfigSummary{
		Configuration: cfg,
		Status:        StatusOK,
		Repetitions:   len(trials),
		Metrics:       make(map[string]*float64, len(metrics)),
	}
	for _, m := range metrics {
		s.Metrics[m] = nil
	}

	if len(trials) == 0 {
		s.Status = StatusError
		return s
	}

	for _, t := range trials {
		if t.OK() {
			s.OKCount++
		} else if s.Status == StatusOK {
			s.Status = t.Status
		}
	}
	if s.Status != StatusOK {
		return s
	}

	best := trials[0].Elapsed
	var sum time.Duration
	for _, t := range trials {
		best = min(best, t.Elapsed)
		sum += t.Elapsed
	}
	mean := sum / time.Duration(len(trials))
	s.Best = &best
	s.Mean = &mean

	for _, m := range metrics {
		var total float64
		complete := true
		for _, t := range trials {
			v, ok := t.Metrics[m]
			if !ok {
				complete = false
				break
			}
			total += v
		}
		if complete {
			avg := total / float64(len(trials))
			s.Metrics[m] = &avg
		}
	}
	return s
}

// MetricNames returns the extracted metric names in a stable order.
func MetricNames(directions map[string]bool) []string {
	names := make([]string, 0, len(directions))
	for n := range directions {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
