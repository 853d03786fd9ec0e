package report

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/runner"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
)

type Verdict string

const (
	VerdictBetter  Verdict = "better"
	VerdictWorse   Verdict = "worse"
	VerdictSame    Verdict = "same"
	VerdictUnknown Verdict = ""
)

// Options carry the direction of each extracted metric. Metrics without a
// declared direction get no verdict.
type Options struct {
	HigherIsBetter map[string]bool
}

type MetricDelta struct {
	Metric    string  `json:"metric"`
	Baseline  float64 `json:"baseline"`
	Candidate float64 `json:"candidate"`
	// Ratio is candidate / baseline.
	Ratio    float64 `json:"ratio"`
	DeltaPct float64 `json:"delta_pct"`
	Verdict  Verdict `json:"verdict,omitempty"`
}

// ComparisonRow pairs one key that is OK on both sides.
type ComparisonRow struct {
	spec.Key
	BaselineBest  float64 `json:"baseline_best_sec"`
	CandidateBest float64 `json:"candidate_best_sec"`
	// Speedup is baseline best / candidate best.
	Speedup float64       `json:"speedup"`
	Metrics []MetricDelta `json:"metrics,omitempty"`
}

// OneSided is a key that could not be compared.
type OneSided struct {
	spec.Key
	Baseline  string `json:"baseline"`
	Candidate string `json:"candidate"`
	Reason    string `json:"reason"`
}

type Comparison struct {
	Baseline      string          `json:"baseline"`
	Candidate     string          `json:"candidate"`
	Metrics       []string        `json:"metrics"`
	Rows          []ComparisonRow `json:"rows"`
	NotComparable []OneSided      `json:"not_comparable"`
	// GeoMeanSpeedup is nil when no key is OK on both sides.
	GeoMeanSpeedup *float64   `json:"geomean_speedup"`
	GeoMeanKeys    []spec.Key `json:"geomean_keys"`
}

const missing = "missing"

// Compare builds comparison rows for keys OK in both tables and lists every
// other key as one-sided. The geometric mean covers exactly Rows.
func Compare(baseline, candidate *Table, opts Options) *Comparison {
	c := &Comparison{
		Baseline:  baseline.Engine,
		Candidate: candidate.Engine,
		Metrics:   commonMetrics(baseline.Metrics, candidate.Metrics),
	}

	base := baseline.Lookup()
	cand := candidate.Lookup()

	for _, key := range unionKeys(baseline, candidate) {
		b, inBase := base[key]
		k, inCand := cand[key]

		if reason := notComparable(b, inBase, k, inCand); reason != "" {
			c.NotComparable = append(c.NotComparable, OneSided{
				Key:       key,
				Baseline:  sideState(b, inBase),
				Candidate: sideState(k, inCand),
				Reason:    reason,
			})
			continue
		}

		row := ComparisonRow{
			Key:           key,
			BaselineBest:  *b.BestSec,
			CandidateBest: *k.BestSec,
			Speedup:       *b.BestSec / *k.BestSec,
		}
		for _, m := range c.Metrics {
			if d, ok := metricDelta(m, b.Metrics[m], k.Metrics[m], opts); ok {
				row.Metrics = append(row.Metrics, d)
			}
		}
		c.Rows = append(c.Rows, row)
	}

	if len(c.Rows) > 0 {
		var logSum float64
		for _, r := range c.Rows {
			logSum += math.Log(r.Speedup)
			c.GeoMeanKeys = append(c.GeoMeanKeys, r.Key)
		}
		g := math.Exp(logSum / float64(len(c.Rows)))
		c.GeoMeanSpeedup = &g
	}
	return c
}

func notComparable(b Row, inBase bool, k Row, inCand bool) string {
	switch {
	case !inBase:
		return "missing in baseline"
	case !inCand:
		return "missing in candidate"
	}

	var reasons []string
	if b.Status != runner.StatusOK {
		reasons = append(reasons, fmt.Sprintf("baseline %s", b.Status))
	}
	if k.Status != runner.StatusOK {
		reasons = append(reasons, fmt.Sprintf("candidate %s", k.Status))
	}
	if len(reasons) > 0 {
		return strings.Join(reasons, ", ")
	}

	if b.BestSec == nil || k.BestSec == nil {
		return "best time N/A"
	}
	if *b.BestSec <= 0 || *k.BestSec <= 0 {
		return "zero best time"
	}
	return ""
}

func sideState(r Row, present bool) string {
	if !present {
		return missing
	}
	return fmt.Sprintf("%s %d/%d", r.Status, r.OK, r.Repetitions)
}

func metricDelta(name string, b, k *float64, opts Options) (MetricDelta, bool) {
	if b == nil || k == nil || *b == 0 {
		return MetricDelta{}, false
	}
	d := MetricDelta{
		Metric:    name,
		Baseline:  *b,
		Candidate: *k,
		Ratio:     *k / *b,
		DeltaPct:  (*k - *b) / *b * 100,
	}

	higher, known := opts.HigherIsBetter[name]
	switch {
	case !known:
		d.Verdict = VerdictUnknown
	case *k == *b:
		d.Verdict = VerdictSame
	case (*k > *b) == higher:
		d.Verdict = VerdictBetter
	default:
		d.Verdict = VerdictWorse
	}
	return d, true
}

func commonMetrics(a, b []string) []string {
	var out []string
	for _, m := range a {
		if slices.Contains(b, m) {
			out = append(out, m)
		}
	}
	slices.Sort(out)
	return out
}

func unionKeys(a, b *Table) []spec.Key {
	seen := make(map[spec.Key]bool)
	var keys []spec.Key
	for _, t := range []*Table{a, b} {
		for _, r := range t.Rows {
			if !seen[r.Key()] {
				seen[r.Key()] = true
				keys = append(keys, r.Key())
			}
		}
	}
	slices.SortFunc(keys, func(x, y spec.Key) int {
		if c := strings.Compare(x.Workload, y.Workload); c != 0 {
			return c
		}
		return x.Threads - y.Threads
	})
	return keys
}
