package stats

import (
	"sort"
	"strconv"
)

type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Stddev float64 `json:"stddev"`
}

func (s Summary) IsZero() bool {
	return s.Count == 0
}

// MetricSummary is one row of a trial's summary record.
type MetricSummary struct {
	Category string `json:"category"`
	Metric   string `json:"metric"`
	Summary
}

// SummaryHeader is the column layout of a persisted summary record. The
// sample count trails the statistics columns.
var SummaryHeader = []string{"category", "metric", "avg", "min", "max", "stddev", "count"}

func (m MetricSummary) Record() []string {
	return []string{
		m.Category,
		m.Metric,
		FormatFloat(m.Mean),
		FormatFloat(m.Min),
		FormatFloat(m.Max),
		FormatFloat(m.Stddev),
		strconv.Itoa(m.Count),
	}
}

// MetricSet groups accumulators by category and metric name.
type MetricSet struct {
	skip map[string]int
	accs map[string]map[string]*Accumulator
}

func NewMetricSet() *MetricSet {
	return &MetricSet{
		skip: make(map[string]int),
		accs: make(map[string]map[string]*Accumulator),
	}
}

// SetSkip sets how many leading samples of every metric in category are dropped.
// It only affects metrics first seen after the call.
func (ms *MetricSet) SetSkip(category string, n int) {
	ms.skip[category] = n
}

func (ms *MetricSet) Ingest(category, metric string, v float64) {
	byMetric, ok := ms.accs[category]
	if !ok {
		byMetric = make(map[string]*Accumulator)
		ms.accs[category] = byMetric
	}
	acc, ok := byMetric[metric]
	if !ok {
		acc = NewAccumulator(ms.skip[category])
		byMetric[metric] = acc
	}
	acc.Ingest(v)
}

func (ms *MetricSet) Categories() []string {
	cats := make([]string, 0, len(ms.accs))
	for c := range ms.accs {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	return cats
}

// Summaries returns one entry per metric that kept at least one sample,
// ordered by category then metric.
func (ms *MetricSet) Summaries() []MetricSummary {
	var out []MetricSummary
	for _, cat := range ms.Categories() {
		names := make([]string, 0, len(ms.accs[cat]))
		for name := range ms.accs[cat] {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			s := ms.accs[cat][name].Finalize()
			if s.IsZero() {
				continue
			}
			out = append(out, MetricSummary{Category: cat, Metric: name, Summary: s})
		}
	}
	return out
}

func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
