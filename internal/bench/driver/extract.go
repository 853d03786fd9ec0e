package driver

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
)

type metricPattern struct {
	name string
	re   *regexp.Regexp
}

// Extractor pulls named scalars out of raw driver output.
type Extractor struct {
	patterns []metricPattern
}

func NewExtractor(metrics []spec.MetricPattern) (*Extractor, error) {
	e := &Extractor{patterns: make([]metricPattern, 0, len(metrics))}
	for _, m := range metrics {
		re, err := regexp.Compile(m.Pattern)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", m.Name, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("metric %q: pattern has no capture group", m.Name)
		}
		e.patterns = append(e.patterns, metricPattern{name: m.Name, re: re})
	}
	return e, nil
}

// Extract returns the value of every pattern that matched. When a pattern
// matches several times the last match wins, since drivers print their
// totals after the interim reports.
func (e *Extractor) Extract(output []byte) map[string]float64 {
	values := make(map[string]float64, len(e.patterns))
	for _, p := range e.patterns {
		matches := p.re.FindAllSubmatch(output, -1)
		for i := len(matches) - 1; i >= 0; i-- {
			raw := strings.ReplaceAll(string(matches[i][1]), ",", "")
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			values[p.name] = v
			break
		}
	}
	return values
}
