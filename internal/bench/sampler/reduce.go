package sampler

import (
	"bufio"
	"fmt"
	"os"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/sample"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/stats"
)

// Summarize parses every axis file in order and reduces it to one summary
// per metric, with the axis name as category.
func Summarize(files []AxisFile) ([]stats.MetricSummary, error) {
	ms := stats.NewMetricSet()

	for _, f := range files {
		if f.Axis.DiscardFirst {
			ms.SetSkip(f.Axis.Name, 1)
		}
		if err := ingestFile(ms, f); err != nil {
			return nil, err
		}
	}

	return ms.Summaries(), nil
}

func ingestFile(ms *stats.MetricSet, f AxisFile) error {
	file, err := os.Open(f.Path)
	if err != nil {
		return fmt.Errorf("open samples for %q: %w", f.Axis.Name, err)
	}
	defer file.Close()

	parser := sample.NewParser(f.Axis.Layout)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		metrics := parser.Parse(scanner.Text())
		for name, v := range metrics {
			ms.Ingest(f.Axis.Name, name, v)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read samples for %q: %w", f.Axis.Name, err)
	}
	return nil
}
