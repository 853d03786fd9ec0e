package runner

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/stats"
)

const (
	ResultsFile = "results.csv"
	OutputFile  = "output.txt"
	SummaryFile = "summary.csv"
)

var resultsHeader = []string{
	"engine", "workload", "threads", "label", "status", "exit_code",
	"elapsed_sec", "started_at", "ended_at", "thermal_reached",
}

// Store writes run artifacts under <root>/<run id>. Every trial gets its
// own directory keyed by configuration and label.
type Store struct {
	dir     string
	metrics []string

	results *os.File
	w       *csv.Writer
}

func NewStore(root, runID string, metrics []string) (*Store, error) {
	dir := filepath.Join(root, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dir, ResultsFile), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create results file: %w", err)
	}

	s := &Store{dir: dir, metrics: metrics, results: f, w: csv.NewWriter(f)}
	header := append(append([]string{}, resultsHeader...), metrics...)
	if err := s.w.Write(header); err != nil {
		_ = f.Close()
		return nil, err
	}
	s.w.Flush()
	return s, s.w.Error()
}

func (s *Store) Dir() string {
	return s.dir
}

// TrialDir creates and returns the artifact directory of a trial.
func (s *Store) TrialDir(t Trial) (string, error) {
	dir := filepath.Join(s.dir,
		pathSegment(t.Engine),
		pathSegment(t.Workload),
		"t"+strconv.Itoa(t.Threads),
		pathSegment(t.Label))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create trial dir: %w", err)
	}
	return dir, nil
}

// WriteTrial persists the raw output and summary record of a trial and
// appends its row to the results file.
func (s *Store) WriteTrial(t Trial) error {
	dir, err := s.TrialDir(t)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filepath.Join(dir, OutputFile), t.Output, 0o644); err != nil {
		return fmt.Errorf("write trial output: %w", err)
	}
	if err := writeSummary(filepath.Join(dir, SummaryFile), t.Summaries); err != nil {
		return err
	}

	if err := s.w.Write(s.record(t)); err != nil {
		return fmt.Errorf("append results: %w", err)
	}
	s.w.Flush()
	return s.w.Error()
}

func (s *Store) Close() error {
	s.w.Flush()
	if err := s.w.Error(); err != nil {
		_ = s.results.Close()
		return err
	}
	return s.results.Close()
}

func (s *Store) record(t Trial) []string {
	rec := []string{
		t.Engine,
		t.Workload,
		strconv.Itoa(t.Threads),
		t.Label,
		string(t.Status),
		strconv.Itoa(t.ExitCode),
		stats.FormatFloat(t.Elapsed.Seconds()),
		t.StartedAt.UTC().Format(time.RFC3339),
		t.EndedAt.UTC().Format(time.RFC3339),
		strconv.FormatBool(t.ThermalReached),
	}
	for _, m := range s.metrics {
		v, ok := t.Metrics[m]
		if !ok {
			rec = append(rec, "N/A")
			continue
		}
		rec = append(rec, stats.FormatFloat(v))
	}
	return rec
}

func writeSummary(path string, summaries []stats.MetricSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(stats.SummaryHeader); err != nil {
		return err
	}
	for _, ms := range summaries {
		if err := w.Write(ms.Record()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return f.Close()
}

func pathSegment(s string) string {
	return strings.NewReplacer("/", "_", "..", "_").Replace(s)
}
