package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/runner"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/stats"
)

const NotAvailable = "N/A"

// TableSuffix names a per-engine table inside a run directory.
const TableSuffix = ".table.csv"

var tableHeader = []string{"engine", "workload", "threads", "status", "repetitions", "ok", "best_sec", "mean_sec"}

// Row is one configuration of an engine's merged table. Nil values are
// rendered as N/A.
type Row struct {
	Workload    string              `json:"workload"`
	Threads     int                 `json:"threads"`
	Status      runner.Status       `json:"status"`
	Repetitions int                 `json:"repetitions"`
	OK          int                 `json:"ok"`
	BestSec     *float64            `json:"best_sec"`
	MeanSec     *float64            `json:"mean_sec"`
	Metrics     map[string]*float64 `json:"metrics,omitempty"`
}

func (r Row) Key() spec.Key {
	return spec.Key{Workload: r.Workload, Threads: r.Threads}
}

// Table merges every configuration summary of one engine.
type Table struct {
	Engine  string   `json:"engine"`
	Metrics []string `json:"metrics"`
	Rows    []Row    `json:"rows"`
}

// BuildTables produces one table per engine, in the order engines first
// appear in the run.
func BuildTables(res *runner.RunResult) []*Table {
	metrics := runner.MetricNames(res.Metrics)
	byEngine := make(map[string]*Table)
	var tables []*Table

	for _, s := range res.Summaries {
		t, ok := byEngine[s.Engine]
		if !ok {
			t = &Table{Engine: s.Engine, Metrics: metrics}
			byEngine[s.Engine] = t
			tables = append(tables, t)
		}
		t.Rows = append(t.Rows, rowFromSummary(s))
	}

	for _, t := range tables {
		t.sort()
	}
	return tables
}

func rowFromSummary(s runner.ConfigSummary) Row {
	row := Row{
		Workload:    s.Workload,
		Threads:     s.Threads,
		Status:      s.Status,
		Repetitions: s.Repetitions,
		OK:          s.OKCount,
		Metrics:     make(map[string]*float64, len(s.Metrics)),
	}
	if s.Best != nil {
		v := s.Best.Seconds()
		row.BestSec = &v
	}
	if s.Mean != nil {
		v := s.Mean.Seconds()
		row.MeanSec = &v
	}
	for name, v := range s.Metrics {
		row.Metrics[name] = v
	}
	return row
}

func (t *Table) sort() {
	slices.SortStableFunc(t.Rows, func(a, b Row) int {
		if c := strings.Compare(a.Workload, b.Workload); c != 0 {
			return c
		}
		return a.Threads - b.Threads
	})
}

// Lookup indexes the rows by configuration key.
func (t *Table) Lookup() map[spec.Key]Row {
	idx := make(map[spec.Key]Row, len(t.Rows))
	for _, r := range t.Rows {
		idx[r.Key()] = r
	}
	return idx
}

func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append(slices.Clone(tableHeader), t.Metrics...)); err != nil {
		return err
	}
	for _, r := range t.Rows {
		rec := []string{
			t.Engine,
			r.Workload,
			strconv.Itoa(r.Threads),
			string(r.Status),
			strconv.Itoa(r.Repetitions),
			strconv.Itoa(r.OK),
			formatOptional(r.BestSec),
			formatOptional(r.MeanSec),
		}
		for _, m := range t.Metrics {
			rec = append(rec, formatOptional(r.Metrics[m]))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) (*Table, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read table: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read table: empty file")
	}

	header := records[0]
	if len(header) < len(tableHeader) || !slices.Equal(header[:len(tableHeader)], tableHeader) {
		return nil, fmt.Errorf("read table: unexpected header %v", header)
	}

	t := &Table{Metrics: slices.Clone(header[len(tableHeader):])}
	for i, rec := range records[1:] {
		row, engine, err := parseRow(rec, t.Metrics)
		if err != nil {
			return nil, fmt.Errorf("read table: line %d: %w", i+2, err)
		}
		if t.Engine == "" {
			t.Engine = engine
		} else if engine != t.Engine {
			return nil, fmt.Errorf("read table: line %d: engine %q in table of %q", i+2, engine, t.Engine)
		}
		t.Rows = append(t.Rows, row)
	}
	t.sort()
	return t, nil
}

func parseRow(rec []string, metrics []string) (Row, string, error) {
	threads, err := strconv.Atoi(rec[2])
	if err != nil {
		return Row{}, "", fmt.Errorf("threads: %w", err)
	}
	reps, err := strconv.Atoi(rec[4])
	if err != nil {
		return Row{}, "", fmt.Errorf("repetitions: %w", err)
	}
	okCount, err := strconv.Atoi(rec[5])
	if err != nil {
		return Row{}, "", fmt.Errorf("ok: %w", err)
	}

	row := Row{
		Workload:    rec[1],
		Threads:     threads,
		Status:      runner.Status(rec[3]),
		Repetitions: reps,
		OK:          okCount,
		Metrics:     make(map[string]*float64, len(metrics)),
	}
	if row.BestSec, err = parseOptional(rec[6]); err != nil {
		return Row{}, "", fmt.Errorf("best_sec: %w", err)
	}
	if row.MeanSec, err = parseOptional(rec[7]); err != nil {
		return Row{}, "", fmt.Errorf("mean_sec: %w", err)
	}
	for i, m := range metrics {
		v, err := parseOptional(rec[len(tableHeader)+i])
		if err != nil {
			return Row{}, "", fmt.Errorf("%s: %w", m, err)
		}
		row.Metrics[m] = v
	}
	return row, rec[0], nil
}

// TablePath is where an engine's table lives inside a run directory.
func TablePath(runDir, engine string) string {
	return filepath.Join(runDir, engine+TableSuffix)
}

func WriteTableFile(t *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	if err := t.WriteCSV(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write table: %w", err)
	}
	return f.Close()
}

func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

func formatOptional(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return stats.FormatFloat(*v)
}

func parseOptional(s string) (*float64, error) {
	if s == NotAvailable || s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
