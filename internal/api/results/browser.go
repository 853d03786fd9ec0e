package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/DjordjeVuckovic/engine-bench/internal/apperr"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/report"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/runner"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

type RunInfo struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	StartedAt string   `json:"started_at"`
	EndedAt   string   `json:"ended_at"`
	Engines   []string `json:"engines"`
	Failed    int      `json:"failed_configurations"`
}

// TrialRecord is one row of a run's results file keyed by column name.
type TrialRecord map[string]string

// Browser reads finished runs from an output directory.
type Browser struct {
	root string
}

func NewBrowser(root string) *Browser {
	return &Browser{root: root}
}

func (b *Browser) Root() string {
	return b.root
}

// Runs lists every run that has a manifest, newest first. Runs still in
// progress have no manifest yet and are left out.
func (b *Browser) Runs() ([]RunInfo, error) {
	entries, err := os.ReadDir(b.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []RunInfo{}, nil
		}
		return nil, fmt.Errorf("list runs: %w", err)
	}

	runs := make([]RunInfo, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, err := report.LoadManifest(filepath.Join(b.root, e.Name()))
		if err != nil {
			continue
		}
		info := RunInfo{
			ID:        e.Name(),
			Name:      m.Name,
			StartedAt: m.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
			EndedAt:   m.EndedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Failed:    len(m.Failed),
		}
		for name := range m.Engines {
			info.Engines = append(info.Engines, name)
		}
		sort.Strings(info.Engines)
		runs = append(runs, info)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		if runs[i].StartedAt != runs[j].StartedAt {
			return runs[i].StartedAt > runs[j].StartedAt
		}
		return runs[i].ID < runs[j].ID
	})
	return runs, nil
}

func (b *Browser) Trials(runID string) ([]TrialRecord, error) {
	dir, err := b.runDir(runID)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(dir, runner.ResultsFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.NewNotFound(fmt.Sprintf("run %q", runID))
		}
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read results of %q: %w", runID, err)
	}
	if len(records) == 0 {
		return []TrialRecord{}, nil
	}

	header := records[0]
	trials := make([]TrialRecord, 0, len(records)-1)
	for _, rec := range records[1:] {
		tr := make(TrialRecord, len(header))
		for i, col := range header {
			tr[col] = rec[i]
		}
		trials = append(trials, tr)
	}
	return trials, nil
}

func (b *Browser) Table(runID, engine string) (*report.Table, error) {
	dir, err := b.runDir(runID)
	if err != nil {
		return nil, err
	}
	if !namePattern.MatchString(engine) {
		return nil, apperr.NewValidation(fmt.Sprintf("invalid engine name %q", engine))
	}

	path := report.TablePath(dir, engine)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, apperr.NewNotFound(fmt.Sprintf("table %s/%s", runID, engine))
	}
	return report.LoadTable(path)
}

// Compare compares two engines of one run, using the metric directions
// recorded in the run manifest.
func (b *Browser) Compare(runID, baseline, candidate string) (*report.Comparison, error) {
	if baseline == "" || candidate == "" {
		return nil, apperr.NewValidation("baseline and candidate are required")
	}

	base, err := b.Table(runID, baseline)
	if err != nil {
		return nil, err
	}
	cand, err := b.Table(runID, candidate)
	if err != nil {
		return nil, err
	}

	dir, _ := b.runDir(runID)
	m, err := report.LoadManifest(dir)
	if err != nil {
		return nil, err
	}
	return report.Compare(base, cand, report.Options{HigherIsBetter: m.Metrics}), nil
}

func (b *Browser) runDir(runID string) (string, error) {
	if !namePattern.MatchString(runID) {
		return "", apperr.NewValidation(fmt.Sprintf("invalid run id %q", runID))
	}
	dir := filepath.Join(b.root, runID)
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		return "", apperr.NewNotFound(fmt.Sprintf("run %q", runID))
	}
	return dir, nil
}
