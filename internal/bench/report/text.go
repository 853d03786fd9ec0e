package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
	"github.com/olekukonko/tablewriter"
)

// WriteText renders a comparison as plain-text tables. The output depends
// only on the comparison, so identical inputs produce identical bytes.
func WriteText(c *Comparison, w io.Writer) error {
	if _, err := fmt.Fprintf(w, "=== %s (candidate) vs %s (baseline) ===\n\n", c.Candidate, c.Baseline); err != nil {
		return err
	}

	header := []string{"Workload", "Threads", "Baseline best (s)", "Candidate best (s)", "Speedup"}
	for _, m := range c.Metrics {
		header = append(header, m+" ratio")
	}

	tw := newTable(w, header)
	for _, r := range c.Rows {
		row := []string{
			r.Workload,
			strconv.Itoa(r.Threads),
			fmtFloat(r.BaselineBest),
			fmtFloat(r.CandidateBest),
			fmtFloat(r.Speedup) + "x",
		}
		for _, m := range c.Metrics {
			row = append(row, metricCell(r.Metrics, m))
		}
		tw.Append(row)
	}
	tw.Render()

	if len(c.NotComparable) > 0 {
		if _, err := fmt.Fprintf(w, "\nNot comparable (%d)\n\n", len(c.NotComparable)); err != nil {
			return err
		}
		nt := newTable(w, []string{"Workload", "Threads", "Baseline", "Candidate", "Reason"})
		for _, o := range c.NotComparable {
			nt.Append([]string{o.Workload, strconv.Itoa(o.Threads), o.Baseline, o.Candidate, o.Reason})
		}
		nt.Render()
	}

	_, err := fmt.Fprintf(w, "\n%s\n", geoMeanLine(c))
	return err
}

func geoMeanLine(c *Comparison) string {
	if c.GeoMeanSpeedup == nil {
		return "Geometric mean speedup: N/A (no key OK on both sides)"
	}
	keys := make([]string, 0, len(c.GeoMeanKeys))
	for _, k := range c.GeoMeanKeys {
		keys = append(keys, keyString(k))
	}
	return fmt.Sprintf("Geometric mean speedup: %sx over %d of %d keys: %s",
		fmtFloat(*c.GeoMeanSpeedup),
		len(c.GeoMeanKeys),
		len(c.Rows)+len(c.NotComparable),
		strings.Join(keys, ", "))
}

func metricCell(deltas []MetricDelta, name string) string {
	for _, d := range deltas {
		if d.Metric != name {
			continue
		}
		cell := fmt.Sprintf("%s (%+.2f%%)", fmtFloat(d.Ratio), d.DeltaPct)
		if d.Verdict != VerdictUnknown {
			cell += " " + string(d.Verdict)
		}
		return cell
	}
	return NotAvailable
}

func newTable(w io.Writer, header []string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_LEFT)
	return t
}

func keyString(k spec.Key) string {
	return fmt.Sprintf("%s/t%d", k.Workload, k.Threads)
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
