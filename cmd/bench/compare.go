package main

import (
	"fmt"
	"io"
	"os"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/report"
	"github.com/spf13/cobra"
)

type compareOptions struct {
	runDir         string
	format         string
	output         string
	higherIsBetter []string
	lowerIsBetter  []string
}

func newCompareCmd() *cobra.Command {
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare BASELINE CANDIDATE",
		Short: "Compare two engine tables",
		Long: `Compares the merged tables of two engines. With --run, BASELINE and CANDIDATE
are engine names inside that run directory and metric directions come from
its manifest; otherwise they are paths to .table.csv files.

Only keys OK on both sides get a speedup; every other key is listed as not
comparable, and the geometric mean covers exactly the comparable keys.`,
		Example: `  bench compare --run results/5f0c... innodb myrocks
  bench compare innodb.table.csv myrocks.table.csv --higher-is-better tps --lower-is-better latency_avg`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, opts, args[0], args[1])
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.runDir, "run", "", "Run directory holding <engine>.table.csv and run.json")
	f.StringVarP(&opts.format, "format", "f", "text", "Output format: text or json")
	f.StringVarP(&opts.output, "output", "o", "", "Write the report to a file instead of stdout")
	f.StringSliceVar(&opts.higherIsBetter, "higher-is-better", nil, "Metrics where a higher value is better")
	f.StringSliceVar(&opts.lowerIsBetter, "lower-is-better", nil, "Metrics where a lower value is better")

	return cmd
}

func runCompare(cmd *cobra.Command, opts *compareOptions, baseline, candidate string) error {
	directions := make(map[string]bool)

	basePath, candPath := baseline, candidate
	if opts.runDir != "" {
		m, err := report.LoadManifest(opts.runDir)
		if err != nil {
			return err
		}
		for k, v := range m.Metrics {
			directions[k] = v
		}
		basePath = report.TablePath(opts.runDir, baseline)
		candPath = report.TablePath(opts.runDir, candidate)
	}
	for _, m := range opts.higherIsBetter {
		directions[m] = true
	}
	for _, m := range opts.lowerIsBetter {
		directions[m] = false
	}

	base, err := report.LoadTable(basePath)
	if err != nil {
		return err
	}
	cand, err := report.LoadTable(candPath)
	if err != nil {
		return err
	}
	c := report.Compare(base, cand, report.Options{HigherIsBetter: directions})

	var w io.Writer = cmd.OutOrStdout()
	if opts.output != "" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create report: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch opts.format {
	case "text":
		return report.WriteText(c, w)
	case "json":
		return report.WriteJSON(c, w)
	default:
		return fmt.Errorf("unknown format %q", opts.format)
	}
}
