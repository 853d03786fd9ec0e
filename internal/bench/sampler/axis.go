package sampler

import (
	"fmt"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/command"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/sample"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
)

// Axis is one category of resource sampling backed by one external tool.
type Axis struct {
	Name    string
	Command command.Template
	Layout  sample.Layout
	// DiscardFirst drops the first report, which tools such as mpstat and
	// vmstat print as a since-boot average.
	DiscardFirst bool
}

// DefaultAxes samples the engine process, block devices, every core and
// system-wide memory/run-queue at a one second cadence.
func DefaultAxes() []Axis {
	mustLayout := func(name string) sample.Layout {
		l, err := sample.LookupLayout(name)
		if err != nil {
			panic(err)
		}
		return l
	}

	return []Axis{
		{
			Name:    "process",
			Command: command.Template{Path: "pidstat", Args: []string{"-h", "-u", "-r", "-d", "-C", "{{process}}", "{{interval}}"}},
			Layout:  mustLayout("pidstat"),
		},
		{
			Name:    "device",
			Command: command.Template{Path: "iostat", Args: []string{"-d", "-x", "-m", "-y", "{{interval}}"}},
			Layout:  mustLayout("iostat"),
		},
		{
			Name:         "cpu",
			Command:      command.Template{Path: "mpstat", Args: []string{"-P", "ALL", "{{interval}}"}},
			Layout:       mustLayout("mpstat"),
			DiscardFirst: true,
		},
		{
			Name:         "system",
			Command:      command.Template{Path: "vmstat", Args: []string{"-w", "{{interval}}"}},
			Layout:       mustLayout("vmstat"),
			DiscardFirst: true,
		},
	}
}

// AxesFromConfig builds the configured axes, falling back to DefaultAxes
// when none are listed. A named layout may be refined by the explicit
// header marker, label column and ignore list.
func AxesFromConfig(cfg spec.SamplerConfig) ([]Axis, error) {
	if len(cfg.Axes) == 0 {
		return DefaultAxes(), nil
	}

	axes := make([]Axis, 0, len(cfg.Axes))
	for _, ac := range cfg.Axes {
		var layout sample.Layout
		if ac.Layout != "" {
			l, err := sample.LookupLayout(ac.Layout)
			if err != nil {
				return nil, fmt.Errorf("axis %q: %w", ac.Name, err)
			}
			layout = l
		}
		if ac.HeaderMarker != "" {
			layout.HeaderMarker = ac.HeaderMarker
		}
		if ac.LabelColumn != "" {
			layout.LabelColumn = ac.LabelColumn
		}
		if len(ac.Ignore) > 0 {
			layout.Ignore = ac.Ignore
		}

		axes = append(axes, Axis{
			Name:         ac.Name,
			Command:      ac.Command,
			Layout:       layout,
			DiscardFirst: ac.DiscardFirst,
		})
	}
	return axes, nil
}
