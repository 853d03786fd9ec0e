package thermal

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/command"
	"github.com/prometheus/procfs/sysfs"
)

// ErrSensorUnavailable means a reading could not be taken at all. It is a
// configuration problem, so callers abort instead of retrying.
var ErrSensorUnavailable = errors.New("sensor unavailable")

type Sensor interface {
	// Read returns the current temperature in degrees Celsius.
	Read(ctx context.Context) (float64, error)
	Name() string
}

// SysfsSensor reads a kernel thermal zone (/sys/class/thermal/thermal_zone*).
type SysfsSensor struct {
	fs   sysfs.FS
	zone string
}

// NewSysfsSensor matches a zone either by its type, e.g. "x86_pkg_temp" or
// "nvme", or by its directory name, e.g. "thermal_zone0".
func NewSysfsSensor(mountPoint, zone string) (*SysfsSensor, error) {
	if mountPoint == "" {
		mountPoint = sysfs.DefaultMountPoint
	}
	fs, err := sysfs.NewFS(mountPoint)
	if err != nil {
		return nil, fmt.Errorf("%w: open sysfs: %v", ErrSensorUnavailable, err)
	}
	return &SysfsSensor{fs: fs, zone: zone}, nil
}

func (s *SysfsSensor) Read(_ context.Context) (float64, error) {
	zones, err := s.fs.ClassThermalZoneStats()
	if err != nil {
		return 0, fmt.Errorf("%w: read thermal zones: %v", ErrSensorUnavailable, err)
	}
	for _, z := range zones {
		if z.Type == s.zone || "thermal_zone"+z.Name == s.zone {
			return float64(z.Temp) / 1000, nil
		}
	}
	return 0, fmt.Errorf("%w: no thermal zone %q", ErrSensorUnavailable, s.zone)
}

func (s *SysfsSensor) Name() string { return "sysfs:" + s.zone }

// CommandSensor runs a command (smartctl, nvme smart-log, ...) and takes the
// first capture group of pattern from its output as the temperature.
type CommandSensor struct {
	cmd     command.Command
	pattern *regexp.Regexp
}

var defaultTempPattern = regexp.MustCompile(`(?i)temperature\s*[:=]?\s*(-?\d+(?:\.\d+)?)`)

func NewCommandSensor(tmpl command.Template, pattern string) (*CommandSensor, error) {
	cmd, err := tmpl.Render(nil)
	if err != nil {
		return nil, err
	}

	re := defaultTempPattern
	if pattern != "" {
		re, err = regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile sensor pattern: %w", err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("sensor pattern %q has no capture group", pattern)
		}
	}

	return &CommandSensor{cmd: cmd, pattern: re}, nil
}

func (s *CommandSensor) Read(ctx context.Context) (float64, error) {
	out, err := exec.CommandContext(ctx, s.cmd.Path, s.cmd.Args...).Output()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrSensorUnavailable, s.cmd, err)
	}

	m := s.pattern.FindSubmatch(out)
	if m == nil {
		return 0, fmt.Errorf("%w: no temperature in output of %s", ErrSensorUnavailable, s.cmd)
	}
	v, err := strconv.ParseFloat(string(m[1]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: parse %q: %v", ErrSensorUnavailable, m[1], err)
	}
	return v, nil
}

func (s *CommandSensor) Name() string { return s.cmd.String() }
