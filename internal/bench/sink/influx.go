package sink

import (
	"context"
	"fmt"
	"strconv"

	"github.com/DjordjeVuckovic/engine-bench/internal/bench/runner"
	"github.com/DjordjeVuckovic/engine-bench/internal/bench/spec"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const (
	MeasurementTrial         = "trial"
	MeasurementConfiguration = "configuration"
)

type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Influx exports trials and configuration summaries as InfluxDB points.
type Influx struct {
	client influxdb2.Client
	writer pointWriter
}

func NewInflux(cfg spec.InfluxConfig) *Influx {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Influx{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

func (s *Influx) WriteTrial(ctx context.Context, runID string, t runner.Trial) error {
	if err := s.writer.WritePoint(ctx, TrialPoint(runID, t)); err != nil {
		return fmt.Errorf("write trial point: %w", err)
	}
	return nil
}

func (s *Influx) WriteConfiguration(ctx context.Context, runID string, cs runner.ConfigSummary) error {
	if err := s.writer.WritePoint(ctx, ConfigurationPoint(runID, cs)); err != nil {
		return fmt.Errorf("write configuration point: %w", err)
	}
	return nil
}

func (s *Influx) Close() {
	s.client.Close()
}

func TrialPoint(runID string, t runner.Trial) *write.Point {
	p := influxdb2.NewPointWithMeasurement(MeasurementTrial).
		AddTag("run", runID).
		AddTag("engine", t.Engine).
		AddTag("workload", t.Workload).
		AddTag("threads", strconv.Itoa(t.Threads)).
		AddTag("label", t.Label).
		AddTag("status", string(t.Status)).
		AddField("elapsed_sec", t.Elapsed.Seconds()).
		AddField("exit_code", t.ExitCode).
		AddField("thermal_reached", t.ThermalReached).
		AddField("force_killed", t.ForceKilled)
	if !t.EndedAt.IsZero() {
		p.SetTime(t.EndedAt)
	}

	for name, v := range t.Metrics {
		p.AddField(name, v)
	}
	for _, ms := range t.Summaries {
		p.AddField(ms.Category+"."+ms.Metric, ms.Mean)
	}
	return p
}

// ConfigurationPoint omits fields that are N/A for the configuration.
func ConfigurationPoint(runID string, cs runner.ConfigSummary) *write.Point {
	p := influxdb2.NewPointWithMeasurement(MeasurementConfiguration).
		AddTag("run", runID).
		AddTag("engine", cs.Engine).
		AddTag("workload", cs.Workload).
		AddTag("threads", strconv.Itoa(cs.Threads)).
		AddTag("status", string(cs.Status)).
		AddField("repetitions", cs.Repetitions).
		AddField("ok", cs.OKCount)

	if cs.Best != nil {
		p.AddField("best_sec", cs.Best.Seconds())
	}
	if cs.Mean != nil {
		p.AddField("mean_sec", cs.Mean.Seconds())
	}
	for name, v := range cs.Metrics {
		if v != nil {
			p.AddField(name, *v)
		}
	}
	return p
}
