package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/resident-scheduler/core/metrics"
	"github.com/kilianp07/resident-scheduler/infra/logger"
)

// InfluxConfig locates the InfluxDB bucket receiving run events.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes scheduling events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSolve writes one solve_run point.
func (s *InfluxSink) RecordSolve(ev coremetrics.SolveEvent) error {
	p := write.NewPointWithMeasurement("solve_run").
		AddTag("run_id", ev.RunID).
		AddTag("block", strconv.Itoa(ev.Block)).
		AddTag("status", ev.Status).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		AddField("objective", ev.Objective).
		AddField("assignments", ev.Assignments).
		AddField("residents", ev.Residents).
		AddField("variables", ev.Variables).
		AddField("constraints", ev.Constraints).
		AddField("nodes", ev.Nodes)
	if len(ev.Binding) > 0 {
		p = p.AddField("binding", strings.Join(ev.Binding, ","))
	}
	return s.write(p.SetTime(ev.Time))
}

// RecordConstraintCounts writes one point with a field per category.
func (s *InfluxSink) RecordConstraintCounts(ev coremetrics.ConstraintCountEvent) error {
	if len(ev.Counts) == 0 {
		return nil
	}
	p := write.NewPointWithMeasurement("constraint_counts").
		AddTag("run_id", ev.RunID).
		AddTag("block", strconv.Itoa(ev.Block))
	for c, n := range ev.Counts {
		p = p.AddField(c, n)
	}
	return s.write(p.SetTime(ev.Time))
}

// RecordStateTransition writes a state_transition point.
func (s *InfluxSink) RecordStateTransition(ev coremetrics.StateEvent) error {
	p := write.NewPointWithMeasurement("state_transition").
		AddTag("run_id", ev.RunID).
		AddTag("block", strconv.Itoa(ev.Block)).
		AddTag("to", ev.To).
		AddField("from", ev.From).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordViolations writes one point per violation.
func (s *InfluxSink) RecordViolations(ev coremetrics.ViolationEvent) error {
	for _, v := range ev.Violations {
		p := write.NewPointWithMeasurement("violation").
			AddTag("run_id", ev.RunID).
			AddTag("block", strconv.Itoa(ev.Block)).
			AddTag("rule", v.Rule).
			AddField("resident_id", v.ResidentID).
			AddField("date", v.Date.String()).
			AddField("detail", v.Detail).
			SetTime(ev.Time)
		if err := s.write(p); err != nil {
			return err
		}
	}
	return nil
}
