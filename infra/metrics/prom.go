package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/resident-scheduler/core/metrics"
)

// PromSink records scheduling runs in Prometheus metrics.
type PromSink struct {
	solves      *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	nodes       prometheus.Histogram
	assignments prometheus.Gauge
	constraints *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	violations  *prometheus.CounterVec
	binding     *prometheus.CounterVec
}

// NewPromSink registers scheduling metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.solves, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_solves_total",
		Help: "Scheduling runs by final status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scheduler_solve_duration_seconds",
		Help:    "Wall time of scheduling runs",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.nodes, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_search_nodes",
		Help:    "Search nodes explored per run",
		Buckets: prometheus.ExponentialBuckets(10, 10, 7),
	})); err != nil {
		return nil, err
	}
	if s.assignments, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "scheduler_last_assignments",
		Help: "Assignments in the last produced schedule",
	})); err != nil {
		return nil, err
	}
	if s.constraints, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "scheduler_constraints",
		Help: "Constraints built in the last run by category",
	}, []string{"category"})); err != nil {
		return nil, err
	}
	if s.transitions, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_state_transitions_total",
		Help: "Session state machine transitions",
	}, []string{"from", "to"})); err != nil {
		return nil, err
	}
	if s.violations, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_violations_total",
		Help: "Hard-rule violations found by the validator",
	}, []string{"rule"})); err != nil {
		return nil, err
	}
	if s.binding, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_binding_categories_total",
		Help: "Rule categories reported as the cause of an infeasible block",
	}, []string{"category"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordSolve counts the run and observes its duration.
func (s *PromSink) RecordSolve(ev coremetrics.SolveEvent) error {
	s.solves.WithLabelValues(ev.Status).Inc()
	s.duration.WithLabelValues(ev.Status).Observe(ev.Duration.Seconds())
	s.nodes.Observe(float64(ev.Nodes))
	if ev.Assignments > 0 {
		s.assignments.Set(float64(ev.Assignments))
	}
	for _, c := range ev.Binding {
		s.binding.WithLabelValues(c).Inc()
	}
	return nil
}

// RecordConstraintCounts sets the per-category gauge.
func (s *PromSink) RecordConstraintCounts(ev coremetrics.ConstraintCountEvent) error {
	s.constraints.Reset()
	for c, n := range ev.Counts {
		s.constraints.WithLabelValues(c).Set(float64(n))
	}
	return nil
}

// RecordStateTransition counts one transition.
func (s *PromSink) RecordStateTransition(ev coremetrics.StateEvent) error {
	s.transitions.WithLabelValues(ev.From, ev.To).Inc()
	return nil
}

// RecordViolations counts violations by rule.
func (s *PromSink) RecordViolations(ev coremetrics.ViolationEvent) error {
	for _, v := range ev.Violations {
		s.violations.WithLabelValues(v.Rule).Inc()
	}
	return nil
}
