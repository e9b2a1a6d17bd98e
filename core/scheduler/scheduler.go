package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/resident-scheduler/core/constraints"
	"github.com/kilianp07/resident-scheduler/core/logger"
	"github.com/kilianp07/resident-scheduler/core/metrics"
	"github.com/kilianp07/resident-scheduler/core/model"
	"github.com/kilianp07/resident-scheduler/core/monitoring"
	"github.com/kilianp07/resident-scheduler/core/runlog"
	"github.com/kilianp07/resident-scheduler/core/solver"
	"github.com/kilianp07/resident-scheduler/core/validate"
	"github.com/kilianp07/resident-scheduler/internal/eventbus"
)

// Result describes the outcome of one Solve call.
type Result struct {
	RunID  string
	Block  int
	Status State
	// Schedule is nil unless a solution was found and passed validation.
	Schedule  *model.Schedule
	Objective int
	// Proven is true only for StatusOptimal solutions.
	Proven bool
	// SoftViolations lists the soft constraints the schedule breaks.
	SoftViolations []string
	Violations     []model.Violation
	Binding        []string
	Counts         map[string]int
	Required       map[string]int
	Trace          []State
	Stats          solver.Stats
	Duration       time.Duration
}

// Scheduler runs scheduling sessions.
type Scheduler struct {
	cfg     Config
	backend solver.Factory
	log     logger.Logger
	metrics metrics.MetricsSink
	bus     *eventbus.TypedBus[metrics.StateEvent]
	store   runlog.Store
	monitor monitoring.Monitor
	clock   func() time.Time
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithBackend overrides the backend configured in Config.Solver.
func WithBackend(f solver.Factory) Option { return func(s *Scheduler) { s.backend = f } }

// WithMetrics sets the sink receiving solve, state and validation events.
func WithMetrics(m metrics.MetricsSink) Option { return func(s *Scheduler) { s.metrics = m } }

// WithEventBus publishes every state transition on bus.
func WithEventBus(bus *eventbus.TypedBus[metrics.StateEvent]) Option {
	return func(s *Scheduler) { s.bus = bus }
}

// WithRunLog appends a record of every run to store.
func WithRunLog(store runlog.Store) Option { return func(s *Scheduler) { s.store = store } }

// WithMonitor sends unexpected run errors to m.
func WithMonitor(m monitoring.Monitor) Option { return func(s *Scheduler) { s.monitor = m } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(s *Scheduler) { s.clock = now } }

// New validates cfg and returns a Scheduler. Zero config fields take their
// defaults.
func New(cfg Config, log logger.Logger, opts ...Option) (*Scheduler, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Scheduler{cfg: cfg, log: logger.OrNop(log), metrics: metrics.NopSink{}, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NopSink{}
	}
	if s.monitor == nil {
		s.monitor = monitoring.NopMonitor{}
	}
	if s.backend == nil {
		f, err := solver.NewFactory(cfg.Solver)
		if err != nil {
			return nil, fmt.Errorf("scheduler: solver backend: %w", err)
		}
		s.backend = f
	}
	return s, nil
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config { return s.cfg }

// Solve schedules one block. The returned Result is non-nil whenever p is,
// including on error, so callers can report the trace and diagnostics.
//
// Errors are *model.InvalidInputError, *model.InfeasibleModelError,
// *model.SolverTimeoutError (the Result then carries the best unproven
// schedule when one was found), *model.ValidationError, or a context error.
func (s *Scheduler) Solve(ctx context.Context, p *constraints.Problem) (*Result, error) {
	if p == nil {
		return nil, model.NewInvalidInput("problem", "nil problem")
	}
	start := s.clock()
	res := &Result{RunID: uuid.NewString(), Block: p.Block().Number}
	sess := &session{runID: res.RunID, block: res.Block, trace: []State{StateIdle}, clock: s.clock, bus: s.bus, sink: s.metrics, log: s.log}
	s.log.Infof("run %s: scheduling block %d for %d residents", res.RunID, res.Block, p.Roster.Len())

	err := s.run(ctx, p, sess, res)
	if err != nil && !sess.state.Terminal() {
		sess.fail()
	}
	res.Status = sess.outcome
	sess.finish()
	res.Trace = sess.trace
	res.Duration = s.clock().Sub(start)
	s.report(res, sess, err)
	return res, err
}

func (s *Scheduler) run(ctx context.Context, p *constraints.Problem, sess *session, res *Result) error {
	set, err := constraints.Build(p, s.cfg.Constraints, s.log)
	if err != nil {
		return err
	}
	res.Counts = set.Counts()
	res.Required = set.Required
	if err := sess.to(StateBuilt); err != nil {
		return err
	}
	if cr, ok := s.metrics.(metrics.ConstraintCountRecorder); ok {
		ev := metrics.ConstraintCountEvent{RunID: res.RunID, Block: res.Block, Counts: res.Counts, Time: s.clock()}
		if err := cr.RecordConstraintCounts(ev); err != nil {
			s.log.Errorf("constraint count metrics error: %v", err)
		}
	}

	be := s.backend()
	enc, err := encode(be, set, false)
	if err != nil {
		return fmt.Errorf("encode block %d: %w", res.Block, err)
	}
	s.log.Debugw("model encoded", map[string]any{
		"run":       res.RunID,
		"variables": len(enc.keys) + enc.slack,
		"rows":      enc.rows,
		"soft":      enc.slack > 0,
	})
	if err := sess.to(StateSolving); err != nil {
		return err
	}
	budget := s.cfg.Budget()
	status, err := be.Solve(ctx, budget)
	if sr, ok := be.(solver.StatsReporter); ok {
		res.Stats = sr.Stats()
	}
	if err != nil {
		return fmt.Errorf("solve block %d: %w", res.Block, err)
	}
	s.log.Infof("run %s: solver finished with status %s", res.RunID, status)

	switch status {
	case solver.StatusOptimal, solver.StatusFeasible:
		if err := s.extract(p, set, enc, be, res); err != nil {
			return err
		}
		res.Proven = status == solver.StatusOptimal
		next := StateOptimal
		if !res.Proven {
			next = StateFeasible
		}
		return sess.to(next)
	case solver.StatusInfeasible:
		if err := sess.to(StateInfeasible); err != nil {
			return err
		}
		ierr := &model.InfeasibleModelError{Block: res.Block}
		if !s.cfg.SkipDiagnostics && s.cfg.DiagnosticBudget() > 0 {
			ierr.Binding = s.diagnose(ctx, p)
			ierr.Diagnosed = true
		}
		res.Binding = ierr.Binding
		return ierr
	default:
		// Unknown is reported as a timeout: the search stopped without a
		// solution or a proof.
		terr := &model.SolverTimeoutError{Budget: budget, HasSolution: be.HasSolution()}
		if terr.HasSolution {
			if err := s.extract(p, set, enc, be, res); err != nil {
				return err
			}
		}
		if err := sess.to(StateTimedOut); err != nil {
			return err
		}
		return terr
	}
}

// extract assembles and validates the backend solution.
func (s *Scheduler) extract(p *constraints.Problem, set *constraints.Set, enc *encoding, be solver.Backend, res *Result) error {
	values := enc.values(be)
	sched, err := Assemble(p.Block(), set.Keys, values)
	if err != nil {
		return err
	}
	if v := validate.Validate(p, s.cfg.Constraints, sched); len(v) > 0 {
		res.Violations = v
		if vr, ok := s.metrics.(metrics.ViolationRecorder); ok {
			if err := vr.RecordViolations(metrics.ViolationEvent{RunID: res.RunID, Block: res.Block, Violations: v, Time: s.clock()}); err != nil {
				s.log.Errorf("violation metrics error: %v", err)
			}
		}
		return &model.ValidationError{Reason: "solved schedule breaks hard rules", Violations: v}
	}
	value := func(k constraints.Key) bool { return values[k] }
	for _, c := range set.Constraints {
		if c.Soft && !c.Satisfied(value) {
			res.SoftViolations = append(res.SoftViolations, c.Label)
		}
	}
	res.Schedule = sched
	res.Objective = be.Objective()
	return nil
}

// report publishes the run to the metrics sink and the run log.
func (s *Scheduler) report(res *Result, sess *session, err error) {
	assignments := 0
	if res.Schedule != nil {
		assignments = res.Schedule.Len()
	}
	constraintsTotal := 0
	for _, n := range res.Counts {
		constraintsTotal += n
	}
	ev := metrics.SolveEvent{
		RunID:       res.RunID,
		Block:       res.Block,
		Status:      res.Status.String(),
		Duration:    res.Duration,
		Objective:   res.Objective,
		Assignments: assignments,
		Variables:   res.Stats.Variables,
		Constraints: constraintsTotal,
		Nodes:       res.Stats.Nodes,
		Binding:     res.Binding,
		Time:        s.clock(),
	}
	if res.Required != nil {
		ev.Residents = len(res.Required)
	}
	if merr := s.metrics.RecordSolve(ev); merr != nil {
		s.log.Errorf("metrics error: %v", merr)
	}
	switch {
	case err == nil:
		s.log.Infof("run %s: block %d %s in %s (%d assignments, objective %d)", res.RunID, res.Block, res.Status, res.Duration, assignments, res.Objective)
	case errors.As(err, new(*model.SolverTimeoutError)):
		s.log.Warnf("run %s: %v", res.RunID, err)
	default:
		s.log.Errorf("run %s: %v", res.RunID, err)
	}
	if monitoring.Reportable(err) {
		s.monitor.CaptureException(err, map[string]string{
			"run_id": res.RunID,
			"block":  strconv.Itoa(res.Block),
			"status": res.Status.String(),
		})
	}
	if s.store == nil {
		return
	}
	rec := runlog.Record{
		RunID:       res.RunID,
		Timestamp:   ev.Time,
		Block:       res.Block,
		Status:      res.Status.String(),
		DurationMS:  res.Duration.Milliseconds(),
		Objective:   res.Objective,
		Proven:      res.Proven,
		Assignments: assignments,
		Binding:     res.Binding,
		Counts:      res.Counts,
		Trace:       sess.traceNames(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if serr := s.store.Append(context.Background(), rec); serr != nil {
		s.log.Errorf("run log error: %v", serr)
	}
}
