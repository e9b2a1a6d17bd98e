package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kilianp07/resident-scheduler/core/constraints"
	"github.com/kilianp07/resident-scheduler/core/logger"
	"github.com/kilianp07/resident-scheduler/core/metrics"
	"github.com/kilianp07/resident-scheduler/core/model"
	"github.com/kilianp07/resident-scheduler/core/runlog"
	"github.com/kilianp07/resident-scheduler/core/solver"
	"github.com/kilianp07/resident-scheduler/core/validate"
	"github.com/kilianp07/resident-scheduler/internal/eventbus"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

func day(s string) model.Date { return model.MustParseDate(s) }

func problem(t *testing.T, number int, start string, length int, catalog []model.ShiftSpec, rs ...model.Resident) *constraints.Problem {
	t.Helper()
	b, err := model.NewBlock(number, day(start), length, model.WithExpectedLength(length))
	require.NoError(t, err)
	cal, err := model.NewCalendar(b, catalog)
	require.NoError(t, err)
	roster, err := model.NewRoster(rs)
	require.NoError(t, err)
	p, err := constraints.NewProblem(cal, roster, nil)
	require.NoError(t, err)
	return p
}

func res(id string, lvl model.Level, base int) model.Resident {
	return model.Resident{ID: id, Name: id, Level: lvl, Pod: model.PodPurple, BaseShifts: base}
}

func newScheduler(t *testing.T, mutate func(*Config), opts ...Option) *Scheduler {
	t.Helper()
	cfg := DefaultConfig()
	cfg.TimeBudgetSeconds = 10
	cfg.DiagnosticBudgetSeconds = 10
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := New(cfg, logger.NopLogger{}, opts...)
	require.NoError(t, err)
	return s
}

// scenarioA: two residents, four days, one resident needed on every day and
// night slot.
func scenarioA(t *testing.T) *constraints.Problem {
	return problem(t, 2, "2024-07-31", 4,
		[]model.ShiftSpec{{Kind: model.ShiftDay, MinStaff: 1}, {Kind: model.ShiftNight, MinStaff: 1}},
		res("a", model.LevelPGY2, 4), res("b", model.LevelPGY3, 4))
}

func TestScenarioACoversEverySlot(t *testing.T) {
	p := scenarioA(t)
	r, err := newScheduler(t, nil).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StateOptimal, r.Status)
	assert.True(t, r.Proven)
	require.NotNil(t, r.Schedule)
	assert.Equal(t, 8, r.Schedule.Len())
	for _, slot := range p.Calendar.Slots() {
		assert.Len(t, r.Schedule.OnSlot(slot.Date, slot.Spec.Kind), 1, slot.String())
	}
	assert.Empty(t, validate.Validate(p, constraints.DefaultOptions(), r.Schedule))
	// rest rules leave one resident on days and the other on nights
	for _, id := range []string{"a", "b"} {
		entries := r.Schedule.ForResident(id)
		require.Len(t, entries, 4)
		for _, e := range entries {
			assert.Equal(t, entries[0].Kind, e.Kind)
		}
	}
	assert.Equal(t, []State{StateIdle, StateBuilt, StateSolving, StateOptimal, StateIdle}, r.Trace)
	assert.NotEmpty(t, r.RunID)
}

func TestScenarioBUnsupervisedFirstYear(t *testing.T) {
	p := problem(t, 2, "2024-07-31", 4,
		[]model.ShiftSpec{{Kind: model.ShiftDay, MinStaff: 1}},
		res("f", model.LevelPGY1, 4))
	r, err := newScheduler(t, nil).Solve(context.Background(), p)
	var inf *model.InfeasibleModelError
	require.ErrorAs(t, err, &inf)
	assert.True(t, inf.Diagnosed)
	assert.Equal(t, []string{"supervision"}, inf.Binding)
	assert.Equal(t, StateInfeasible, r.Status)
	assert.Nil(t, r.Schedule)
	assert.Equal(t, inf.Binding, r.Binding)
}

func TestScenarioCFullBlockTimeOff(t *testing.T) {
	c := res("c", model.LevelPGY2, 2)
	c.TimeOff = []model.TimeOffWindow{{Start: day("2024-07-31"), End: day("2024-08-03"), Kind: model.TimeOffPTO}}
	p := problem(t, 2, "2024-07-31", 4,
		[]model.ShiftSpec{{Kind: model.ShiftDay, MinStaff: 1}},
		res("a", model.LevelPGY2, 2), res("b", model.LevelPGY3, 2), c)
	r, err := newScheduler(t, nil).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Required["c"])
	assert.Empty(t, r.Schedule.ForResident("c"))
	assert.Equal(t, 4, r.Schedule.Len())
}

func TestAggregateDemandExceedsSlots(t *testing.T) {
	p := problem(t, 2, "2024-07-31", 4,
		[]model.ShiftSpec{{Kind: model.ShiftDay, MinStaff: 1, MaxStaff: 1}},
		res("a", model.LevelPGY2, 4), res("b", model.LevelPGY2, 4))
	r, err := newScheduler(t, nil).Solve(context.Background(), p)
	var inf *model.InfeasibleModelError
	require.ErrorAs(t, err, &inf)
	assert.Equal(t, []string{"required-shifts", "minimum-staffing"}, inf.Binding)
	assert.Nil(t, r.Schedule)

	r, err = newScheduler(t, func(c *Config) { c.SkipDiagnostics = true }).Solve(context.Background(), p)
	require.ErrorAs(t, err, &inf)
	assert.False(t, inf.Diagnosed)
	assert.Empty(t, r.Binding)
}

func TestInvalidInputStopsBeforeSolving(t *testing.T) {
	p := problem(t, 2, "2024-07-31", 4,
		[]model.ShiftSpec{{Kind: model.ShiftDay}},
		res("a", model.LevelPGY2, 5))
	r, err := newScheduler(t, nil).Solve(context.Background(), p)
	var in *model.InvalidInputError
	require.ErrorAs(t, err, &in)
	assert.Equal(t, StateError, r.Status)
	assert.Equal(t, []State{StateIdle, StateError, StateIdle}, r.Trace)
}

func TestSoftPodCapIsPriced(t *testing.T) {
	var rs []model.Resident
	for _, id := range []string{"a", "b", "c", "d"} {
		rs = append(rs, res(id, model.LevelPGY2, 4))
	}
	p := problem(t, 2, "2024-07-31", 4, []model.ShiftSpec{{Kind: model.ShiftDay}}, rs...)

	_, err := newScheduler(t, func(c *Config) { c.SkipDiagnostics = true }).Solve(context.Background(), p)
	var inf *model.InfeasibleModelError
	require.ErrorAs(t, err, &inf)

	r, err := newScheduler(t, func(c *Config) { c.Constraints.PodCap.Soft = true }).Solve(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StateOptimal, r.Status)
	assert.Equal(t, 40, r.Objective)
	assert.Len(t, r.SoftViolations, 4)
	assert.Equal(t, 16, r.Schedule.Len())
}

// timedOut reports a timeout after running the wrapped search.
type timedOut struct {
	*solver.Search
	keep bool
}

func (b *timedOut) Solve(ctx context.Context, budget time.Duration) (solver.Status, error) {
	if _, err := b.Search.Solve(ctx, budget); err != nil {
		return solver.StatusUnknown, err
	}
	return solver.StatusTimedOut, nil
}

func (b *timedOut) HasSolution() bool { return b.keep && b.Search.HasSolution() }

func TestTimeoutSurfacesUnprovenSchedule(t *testing.T) {
	p := scenarioA(t)
	s := newScheduler(t, nil, WithBackend(func() solver.Backend {
		return &timedOut{Search: solver.NewSearch(solver.DefaultConfig()), keep: true}
	}))
	r, err := s.Solve(context.Background(), p)
	var to *model.SolverTimeoutError
	require.ErrorAs(t, err, &to)
	assert.True(t, to.HasSolution)
	assert.Equal(t, StateTimedOut, r.Status)
	assert.False(t, r.Proven)
	require.NotNil(t, r.Schedule)
	assert.Equal(t, 8, r.Schedule.Len())
}

func TestTimeoutWithoutSolution(t *testing.T) {
	s := newScheduler(t, nil, WithBackend(func() solver.Backend {
		return &timedOut{Search: solver.NewSearch(solver.DefaultConfig())}
	}))
	r, err := s.Solve(context.Background(), scenarioA(t))
	var to *model.SolverTimeoutError
	require.ErrorAs(t, err, &to)
	assert.False(t, to.HasSolution)
	assert.Nil(t, r.Schedule)
	assert.Equal(t, StateTimedOut, r.Status)
}

func TestRealBudgetExpiry(t *testing.T) {
	var rs []model.Resident
	for i := 0; i < 6; i++ {
		rs = append(rs, res(string(rune('a'+i)), model.LevelPGY2, 5))
	}
	// thirty shifts owed against twenty-eight single-seat days; without the
	// relaxation the search either proves it or runs out of time
	p := problem(t, 2, "2024-07-30", 28, []model.ShiftSpec{{Kind: model.ShiftDay, MaxStaff: 1}}, rs...)
	s := newScheduler(t, func(c *Config) {
		c.TimeBudgetSeconds = 0.05
		c.SkipDiagnostics = true
		c.Solver.Type = "search"
		c.Solver.Conf = map[string]any{"disable_relaxation": true}
	})
	r, err := s.Solve(context.Background(), p)
	require.Error(t, err)
	var to *model.SolverTimeoutError
	var inf *model.InfeasibleModelError
	assert.True(t, errors.As(err, &to) || errors.As(err, &inf), err.Error())
	assert.Nil(t, r.Schedule)
}

func TestSolveStaysWithinBudget(t *testing.T) {
	var rs []model.Resident
	for i := 0; i < 4; i++ {
		rs = append(rs, res(string(rune('a'+i)), model.LevelPGY2, 17))
	}
	p := problem(t, 2, "2024-07-29", 28,
		[]model.ShiftSpec{{Kind: model.ShiftDay, MinStaff: 1}, {Kind: model.ShiftNight, MinStaff: 1}}, rs...)
	s := newScheduler(t, func(c *Config) {
		c.TimeBudgetSeconds = 1
		c.DiagnosticBudgetSeconds = 1
	})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	r, _ := s.Solve(ctx, p)
	require.NotNil(t, r)
	// search budget plus diagnostic budget, with room for model building
	assert.Less(t, time.Since(start), 4*time.Second, "status %s", r.Status)
	assert.True(t, r.Status.Terminal())
}

// allTrue reports every variable as set.
type allTrue struct{ *solver.Search }

func (allTrue) Value(solver.Var) bool { return true }

func TestInconsistentSolverOutputIsRejected(t *testing.T) {
	s := newScheduler(t, nil, WithBackend(func() solver.Backend {
		return allTrue{solver.NewSearch(solver.DefaultConfig())}
	}))
	r, err := s.Solve(context.Background(), scenarioA(t))
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.NotEmpty(t, verr.Violations)
	assert.Equal(t, StateError, r.Status)
	assert.Nil(t, r.Schedule)
}

type recordingMonitor struct {
	mu   sync.Mutex
	errs []error
	tags []map[string]string
}

func (m *recordingMonitor) CaptureException(err error, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, err)
	m.tags = append(m.tags, tags)
}

func (m *recordingMonitor) Flush(time.Duration) {}

func TestMonitorSeesDefectsOnly(t *testing.T) {
	mon := &recordingMonitor{}
	bad := newScheduler(t, nil, WithMonitor(mon), WithBackend(func() solver.Backend {
		return allTrue{solver.NewSearch(solver.DefaultConfig())}
	}))
	r, err := bad.Solve(context.Background(), scenarioA(t))
	require.Error(t, err)
	require.Len(t, mon.errs, 1)
	assert.ErrorAs(t, mon.errs[0], new(*model.ValidationError))
	assert.Equal(t, map[string]string{"run_id": r.RunID, "block": "2", "status": "error"}, mon.tags[0])

	good := newScheduler(t, nil, WithMonitor(mon))
	_, err = good.Solve(context.Background(), problem(t, 2, "2024-07-31", 4,
		[]model.ShiftSpec{{Kind: model.ShiftDay, MinStaff: 1}},
		res("f", model.LevelPGY1, 4)))
	require.Error(t, err)
	_, err = good.Solve(context.Background(), scenarioA(t))
	require.NoError(t, err)
	assert.Len(t, mon.errs, 1)
}

type recordingSink struct {
	mu     sync.Mutex
	solves []metrics.SolveEvent
	counts []metrics.ConstraintCountEvent
	states []metrics.StateEvent
}

func (s *recordingSink) RecordSolve(ev metrics.SolveEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.solves = append(s.solves, ev)
	return nil
}

func (s *recordingSink) RecordConstraintCounts(ev metrics.ConstraintCountEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts = append(s.counts, ev)
	return nil
}

func (s *recordingSink) RecordStateTransition(ev metrics.StateEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states = append(s.states, ev)
	return nil
}

func TestRunIsReported(t *testing.T) {
	sink := &recordingSink{}
	bus := eventbus.NewTyped[metrics.StateEvent]()
	defer bus.Close()
	events := bus.Subscribe()
	store, err := runlog.NewJSONLStore(filepath.Join(t.TempDir(), "runs.jsonl"))
	require.NoError(t, err)
	defer store.Close()
	now := time.Date(2024, 7, 1, 8, 0, 0, 0, time.UTC)

	s := newScheduler(t, nil, WithMetrics(sink), WithEventBus(bus), WithRunLog(store), WithClock(func() time.Time { return now }))
	r, err := s.Solve(context.Background(), scenarioA(t))
	require.NoError(t, err)

	require.Len(t, sink.solves, 1)
	ev := sink.solves[0]
	assert.Equal(t, r.RunID, ev.RunID)
	assert.Equal(t, "optimal", ev.Status)
	assert.Equal(t, 8, ev.Assignments)
	assert.Equal(t, 2, ev.Residents)
	require.Len(t, sink.counts, 1)
	assert.Equal(t, 2, sink.counts[0].Counts["required-shifts"])
	assert.Len(t, sink.states, 4)

	var seen []string
	for i := 0; i < 4; i++ {
		seen = append(seen, (<-events).To)
	}
	assert.Equal(t, []string{"built", "solving", "optimal", "idle"}, seen)

	recs, err := store.Query(context.Background(), runlog.Query{RunID: r.RunID})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "optimal", recs[0].Status)
	assert.True(t, recs[0].Proven)
	assert.Equal(t, []string{"idle", "built", "solving", "optimal", "idle"}, recs[0].Trace)
}

func TestConcurrentSolvesAreIndependent(t *testing.T) {
	s := newScheduler(t, nil)
	p := scenarioA(t)
	var wg sync.WaitGroup
	results := make([]*Result, 4)
	errs := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = s.Solve(context.Background(), p)
		}()
	}
	wg.Wait()
	ids := map[string]bool{}
	for i, r := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, 8, r.Schedule.Len())
		ids[r.RunID] = true
	}
	assert.Len(t, ids, 4)
}

func TestNewRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TimeBudgetSeconds = -1
	_, err := New(cfg, nil)
	require.Error(t, err)

	cfg = DefaultConfig()
	cfg.Solver.Type = "cp-sat"
	_, err = New(cfg, nil)
	require.Error(t, err)

	_, err = New(DefaultConfig(), nil)
	require.NoError(t, err)
}

func TestStateTransitions(t *testing.T) {
	assert.True(t, CanTransition(StateIdle, StateBuilt))
	assert.True(t, CanTransition(StateSolving, StateTimedOut))
	assert.False(t, CanTransition(StateIdle, StateSolving))
	assert.False(t, CanTransition(StateInfeasible, StateError))
	assert.True(t, StateFeasible.Terminal())
	assert.False(t, StateSolving.Terminal())
	assert.Equal(t, "timed_out", StateTimedOut.String())
	assert.Equal(t, "state(42)", State(42).String())
}
