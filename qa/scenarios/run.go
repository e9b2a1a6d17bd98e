package scenarios

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/resident-scheduler/core/constraints"
	coremetrics "github.com/kilianp07/resident-scheduler/core/metrics"
	"github.com/kilianp07/resident-scheduler/core/scheduler"
	"github.com/kilianp07/resident-scheduler/core/validate"
	"github.com/kilianp07/resident-scheduler/infra/logger"
	"github.com/kilianp07/resident-scheduler/infra/metrics"
	"github.com/kilianp07/resident-scheduler/infra/mqtt"
	"github.com/kilianp07/resident-scheduler/internal/eventbus"
)

// RunScenario solves sc with a Prometheus sink and a forwarded status
// publisher attached, then checks the expectations.
func RunScenario(t *testing.T, sc *Scenario) {
	t.Helper()
	p, err := sc.Problem()
	require.NoError(t, err, "build problem")

	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	require.NoError(t, err, "prom sink")

	bus := eventbus.NewTyped[coremetrics.StateEvent]()
	pub := mqtt.NewMockPublisher()
	ctx, cancel := context.WithCancel(context.Background())
	ch := bus.Subscribe()
	forwarded := make(chan struct{})
	go func() {
		mqtt.Forward(ctx, ch, pub, logger.NopLogger{})
		close(forwarded)
	}()
	defer func() {
		cancel()
		<-forwarded
		bus.Unsubscribe(ch)
	}()

	cfg := scheduler.DefaultConfig()
	cfg.Constraints = sc.Constraints
	if sc.TimeBudgetSeconds > 0 {
		cfg.TimeBudgetSeconds = sc.TimeBudgetSeconds
	}
	sched, err := scheduler.New(cfg, logger.NopLogger{}, scheduler.WithMetrics(sink), scheduler.WithEventBus(bus))
	require.NoError(t, err, "scheduler")

	start := time.Now()
	res, err := sched.Solve(context.Background(), p)
	elapsed := time.Since(start)
	require.NotNil(t, res)
	want := sc.Expected
	if want.MaxSeconds > 0 {
		assert.LessOrEqual(t, elapsed.Seconds(), want.MaxSeconds, "wall time")
	}
	assert.Equal(t, want.Status, res.Status.String(), "status (err: %v)", err)
	if res.Status == scheduler.StateInfeasible {
		assert.Error(t, err)
		if want.Binding != nil {
			assert.Equal(t, want.Binding, res.Binding, "binding categories")
		}
	}
	if want.Assignments != nil {
		got := 0
		if res.Schedule != nil {
			got = res.Schedule.Len()
		}
		assert.Equal(t, *want.Assignments, got, "assignments")
	}
	for id, n := range want.Required {
		assert.Equal(t, n, res.Required[id], "required shifts of %s", id)
	}
	if want.Valid {
		require.NotNil(t, res.Schedule, "schedule")
	}
	if res.Schedule != nil {
		for _, id := range want.Unassigned {
			assert.Empty(t, res.Schedule.ForResident(id), "%s should not work", id)
		}
		if want.Valid {
			assert.Empty(t, res.Violations, "reported violations")
			assert.Empty(t, validate.Validate(p, sched.Config().Constraints, res.Schedule), "hard rule violations")
		}
		if want.CoverEverySlot {
			for _, slot := range p.Calendar.Slots() {
				if constraints.ClosedSlot(slot, sched.Config().Constraints) {
					continue
				}
				n := 0
				for _, id := range res.Schedule.OnSlot(slot.Date, slot.Spec.Kind) {
					if r, ok := p.Roster.Get(id); ok && slot.Spec.Eligible(r.Pod) {
						n++
					}
				}
				assert.GreaterOrEqual(t, n, slot.Spec.MinStaff, "slot %s", slot)
			}
		}
	}

	series, err := testutil.GatherAndCount(reg, "scheduler_solves_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series, "solve metric")
	// Idle->Built->Solving->terminal->Idle
	assert.Eventually(t, func() bool { return pub.StateCount() >= 4 }, time.Second, 5*time.Millisecond, "forwarded states")
}
