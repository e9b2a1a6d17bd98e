package scheduler

import (
	"fmt"
	"time"

	"github.com/kilianp07/resident-scheduler/core/logger"
	"github.com/kilianp07/resident-scheduler/core/metrics"
	"github.com/kilianp07/resident-scheduler/internal/eventbus"
)

// State is a step of the session lifecycle.
type State int

const (
	StateIdle State = iota
	StateBuilt
	StateSolving
	StateOptimal
	StateFeasible
	StateInfeasible
	StateTimedOut
	StateError
)

var stateNames = [...]string{
	StateIdle:       "idle",
	StateBuilt:      "built",
	StateSolving:    "solving",
	StateOptimal:    "optimal",
	StateFeasible:   "feasible",
	StateInfeasible: "infeasible",
	StateTimedOut:   "timed_out",
	StateError:      "error",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Terminal reports whether s ends a solve.
func (s State) Terminal() bool { return s >= StateOptimal }

var transitions = map[State][]State{
	StateIdle:       {StateBuilt, StateError},
	StateBuilt:      {StateSolving, StateError},
	StateSolving:    {StateOptimal, StateFeasible, StateInfeasible, StateTimedOut, StateError},
	StateOptimal:    {StateIdle, StateError},
	StateFeasible:   {StateIdle, StateError},
	StateInfeasible: {StateIdle},
	StateTimedOut:   {StateIdle, StateError},
	StateError:      {StateIdle},
}

// CanTransition reports whether the lifecycle allows moving from one state
// to the next.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// session tracks the lifecycle of one Solve call and reports every
// transition to the bus and the metrics sink.
type session struct {
	runID string
	block int
	state State
	trace []State
	// outcome is the last terminal state reached.
	outcome State
	clock   func() time.Time
	bus     *eventbus.TypedBus[metrics.StateEvent]
	sink    metrics.MetricsSink
	log     logger.Logger
}

func (s *session) to(next State) error {
	if !CanTransition(s.state, next) {
		return fmt.Errorf("illegal state transition %s -> %s", s.state, next)
	}
	ev := metrics.StateEvent{RunID: s.runID, Block: s.block, From: s.state.String(), To: next.String(), Time: s.clock()}
	s.state = next
	s.trace = append(s.trace, next)
	if next.Terminal() {
		s.outcome = next
	}
	s.log.Debugf("run %s: %s -> %s", s.runID, ev.From, ev.To)
	if s.bus != nil {
		s.bus.Publish(ev)
	}
	if sr, ok := s.sink.(metrics.StateRecorder); ok {
		if err := sr.RecordStateTransition(ev); err != nil {
			s.log.Errorf("state metrics error: %v", err)
		}
	}
	return nil
}

// fail moves to StateError from any state that allows it.
func (s *session) fail() {
	if s.state == StateError {
		return
	}
	if err := s.to(StateError); err != nil {
		s.log.Errorf("run %s: %v", s.runID, err)
	}
}

// finish returns the session to idle.
func (s *session) finish() {
	if s.state == StateIdle {
		return
	}
	if err := s.to(StateIdle); err != nil {
		s.log.Errorf("run %s: %v", s.runID, err)
	}
}

func (s *session) traceNames() []string {
	out := make([]string, len(s.trace))
	for i, st := range s.trace {
		out[i] = st.String()
	}
	return out
}
