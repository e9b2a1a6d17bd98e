package metrics

import (
	"time"

	"github.com/kilianp07/resident-scheduler/core/model"
)

// SolveEvent summarises one scheduling run.
type SolveEvent struct {
	RunID       string
	Block       int
	Status      string
	Duration    time.Duration
	Objective   int
	Assignments int
	Residents   int
	Variables   int
	Constraints int
	Nodes       int64
	Binding     []string
	Time        time.Time
}

// MetricsSink records solve outcomes for observability purposes.
type MetricsSink interface {
	RecordSolve(ev SolveEvent) error
}

// ConstraintCountEvent carries the number of constraints built per category.
type ConstraintCountEvent struct {
	RunID  string
	Block  int
	Counts map[string]int
	Time   time.Time
}

// ConstraintCountRecorder records constraint set sizes.
type ConstraintCountRecorder interface {
	RecordConstraintCounts(ev ConstraintCountEvent) error
}

// StateEvent is one transition of the solve state machine.
type StateEvent struct {
	RunID string
	Block int
	From  string
	To    string
	Time  time.Time
}

// StateRecorder records state machine transitions.
type StateRecorder interface {
	RecordStateTransition(ev StateEvent) error
}

// ViolationEvent lists the hard-rule violations found by a validation pass.
type ViolationEvent struct {
	RunID      string
	Block      int
	Violations []model.Violation
	Time       time.Time
}

// ViolationRecorder records validation results.
type ViolationRecorder interface {
	RecordViolations(ev ViolationEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordSolve(SolveEvent) error { return nil }

func (NopSink) RecordConstraintCounts(ConstraintCountEvent) error { return nil }
func (NopSink) RecordStateTransition(StateEvent) error            { return nil }
func (NopSink) RecordViolations(ViolationEvent) error             { return nil }
