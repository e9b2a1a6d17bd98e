package solver

import (
	"context"
	"time"
)

// Var identifies a boolean variable inside one Backend.
type Var int

// Term is a coefficient applied to a variable.
type Term struct {
	Var  Var
	Coef int
}

// Status is the outcome of a solve.
type Status int

const (
	// StatusUnknown means the search stopped without a solution or a proof.
	StatusUnknown Status = iota
	// StatusOptimal means a solution was found and proven optimal.
	StatusOptimal
	// StatusFeasible means a solution was found but the search stopped on its
	// node limit before proving optimality.
	StatusFeasible
	// StatusInfeasible means no assignment satisfies the constraints.
	StatusInfeasible
	// StatusTimedOut means the budget ran out. A solution may be available.
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Backend is one solving session. Variables and constraints are added
// before Solve; Value and Objective read the best solution afterwards.
type Backend interface {
	NewBoolVar(name string) Var
	AddLinear(name string, terms []Term, lo, hi int) error
	Minimize(terms []Term)
	Solve(ctx context.Context, budget time.Duration) (Status, error)
	// HasSolution reports whether Value and Objective describe a solution.
	HasSolution() bool
	Value(v Var) bool
	Objective() int
}

// Factory creates a fresh Backend for each solve.
type Factory func() Backend

// Stats describes the work done by the last Solve.
type Stats struct {
	Nodes     int64
	Restarts  int64
	Workers   int
	Relaxed   bool
	Variables int
	Rows      int
}

// StatsReporter is implemented by backends exposing search statistics.
type StatsReporter interface {
	Stats() Stats
}
