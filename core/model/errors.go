package model

import (
	"fmt"
	"strings"
	"time"
)

// InvalidInputError reports malformed or self-contradictory roster, block or
// catalog data detected before any solve.
type InvalidInputError struct {
	Field  string
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

func invalidInput(field, format string, args ...any) error {
	return &InvalidInputError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NewInvalidInput builds an InvalidInputError for callers outside this package.
func NewInvalidInput(field, format string, args ...any) error {
	return invalidInput(field, format, args...)
}

// InfeasibleModelError reports that the hard constraints admit no schedule.
// Binding lists the rule categories whose removal alone restores feasibility,
// when diagnostics ran.
type InfeasibleModelError struct {
	Block     int
	Binding   []string
	Diagnosed bool
}

func (e *InfeasibleModelError) Error() string {
	msg := fmt.Sprintf("block %d: no schedule satisfies the hard constraints", e.Block)
	switch {
	case len(e.Binding) > 0:
		msg += " (binding: " + strings.Join(e.Binding, ", ") + ")"
	case e.Diagnosed:
		msg += " (no single rule category is binding)"
	}
	return msg
}

// SolverTimeoutError reports that the search budget ran out before the
// backend proved optimality or infeasibility.
type SolverTimeoutError struct {
	Budget      time.Duration
	HasSolution bool
}

func (e *SolverTimeoutError) Error() string {
	if e.HasSolution {
		return fmt.Sprintf("solver budget %s exhausted; best schedule found is not proven optimal", e.Budget)
	}
	return fmt.Sprintf("solver budget %s exhausted without a schedule", e.Budget)
}

// Violation is one broken hard rule in a schedule.
type Violation struct {
	Rule       string `json:"rule"`
	ResidentID string `json:"resident_id,omitempty"`
	Date       Date   `json:"date"`
	Detail     string `json:"detail"`
}

func (v Violation) String() string {
	var b strings.Builder
	b.WriteString(v.Rule)
	if v.ResidentID != "" {
		b.WriteString(" resident=" + v.ResidentID)
	}
	if !v.Date.IsZero() {
		b.WriteString(" date=" + v.Date.String())
	}
	b.WriteString(": " + v.Detail)
	return b.String()
}

// ValidationError signals an internal invariant violation: solver output that
// is inconsistent or a solved schedule that breaks a hard rule.
type ValidationError struct {
	Reason     string
	Violations []Violation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 0 {
		return "schedule validation failed: " + e.Reason
	}
	return fmt.Sprintf("schedule validation failed: %s (%d violations, first: %s)", e.Reason, len(e.Violations), e.Violations[0])
}
