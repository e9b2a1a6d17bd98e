// Package monitoring defines the error reporting hook used by the scheduler.
package monitoring

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/resident-scheduler/core/model"
)

// Monitor receives errors that point at a defect rather than at bad input.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	Flush(timeout time.Duration)
}

// NopMonitor drops everything.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) Flush(time.Duration)                       {}

// Reportable reports whether err is worth sending to a Monitor. Invalid
// input, infeasible models, timeouts and cancellation are expected outcomes
// of a run and are left to the logs.
func Reportable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.As(err, new(*model.InvalidInputError)),
		errors.As(err, new(*model.InfeasibleModelError)),
		errors.As(err, new(*model.SolverTimeoutError)),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return false
	}
	return true
}
