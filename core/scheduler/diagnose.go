package scheduler

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/resident-scheduler/core/constraints"
	"github.com/kilianp07/resident-scheduler/core/logger"
	"github.com/kilianp07/resident-scheduler/core/solver"
)

// diagnose re-solves p once per enabled category with that category
// removed and returns the names of those whose removal alone restores
// feasibility. Soft constraints are ignored. The whole pass shares the
// diagnostic budget; categories not decided in time are not reported.
func (s *Scheduler) diagnose(ctx context.Context, p *constraints.Problem) []string {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DiagnosticBudget())
	defer cancel()

	var cats []constraints.Category
	for _, c := range constraints.AllCategories {
		if c != constraints.SingleAssignment && s.cfg.Constraints.Enabled(c) {
			cats = append(cats, c)
		}
	}
	binding := make([]bool, len(cats))
	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.DiagnosticWorkers > 0 {
		g.SetLimit(s.cfg.DiagnosticWorkers)
	}
	for i, c := range cats {
		g.Go(func() error {
			ok, err := s.feasibleWithout(gctx, p, c)
			if err != nil {
				s.log.Debugf("diagnostics without %s: %v", c, err)
				return nil
			}
			binding[i] = ok
			return nil
		})
	}
	_ = g.Wait()

	var out []string
	for i, c := range cats {
		if binding[i] {
			out = append(out, c.String())
		}
	}
	if len(out) > 0 {
		s.log.Warnf("binding constraint categories: %v", out)
	} else {
		s.log.Warnf("no single constraint category explains the infeasibility")
	}
	return out
}

func (s *Scheduler) feasibleWithout(ctx context.Context, p *constraints.Problem, c constraints.Category) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	set, err := constraints.Build(p, s.cfg.Constraints.Without(c), logger.NopLogger{})
	if err != nil {
		return false, err
	}
	be := s.backend()
	if _, err := encode(be, set, true); err != nil {
		return false, err
	}
	var budget time.Duration
	if dl, ok := ctx.Deadline(); ok {
		budget = time.Until(dl)
	}
	status, err := be.Solve(ctx, budget)
	if err != nil {
		return false, err
	}
	switch status {
	case solver.StatusOptimal, solver.StatusFeasible:
		return true, nil
	default:
		return status == solver.StatusTimedOut && be.HasSolution(), nil
	}
}
