package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrAlreadySolved is returned when Solve is called twice on one session.
var ErrAlreadySolved = errors.New("solver session already solved")

// Search is the built-in pseudo-boolean backend.
type Search struct {
	cfg    Config
	m      pbModel
	obj    []Term
	solved bool
	sol    []int8
	objVal int
	hasSol bool
	stats  Stats
	// addErr keeps the first malformed constraint so Solve can report it.
	addErr error
}

// NewSearch returns an empty session configured by cfg.
func NewSearch(cfg Config) *Search {
	cfg.SetDefaults()
	return &Search{cfg: cfg, m: pbModel{objRow: -1}}
}

// NewBoolVar implements Backend.
func (s *Search) NewBoolVar(name string) Var { return s.m.newVar(name) }

// AddLinear implements Backend.
func (s *Search) AddLinear(name string, terms []Term, lo, hi int) error {
	if err := s.m.addRow(name, terms, lo, hi); err != nil {
		if s.addErr == nil {
			s.addErr = err
		}
		return err
	}
	return nil
}

// Minimize implements Backend.
func (s *Search) Minimize(terms []Term) { s.obj = append([]Term(nil), terms...) }

// HasSolution implements Backend.
func (s *Search) HasSolution() bool { return s.hasSol }

// Value implements Backend.
func (s *Search) Value(v Var) bool {
	return s.hasSol && int(v) >= 0 && int(v) < len(s.sol) && s.sol[v] == 1
}

// Objective implements Backend.
func (s *Search) Objective() int { return s.objVal }

// Stats implements StatsReporter.
func (s *Search) Stats() Stats { return s.stats }

// Solve implements Backend. A non-positive budget means no time limit other
// than the context's.
func (s *Search) Solve(ctx context.Context, budget time.Duration) (Status, error) {
	if s.solved {
		return StatusUnknown, ErrAlreadySolved
	}
	s.solved = true
	if s.addErr != nil {
		return StatusUnknown, s.addErr
	}
	if err := s.cfg.Validate(); err != nil {
		return StatusUnknown, err
	}
	if err := s.m.setObjective(s.obj); err != nil {
		return StatusUnknown, err
	}
	s.stats = Stats{Workers: s.cfg.Workers, Variables: s.m.numVars(), Rows: len(s.m.rows)}
	if s.m.conflict != "" {
		return StatusInfeasible, nil
	}

	parent := ctx
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	var pref []float64
	if rctx, cancel, ok := s.relaxContext(ctx); ok {
		values, feasible, ok := relax(rctx, &s.m, s.cfg.RelaxMaxCells)
		cancel()
		if ok {
			s.stats.Relaxed = true
			if !feasible {
				return StatusInfeasible, nil
			}
			pref = values
		}
	}

	results, err := s.race(ctx, pref)
	if err != nil {
		return StatusUnknown, err
	}
	status := s.merge(results)
	if status == StatusTimedOut && errors.Is(parent.Err(), context.Canceled) {
		return status, parent.Err()
	}
	return status, nil
}

// minRelaxTime is the smallest share of the budget worth spending on the
// LP relaxation.
const minRelaxTime = 10 * time.Millisecond

// relaxContext bounds the relaxation to a quarter of the remaining time. It
// reports false when the relaxation should be skipped.
func (s *Search) relaxContext(ctx context.Context) (context.Context, context.CancelFunc, bool) {
	if s.cfg.DisableRelaxation || s.m.numVars() > s.cfg.RelaxMaxVars {
		return nil, nil, false
	}
	dl, ok := ctx.Deadline()
	if !ok {
		rctx, cancel := context.WithCancel(ctx)
		return rctx, cancel, true
	}
	share := time.Until(dl) / 4
	if share < minRelaxTime {
		return nil, nil, false
	}
	rctx, cancel := context.WithTimeout(ctx, share)
	return rctx, cancel, true
}

// race runs the configured workers. The first worker to finish its search
// cancels the others.
func (s *Search) race(ctx context.Context, pref []float64) ([]workerResult, error) {
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	var shared atomic.Int64
	shared.Store(math.MaxInt64)
	results := make([]workerResult, s.cfg.Workers)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < s.cfg.Workers; i++ {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("solver worker %d: %v", i, r)
				}
			}()
			restartBase := s.cfg.RestartBase
			if s.cfg.DisableRestarts {
				restartBase = 0
			}
			w := newWorker(gctx, &s.m, i, s.cfg.Seed, pref, s.cfg.NodeLimit, restartBase, &shared)
			results[i] = w.run()
			if results[i].complete {
				stop()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Search) merge(results []workerResult) Status {
	complete, expired := false, false
	best := -1
	for i, r := range results {
		s.stats.Nodes += r.nodes
		s.stats.Restarts += r.restarts
		complete = complete || r.complete
		expired = expired || r.expired
		if r.found && (best < 0 || r.obj < results[best].obj) {
			best = i
		}
	}
	if best >= 0 {
		s.hasSol = true
		s.sol = results[best].sol
		s.objVal = results[best].obj
	}
	switch {
	case complete && best >= 0:
		return StatusOptimal
	case complete:
		return StatusInfeasible
	case expired:
		return StatusTimedOut
	case best >= 0:
		return StatusFeasible
	default:
		return StatusUnknown
	}
}
