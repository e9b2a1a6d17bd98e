package solver

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
)

const checkEvery = 1024

type stopReason int

const (
	notStopped stopReason = iota
	stopExpired
	stopNodeLimit
	stopFirstSolution
	stopRestart
)

// worker runs one depth-first search over a shared model. All mutable state
// is private to the worker.
type worker struct {
	m      *pbModel
	ctx    context.Context
	limit  int64
	shared *atomic.Int64

	val    []int8
	minAct []int
	maxAct []int
	// fixed is the activity of the variables set to one so far.
	fixed  []int
	trail  []int32
	queue  []int32
	queued []bool
	objHi  int

	// rank breaks ties between branching candidates and order lists the
	// variables by rank; pref holds LP values and jitter perturbs urgency
	// after a restart.
	rank   []int32
	order  []int32
	pref   []float64
	lpPref []float64
	jitter []float64
	rng    *rand.Rand

	restartBase int64
	cutoff      int64
	runNodes    int64
	restarts    int64

	nodes   int64
	stopped stopReason
	found   bool
	best    []int8
	bestObj int
}

type workerResult struct {
	found    bool
	complete bool
	expired  bool
	sol      []int8
	obj      int
	nodes    int64
	restarts int64
}

func newWorker(ctx context.Context, m *pbModel, id int, seed int64, pref []float64, limit, restartBase int64, shared *atomic.Int64) *worker {
	n := m.numVars()
	w := &worker{
		m:           m,
		ctx:         ctx,
		limit:       limit,
		shared:      shared,
		val:         make([]int8, n),
		minAct:      make([]int, len(m.rows)),
		maxAct:      make([]int, len(m.rows)),
		fixed:       make([]int, len(m.rows)),
		queued:      make([]bool, len(m.rows)),
		objHi:       math.MaxInt32,
		rank:        make([]int32, n),
		order:       make([]int32, n),
		pref:        pref,
		lpPref:      pref,
		rng:         rand.New(rand.NewSource(seed + int64(id))),
		restartBase: restartBase,
	}
	for i := range w.val {
		w.val[i] = -1
		w.rank[i] = int32(i)
		w.order[i] = int32(i)
	}
	if id > 0 {
		w.shuffle()
	}
	for r, row := range m.rows {
		for _, c := range row.coefs {
			if c > 0 {
				w.maxAct[r] += c
			} else {
				w.minAct[r] += c
			}
		}
	}
	return w
}

// shuffle draws a new branching order from the worker's generator.
func (w *worker) shuffle() {
	n := len(w.val)
	for v, p := range w.rng.Perm(n) {
		w.rank[v] = int32(p)
		w.order[p] = int32(v)
	}
	if w.jitter == nil {
		w.jitter = make([]float64, n)
	}
	for v := range w.jitter {
		w.jitter[v] = 0.005 * w.rng.Float64()
	}
	if w.lpPref != nil {
		w.pref = make([]float64, n)
		for v, p := range w.lpPref {
			w.pref[v] = p + 0.2*(w.rng.Float64()-0.5)
		}
	}
}

func (w *worker) hi(r int32) int {
	if int(r) == w.m.objRow {
		return w.objHi
	}
	return w.m.rows[r].hi
}

func (w *worker) enqueue(r int32) {
	if !w.queued[r] {
		w.queued[r] = true
		w.queue = append(w.queue, r)
	}
}

func (w *worker) clearQueue() {
	for _, r := range w.queue {
		w.queued[r] = false
	}
	w.queue = w.queue[:0]
}

func (w *worker) assign(v int32, value int8) {
	w.val[v] = value
	w.trail = append(w.trail, v)
	for _, o := range w.m.occ[v] {
		if value == 1 {
			w.fixed[o.row] += o.coef
		}
		switch {
		case value == 1 && o.coef > 0:
			w.minAct[o.row] += o.coef
		case value == 1:
			w.maxAct[o.row] += o.coef
		case o.coef > 0:
			w.maxAct[o.row] -= o.coef
		default:
			w.minAct[o.row] -= o.coef
		}
		w.enqueue(o.row)
	}
}

func (w *worker) unassign(v int32) {
	value := w.val[v]
	for _, o := range w.m.occ[v] {
		if value == 1 {
			w.fixed[o.row] -= o.coef
		}
		switch {
		case value == 1 && o.coef > 0:
			w.minAct[o.row] -= o.coef
		case value == 1:
			w.maxAct[o.row] -= o.coef
		case o.coef > 0:
			w.maxAct[o.row] += o.coef
		default:
			w.minAct[o.row] += o.coef
		}
	}
	w.val[v] = -1
}

func (w *worker) backtrack(mark int) {
	for len(w.trail) > mark {
		v := w.trail[len(w.trail)-1]
		w.trail = w.trail[:len(w.trail)-1]
		w.unassign(v)
	}
	w.clearQueue()
}

// propagate fixes every variable forced by a queued row. It returns false on
// a conflict.
func (w *worker) propagate() bool {
	for len(w.queue) > 0 {
		r := w.queue[len(w.queue)-1]
		w.queue = w.queue[:len(w.queue)-1]
		w.queued[r] = false

		row := &w.m.rows[r]
		lo, hi := row.lo, w.hi(r)
		if w.maxAct[r] < lo || w.minAct[r] > hi {
			return false
		}
		if w.minAct[r]+row.maxAbs <= hi && w.maxAct[r]-row.maxAbs >= lo {
			continue
		}
		for i, v := range row.vars {
			if w.val[v] >= 0 {
				continue
			}
			a := row.coefs[i]
			mn, mx := w.minAct[r], w.maxAct[r]
			var force int8 = -1
			if a > 0 {
				if mn+a > hi {
					force = 0
				} else if mx-a < lo {
					force = 1
				}
			} else {
				if mx+a < lo {
					force = 0
				} else if mn-a > hi {
					force = 1
				}
			}
			if force < 0 {
				continue
			}
			w.assign(v, force)
			if w.maxAct[r] < lo || w.minAct[r] > hi {
				return false
			}
		}
	}
	return true
}

func (w *worker) better(a, b int32) bool {
	if w.pref != nil && w.pref[a] != w.pref[b] {
		return w.pref[a] > w.pref[b]
	}
	return w.rank[a] < w.rank[b]
}

// urgency scores how much setting v to one helps the rows still short of
// their lower bound: for each, the missing activity as a share of the room
// left in the row.
func (w *worker) urgency(v int32) float64 {
	u := 0.0
	if w.jitter != nil {
		u = w.jitter[v]
	}
	for _, o := range w.m.occ[v] {
		if o.coef <= 0 || int(o.row) == w.m.objRow {
			continue
		}
		lo := w.m.rows[o.row].lo
		if lo == math.MinInt32 || w.minAct[o.row] >= lo {
			continue
		}
		if room := w.maxAct[o.row] - w.minAct[o.row]; room > 0 {
			u += float64(lo-w.minAct[o.row]) / float64(room)
		}
	}
	return u
}

// pick selects the next branching variable and the value to try first.
// A row whose raised variables already exceed its upper bound asks for one
// of its negative-coefficient variables first, such as a supervisor for a
// scheduled first-year. Then rows still short of their lower bound are
// served, tightest row first, raising the most urgent variable of the row.
// Otherwise the next unassigned variable in rank order is tried at zero.
func (w *worker) pick() (int32, int8) {
	for _, r := range w.m.raise {
		if w.fixed[r] <= w.m.rows[r].hi {
			continue
		}
		row := &w.m.rows[r]
		cand, score := int32(-1), 0.0
		for i, v := range row.vars {
			if w.val[v] >= 0 || row.coefs[i] >= 0 {
				continue
			}
			if u := w.urgency(v); cand < 0 || u > score+1e-9 || (u > score-1e-9 && w.better(v, cand)) {
				cand, score = v, u
			}
		}
		if cand >= 0 {
			return cand, 1
		}
	}

	bestRow, bestSlack := int32(-1), math.MaxInt
	for _, r := range w.m.lower {
		lo := w.m.rows[r].lo
		if w.minAct[r] >= lo {
			continue
		}
		if slack := w.maxAct[r] - lo; slack < bestSlack {
			bestRow, bestSlack = r, slack
		}
	}
	if bestRow >= 0 {
		row := &w.m.rows[bestRow]
		cand, first, score := int32(-1), int8(0), 0.0
		for i, v := range row.vars {
			if w.val[v] >= 0 {
				continue
			}
			value, u := int8(0), 0.0
			if row.coefs[i] > 0 {
				value, u = 1, w.urgency(v)
			}
			switch {
			case cand < 0 || value > first:
				cand, first, score = v, value, u
			case value < first:
			case u > score+1e-9 || (u > score-1e-9 && w.better(v, cand)):
				cand, score = v, u
			}
		}
		if cand >= 0 {
			return cand, first
		}
	}
	for _, v := range w.order {
		if w.val[v] < 0 {
			if w.pref != nil && w.pref[v] > 0.5 {
				return v, 1
			}
			return v, 0
		}
	}
	return -1, 0
}

func (w *worker) expired() bool {
	return w.ctx.Err() != nil
}

func (w *worker) record() {
	obj := w.m.objective(w.val)
	if w.found && obj >= w.bestObj {
		return
	}
	w.found = true
	w.bestObj = obj
	w.best = append(w.best[:0], w.val...)
	if w.m.objRow < 0 {
		return
	}
	w.objHi = obj - 1
	for {
		cur := w.shared.Load()
		if int64(obj) >= cur || w.shared.CompareAndSwap(cur, int64(obj)) {
			return
		}
	}
}

// dfs explores the subtree below the current assignment. It returns true
// when the whole search must stop.
func (w *worker) dfs() bool {
	w.nodes++
	w.runNodes++
	if w.nodes%checkEvery == 0 && w.expired() {
		w.stopped = stopExpired
		return true
	}
	if w.limit > 0 && w.nodes > w.limit {
		w.stopped = stopNodeLimit
		return true
	}
	if w.cutoff > 0 && w.runNodes > w.cutoff {
		w.stopped = stopRestart
		return true
	}
	if w.m.objRow >= 0 {
		if b := w.shared.Load(); b != math.MaxInt64 && int(b)-1 < w.objHi {
			w.objHi = int(b) - 1
		}
		w.enqueue(int32(w.m.objRow))
	}

	mark := len(w.trail)
	if !w.propagate() {
		w.backtrack(mark)
		return false
	}
	v, first := w.pick()
	if v < 0 {
		w.record()
		w.backtrack(mark)
		if w.m.objRow < 0 {
			w.stopped = stopFirstSolution
			return true
		}
		return false
	}
	branch := len(w.trail)
	for _, value := range [2]int8{first, 1 - first} {
		w.assign(v, value)
		if w.dfs() {
			w.backtrack(mark)
			return true
		}
		w.backtrack(branch)
	}
	w.backtrack(mark)
	return false
}

// run searches until a run ends without hitting its restart cutoff. Runs
// share the incumbent and its objective bound, so a complete run proves
// optimality or infeasibility of the whole model.
func (w *worker) run() workerResult {
	for i := 1; ; i++ {
		w.cutoff, w.runNodes = 0, 0
		if w.restartBase > 0 {
			w.cutoff = w.restartBase * luby(i)
		}
		w.stopped = notStopped
		for r := range w.m.rows {
			w.enqueue(int32(r))
		}
		w.dfs()
		w.backtrack(0)
		if w.stopped != stopRestart {
			break
		}
		w.restarts++
		w.shuffle()
	}
	return workerResult{
		found:    w.found,
		complete: w.stopped == notStopped || w.stopped == stopFirstSolution,
		expired:  w.stopped == stopExpired,
		sol:      w.best,
		obj:      w.bestObj,
		nodes:    w.nodes,
		restarts: w.restarts,
	}
}

// luby returns the i-th term (1-based) of the Luby sequence 1 1 2 1 1 2 4 ...
func luby(i int) int64 {
	for k := uint(1); ; k++ {
		switch full := 1<<k - 1; {
		case i == full:
			return 1 << (k - 1)
		case i < full:
			return luby(i - (1 << (k - 1)) + 1)
		}
	}
}
