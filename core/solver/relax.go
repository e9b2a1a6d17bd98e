package solver

import (
	"context"
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

// simplex points to the LP routine. Tests override it to simulate solver
// failures.
var simplex = lp.Simplex

// relax solves the linear relaxation of m with 0 <= x <= 1. It returns the
// fractional values, whether the relaxation is feasible, and ok=false when
// the LP was inconclusive: too large for maxCells, failed, or still running
// when ctx ended.
func relax(ctx context.Context, m *pbModel, maxCells int) (values []float64, feasible bool, ok bool) {
	n := m.numVars()
	if n == 0 {
		return nil, true, false
	}
	if maxCells > 0 && tableauCells(m) > maxCells {
		return nil, true, false
	}

	var gRows [][]float64
	var h []float64
	var aRows [][]float64
	var b []float64
	dense := func(r row, sign float64) []float64 {
		out := make([]float64, n)
		for i, v := range r.vars {
			out[v] = sign * float64(r.coefs[i])
		}
		return out
	}
	for i, r := range m.rows {
		if i == m.objRow {
			continue
		}
		if r.lo == r.hi {
			aRows = append(aRows, dense(r, 1))
			b = append(b, float64(r.lo))
			continue
		}
		if r.hi != math.MaxInt32 {
			gRows = append(gRows, dense(r, 1))
			h = append(h, float64(r.hi))
		}
		if r.lo != math.MinInt32 {
			gRows = append(gRows, dense(r, -1))
			h = append(h, float64(-r.lo))
		}
	}
	for v := 0; v < n; v++ {
		up := make([]float64, n)
		up[v] = 1
		low := make([]float64, n)
		low[v] = -1
		gRows = append(gRows, up, low)
		h = append(h, 1, 0)
	}
	if len(aRows) > 2*n {
		return nil, true, false
	}

	c := make([]float64, n)
	if m.objRow >= 0 {
		r := m.rows[m.objRow]
		for i, v := range r.vars {
			c[v] = float64(r.coefs[i])
		}
	}
	g := mat.NewDense(len(gRows), n, flatten(gRows, n))
	var a mat.Matrix
	if len(aRows) > 0 {
		a = mat.NewDense(len(aRows), n, flatten(aRows, n))
	}

	type outcome struct {
		sol []float64
		err error
	}
	// simplex cannot be interrupted; the buffered channel lets it finish
	// in the background once ctx has ended.
	done := make(chan outcome, 1)
	go func() {
		sol, err := solveRelaxation(c, g, h, a, b)
		done <- outcome{sol: sol, err: err}
	}()
	var out outcome
	select {
	case <-ctx.Done():
		return nil, true, false
	case out = <-done:
	}
	sol, err := out.sol, out.err
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return nil, false, true
	case err != nil:
		return nil, true, false
	}
	values = make([]float64, n)
	for i := range values {
		// Convert splits each free variable into a positive and a negative part.
		values[i] = sol[i] - sol[n+i]
	}
	return values, true, true
}

// tableauCells estimates the size of the standard-form tableau built by
// lp.Convert: one row per inequality and equality, two columns per variable
// for the free split plus one slack column per inequality.
func tableauCells(m *pbModel) int {
	n := m.numVars()
	ineq, eq := 2*n, 0
	for i, r := range m.rows {
		switch {
		case i == m.objRow:
		case r.lo == r.hi:
			eq++
		default:
			if r.hi != math.MaxInt32 {
				ineq++
			}
			if r.lo != math.MinInt32 {
				ineq++
			}
		}
	}
	return (ineq + eq) * (2*n + ineq)
}

func solveRelaxation(c []float64, g mat.Matrix, h []float64, a mat.Matrix, b []float64) (sol []float64, err error) {
	defer func() {
		// gonum panics on degenerate shapes instead of returning an error
		if r := recover(); r != nil {
			err = errors.New("lp relaxation: degenerate model")
		}
	}()
	cStd, aStd, bStd := lp.Convert(c, g, h, a, b)
	_, sol, err = simplex(cStd, aStd, bStd, 1e-7, nil)
	return sol, err
}

func flatten(rows [][]float64, n int) []float64 {
	out := make([]float64, 0, len(rows)*n)
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}
