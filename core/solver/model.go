package solver

import (
	"fmt"
	"math"
)

type occurrence struct {
	row  int32
	coef int
}

type row struct {
	name   string
	vars   []int32
	coefs  []int
	lo, hi int
	maxAbs int
}

// pbModel is the immutable problem shared by all workers of one solve.
type pbModel struct {
	names []string
	rows  []row
	occ   [][]occurrence
	// lower lists rows with a finite lower bound and raise the bounded-above
	// rows with negative coefficients; both are scanned when branching.
	lower []int32
	raise []int32
	// objRow is the index of the objective row, or -1.
	objRow int
	// conflict names a row that is violated before any search.
	conflict string
}

func (m *pbModel) numVars() int { return len(m.names) }

func (m *pbModel) newVar(name string) Var {
	m.names = append(m.names, name)
	m.occ = append(m.occ, nil)
	return Var(len(m.names) - 1)
}

// normalize merges duplicate variables and drops zero coefficients.
func (m *pbModel) normalize(terms []Term) ([]int32, []int, error) {
	idx := make(map[Var]int, len(terms))
	var vars []int32
	var coefs []int
	for _, t := range terms {
		if t.Var < 0 || int(t.Var) >= len(m.names) {
			return nil, nil, fmt.Errorf("unknown variable %d", t.Var)
		}
		if i, ok := idx[t.Var]; ok {
			coefs[i] += t.Coef
			continue
		}
		idx[t.Var] = len(vars)
		vars = append(vars, int32(t.Var))
		coefs = append(coefs, t.Coef)
	}
	outV, outC := vars[:0], coefs[:0]
	for i, c := range coefs {
		if c != 0 {
			outV = append(outV, vars[i])
			outC = append(outC, c)
		}
	}
	return outV, outC, nil
}

func (m *pbModel) addRow(name string, terms []Term, lo, hi int) error {
	vars, coefs, err := m.normalize(terms)
	if err != nil {
		return fmt.Errorf("constraint %s: %w", name, err)
	}
	minAct, maxAct := 0, 0
	maxAbs := 0
	for _, c := range coefs {
		if c > 0 {
			maxAct += c
		} else {
			minAct += c
		}
		if a := abs(c); a > maxAbs {
			maxAbs = a
		}
	}
	if lo > hi || maxAct < lo || minAct > hi {
		if m.conflict == "" {
			m.conflict = name
		}
	}
	if len(vars) == 0 {
		return nil
	}
	// bounds that the row can never reach are dropped
	if lo <= minAct {
		lo = math.MinInt32
	}
	if hi >= maxAct {
		hi = math.MaxInt32
	}
	if lo == math.MinInt32 && hi == math.MaxInt32 {
		return nil
	}
	r := int32(len(m.rows))
	m.rows = append(m.rows, row{name: name, vars: vars, coefs: coefs, lo: lo, hi: hi, maxAbs: maxAbs})
	for i, v := range vars {
		m.occ[v] = append(m.occ[v], occurrence{row: r, coef: coefs[i]})
	}
	if lo != math.MinInt32 {
		m.lower = append(m.lower, r)
	}
	if hi != math.MaxInt32 && minAct < 0 {
		m.raise = append(m.raise, r)
	}
	return nil
}

func (m *pbModel) setObjective(terms []Term) error {
	vars, coefs, err := m.normalize(terms)
	if err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	if len(vars) == 0 {
		m.objRow = -1
		return nil
	}
	maxAbs := 0
	for _, c := range coefs {
		maxAbs = max(maxAbs, abs(c))
	}
	r := int32(len(m.rows))
	m.rows = append(m.rows, row{name: "objective", vars: vars, coefs: coefs, lo: math.MinInt32, hi: math.MaxInt32, maxAbs: maxAbs})
	for i, v := range vars {
		m.occ[v] = append(m.occ[v], occurrence{row: r, coef: coefs[i]})
	}
	m.objRow = int(r)
	return nil
}

func (m *pbModel) objective(val []int8) int {
	if m.objRow < 0 {
		return 0
	}
	r := m.rows[m.objRow]
	sum := 0
	for i, v := range r.vars {
		if val[v] == 1 {
			sum += r.coefs[i]
		}
	}
	return sum
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
