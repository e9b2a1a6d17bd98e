package scheduler

import (
	"fmt"

	"github.com/kilianp07/resident-scheduler/core/constraints"
	"github.com/kilianp07/resident-scheduler/core/solver"
)

// encoding maps the constraint set onto one backend session.
type encoding struct {
	keys  []constraints.Key
	vars  map[constraints.Key]solver.Var
	slack int
	rows  int
}

// encode declares one boolean per key and one row per constraint. Soft
// constraints get unit slack variables priced at their weight; slacks of a
// row are ordered so only one equivalent solution remains. With hardOnly set
// soft constraints are left out entirely.
func encode(be solver.Backend, set *constraints.Set, hardOnly bool) (*encoding, error) {
	enc := &encoding{keys: set.Keys, vars: make(map[constraints.Key]solver.Var, len(set.Keys))}
	for _, k := range set.Keys {
		enc.vars[k] = be.NewBoolVar(k.String())
	}
	var objective []solver.Term
	for _, c := range set.Constraints {
		if c.Soft && hardOnly {
			continue
		}
		terms := make([]solver.Term, 0, len(c.Terms))
		minSum, maxSum := 0, 0
		for _, t := range c.Terms {
			v, ok := enc.vars[t.Key]
			if !ok {
				return nil, fmt.Errorf("%s: unknown variable %s", c.Label, t.Key)
			}
			terms = append(terms, solver.Term{Var: v, Coef: t.Coef})
			if t.Coef > 0 {
				maxSum += t.Coef
			} else {
				minSum += t.Coef
			}
		}
		if !c.Soft {
			if err := be.AddLinear(c.Label, terms, c.Lo, c.Hi); err != nil {
				return nil, fmt.Errorf("%s: %w", c.Label, err)
			}
			enc.rows++
			continue
		}
		if c.Hi != constraints.NoUpper && maxSum > c.Hi {
			s := enc.slacks(be, c.Label+"/over", maxSum-c.Hi, c.Weight, &objective)
			if err := enc.addSoft(be, c.Label+"/over", terms, s, -1, constraints.NoLower, c.Hi); err != nil {
				return nil, err
			}
		}
		if c.Lo != constraints.NoLower && minSum < c.Lo {
			s := enc.slacks(be, c.Label+"/under", c.Lo-minSum, c.Weight, &objective)
			if err := enc.addSoft(be, c.Label+"/under", terms, s, 1, c.Lo, constraints.NoUpper); err != nil {
				return nil, err
			}
		}
	}
	if len(objective) > 0 {
		be.Minimize(objective)
	}
	return enc, nil
}

func (enc *encoding) slacks(be solver.Backend, name string, n, weight int, objective *[]solver.Term) []solver.Var {
	out := make([]solver.Var, n)
	for i := range out {
		out[i] = be.NewBoolVar(fmt.Sprintf("%s/s%d", name, i))
		*objective = append(*objective, solver.Term{Var: out[i], Coef: weight})
	}
	enc.slack += n
	return out
}

func (enc *encoding) addSoft(be solver.Backend, name string, terms []solver.Term, slack []solver.Var, sign, lo, hi int) error {
	row := append([]solver.Term(nil), terms...)
	for _, s := range slack {
		row = append(row, solver.Term{Var: s, Coef: sign})
	}
	if err := be.AddLinear(name, row, lo, hi); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	enc.rows++
	for i := 1; i < len(slack); i++ {
		order := []solver.Term{{Var: slack[i], Coef: 1}, {Var: slack[i-1], Coef: -1}}
		if err := be.AddLinear(fmt.Sprintf("%s/order%d", name, i), order, constraints.NoLower, 0); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		enc.rows++
	}
	return nil
}

// values reads the decision variables back from be.
func (enc *encoding) values(be solver.Backend) map[constraints.Key]bool {
	out := make(map[constraints.Key]bool, len(enc.keys))
	for _, k := range enc.keys {
		out[k] = be.Value(enc.vars[k])
	}
	return out
}
