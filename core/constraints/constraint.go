package constraints

import (
	"fmt"
	"math"

	"github.com/kilianp07/resident-scheduler/core/model"
)

// Open bounds of a constraint.
const (
	NoLower = math.MinInt32
	NoUpper = math.MaxInt32
)

// Key names one decision variable: resident works kind on date.
type Key struct {
	Resident string
	Date     model.Date
	Kind     model.ShiftKind
}

func (k Key) String() string {
	return fmt.Sprintf("x[%s,%s,%s]", k.Resident, k.Date, k.Kind)
}

// Term is a coefficient applied to one variable.
type Term struct {
	Key  Key
	Coef int
}

// Constraint is Lo <= Σ Coef·x <= Hi over boolean variables.
type Constraint struct {
	Category Category
	Label    string
	Terms    []Term
	Lo       int
	Hi       int
	// Soft constraints may be violated at a cost of Weight per unit.
	Soft   bool
	Weight int
}

func (c Constraint) String() string {
	lo, hi := "-inf", "+inf"
	if c.Lo != NoLower {
		lo = fmt.Sprint(c.Lo)
	}
	if c.Hi != NoUpper {
		hi = fmt.Sprint(c.Hi)
	}
	return fmt.Sprintf("%s %s: %s <= sum(%d terms) <= %s", c.Category, c.Label, lo, len(c.Terms), hi)
}

// Satisfied evaluates the constraint against an assignment.
func (c Constraint) Satisfied(value func(Key) bool) bool {
	sum := 0
	for _, t := range c.Terms {
		if value(t.Key) {
			sum += t.Coef
		}
	}
	return sum >= c.Lo && sum <= c.Hi
}

func ones(keys []Key) []Term {
	out := make([]Term, len(keys))
	for i, k := range keys {
		out[i] = Term{Key: k, Coef: 1}
	}
	return out
}

func atMost(cat Category, label string, terms []Term, hi int) Constraint {
	return Constraint{Category: cat, Label: label, Terms: terms, Lo: NoLower, Hi: hi}
}

func atLeast(cat Category, label string, terms []Term, lo int) Constraint {
	return Constraint{Category: cat, Label: label, Terms: terms, Lo: lo, Hi: NoUpper}
}

func exactly(cat Category, label string, terms []Term, n int) Constraint {
	return Constraint{Category: cat, Label: label, Terms: terms, Lo: n, Hi: n}
}

func forbid(cat Category, label string, k Key) Constraint {
	return Constraint{Category: cat, Label: label, Terms: []Term{{Key: k, Coef: 1}}, Lo: NoLower, Hi: 0}
}
