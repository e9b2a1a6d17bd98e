package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/resident-scheduler/core/constraints"
	"github.com/kilianp07/resident-scheduler/core/model"
	"github.com/kilianp07/resident-scheduler/core/solver"
)

func TestAssemble(t *testing.T) {
	p := scenarioA(t)
	keys := p.Keys()
	values := map[constraints.Key]bool{}
	for _, k := range keys {
		values[k] = k.Resident == "a" && k.Kind == model.ShiftDay
	}
	s, err := Assemble(p.Block(), keys, values)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Len())
	kind, ok := s.Lookup("a", day("2024-08-02"))
	assert.True(t, ok)
	assert.Equal(t, model.ShiftDay, kind)
	_, ok = s.Lookup("b", day("2024-08-02"))
	assert.False(t, ok)
}

func TestAssembleRejectsInconsistentOutput(t *testing.T) {
	p := scenarioA(t)
	keys := p.Keys()
	values := map[constraints.Key]bool{
		{Resident: "a", Date: day("2024-07-31"), Kind: model.ShiftDay}:   true,
		{Resident: "a", Date: day("2024-07-31"), Kind: model.ShiftNight}: true,
		{Resident: "zed", Date: day("2024-08-01"), Kind: model.ShiftDay}: true,
		{Resident: "b", Date: day("2024-08-01"), Kind: model.ShiftDay}:   false,
	}
	_, err := Assemble(p.Block(), keys, values)
	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 2)
	assert.Equal(t, "single-assignment", verr.Violations[0].Rule)
	assert.Equal(t, "unknown-variable", verr.Violations[1].Rule)
}

// recorder captures what encode hands to a backend.
type recorder struct {
	names []string
	rows  []row
	obj   []solver.Term
}

type row struct {
	name   string
	terms  []solver.Term
	lo, hi int
}

func (r *recorder) NewBoolVar(name string) solver.Var {
	r.names = append(r.names, name)
	return solver.Var(len(r.names) - 1)
}

func (r *recorder) AddLinear(name string, terms []solver.Term, lo, hi int) error {
	r.rows = append(r.rows, row{name, terms, lo, hi})
	return nil
}

func (r *recorder) Minimize(terms []solver.Term) { r.obj = terms }

func (r *recorder) Solve(context.Context, time.Duration) (solver.Status, error) {
	return solver.StatusUnknown, nil
}
func (r *recorder) HasSolution() bool     { return false }
func (r *recorder) Value(solver.Var) bool { return false }
func (r *recorder) Objective() int        { return 0 }

func TestEncodeSoftConstraint(t *testing.T) {
	keys := []constraints.Key{
		{Resident: "a", Date: day("2024-07-31")},
		{Resident: "b", Date: day("2024-07-31")},
		{Resident: "c", Date: day("2024-07-31")},
	}
	terms := []constraints.Term{{Key: keys[0], Coef: 1}, {Key: keys[1], Coef: 1}, {Key: keys[2], Coef: 1}}
	set := &constraints.Set{Keys: keys, Constraints: []constraints.Constraint{
		{Category: constraints.PodBalance, Label: "cap", Terms: terms, Lo: constraints.NoLower, Hi: 1, Soft: true, Weight: 7},
		{Category: constraints.MinimumStaffing, Label: "min", Terms: terms, Lo: 1, Hi: constraints.NoUpper},
	}}

	rec := &recorder{}
	enc, err := encode(rec, set, false)
	require.NoError(t, err)
	assert.Equal(t, 2, enc.slack)
	assert.Len(t, rec.names, 5)
	require.Len(t, rec.rows, 3)
	assert.Equal(t, "cap/over", rec.rows[0].name)
	assert.Len(t, rec.rows[0].terms, 5)
	assert.Equal(t, 1, rec.rows[0].hi)
	assert.True(t, strings.HasPrefix(rec.rows[1].name, "cap/over/order"))
	assert.Equal(t, []solver.Term{{Var: 4, Coef: 1}, {Var: 3, Coef: -1}}, rec.rows[1].terms)
	assert.Equal(t, "min", rec.rows[2].name)
	assert.Equal(t, []solver.Term{{Var: 3, Coef: 7}, {Var: 4, Coef: 7}}, rec.obj)

	rec = &recorder{}
	enc, err = encode(rec, set, true)
	require.NoError(t, err)
	assert.Zero(t, enc.slack)
	assert.Len(t, rec.rows, 1)
	assert.Nil(t, rec.obj)
}

func TestEncodeUnknownKey(t *testing.T) {
	set := &constraints.Set{Constraints: []constraints.Constraint{
		{Label: "ghost", Terms: []constraints.Term{{Key: constraints.Key{Resident: "x"}, Coef: 1}}, Lo: 0, Hi: 1},
	}}
	_, err := encode(&recorder{}, set, false)
	require.Error(t, err)
}
