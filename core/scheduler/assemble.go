package scheduler

import (
	"sort"

	"github.com/kilianp07/resident-scheduler/core/constraints"
	"github.com/kilianp07/resident-scheduler/core/model"
)

// Assemble turns variable values into a schedule for b. Every true value
// becomes one entry. Values for keys outside known, or two kinds for one
// resident and date, are reported as a *model.ValidationError; the output is
// never repaired.
func Assemble(b model.Block, known []constraints.Key, values map[constraints.Key]bool) (*model.Schedule, error) {
	valid := make(map[constraints.Key]struct{}, len(known))
	for _, k := range known {
		valid[k] = struct{}{}
	}
	keys := make([]constraints.Key, 0, len(values))
	for k, v := range values {
		if v {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		a, c := keys[i], keys[j]
		if a.Resident != c.Resident {
			return a.Resident < c.Resident
		}
		if !a.Date.Equal(c.Date) {
			return a.Date.Before(c.Date)
		}
		return a.Kind < c.Kind
	})

	s := model.NewSchedule(b)
	var bad []model.Violation
	for _, k := range keys {
		if _, ok := valid[k]; !ok {
			bad = append(bad, model.Violation{Rule: "unknown-variable", ResidentID: k.Resident, Date: k.Date, Detail: k.String() + " is not a decision variable"})
			continue
		}
		if err := s.Assign(k.Resident, k.Date, k.Kind); err != nil {
			bad = append(bad, model.Violation{Rule: constraints.SingleAssignment.String(), ResidentID: k.Resident, Date: k.Date, Detail: err.Error()})
		}
	}
	if len(bad) > 0 {
		return nil, &model.ValidationError{Reason: "inconsistent solver output", Violations: bad}
	}
	return s, nil
}
