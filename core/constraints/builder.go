package constraints

import (
	"fmt"

	"github.com/kilianp07/resident-scheduler/core/logger"
	"github.com/kilianp07/resident-scheduler/core/model"
)

// Set is the output of Build: the variable universe and every constraint of
// the enabled categories.
type Set struct {
	Keys        []Key
	Constraints []Constraint
	Required    map[string]int
	Disabled    []Category
}

// ByCategory returns the constraints of category c.
func (s *Set) ByCategory(c Category) []Constraint {
	var out []Constraint
	for _, con := range s.Constraints {
		if con.Category == c {
			out = append(out, con)
		}
	}
	return out
}

// Counts returns the number of constraints per category name.
func (s *Set) Counts() map[string]int {
	out := make(map[string]int)
	for _, c := range s.Constraints {
		out[c.Category.String()]++
	}
	return out
}

// HasSoft reports whether any constraint carries a penalty instead of a
// hard bound.
func (s *Set) HasSoft() bool {
	for _, c := range s.Constraints {
		if c.Soft {
			return true
		}
	}
	return false
}

type rule func(p *Problem, o Options, required map[string]int) []Constraint

var rules = map[Category]rule{
	SingleAssignment: singleAssignment,
	RequiredShifts:   requiredShifts,
	TimeOff:          timeOff,
	NoTuesdayNight:   noTuesdayNight,
	ConsecutiveCap:   consecutiveCap,
	RestTransition:   restTransition,
	MinimumStaffing:  staffing,
	Supervision:      supervision,
	Buddy:            buddy,
	Rotation:         rotation,
	PodBalance:       podBalance,
}

// Build produces the constraint set for p. Disabled categories are skipped
// and logged; input that no schedule could satisfy for structural reasons
// is rejected with a *model.InvalidInputError.
func Build(p *Problem, opts Options, log logger.Logger) (*Set, error) {
	log = logger.OrNop(log)
	if p == nil {
		return nil, model.NewInvalidInput("problem", "nil problem")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	required := p.Required(opts.Reduction)
	if err := precheck(p, opts, required); err != nil {
		return nil, err
	}

	set := &Set{Keys: p.Keys(), Required: required, Disabled: opts.DisabledCategories()}
	for _, c := range AllCategories {
		if !opts.Enabled(c) {
			log.Warnf("constraint category %s disabled", c)
			continue
		}
		cs := rules[c](p, opts, required)
		set.Constraints = append(set.Constraints, cs...)
		log.Debugf("built %d %s constraints", len(cs), c)
	}
	if n := closedSlots(p, opts); n > 0 {
		log.Infof("minimum staffing waived on %d closed tuesday night slots", n)
	}
	log.Debugw("constraint set built", map[string]any{
		"block":       p.Block().Number,
		"residents":   p.Roster.Len(),
		"variables":   len(set.Keys),
		"constraints": len(set.Constraints),
	})
	return set, nil
}

func precheck(p *Problem, o Options, required map[string]int) error {
	if !o.Enabled(RequiredShifts) {
		return nil
	}
	for _, r := range p.Roster.Residents() {
		n := required[r.ID]
		if n < 0 {
			return model.NewInvalidInput("resident.required_shifts", "%s: negative requirement %d", r.ID, n)
		}
		avail := availableDays(p, o, r)
		if n > avail {
			return model.NewInvalidInput("resident.required_shifts",
				"%s: requires %d shifts but only %d dates are available", r.ID, n, avail)
		}
	}
	return nil
}

func availableDays(p *Problem, o Options, r model.Resident) int {
	if len(closedKinds(p, r.Pod)) == len(p.Calendar.Kinds()) {
		return 0
	}
	n := 0
	for _, d := range p.Block().Dates() {
		if o.Enabled(TimeOff) && r.OnTimeOff(d) {
			continue
		}
		if o.Enabled(Rotation) && !r.OnRotation(d) {
			continue
		}
		n++
	}
	return n
}

func label(parts ...any) string {
	s := ""
	for i, p := range parts {
		if i > 0 {
			s += "/"
		}
		s += fmt.Sprint(p)
	}
	return s
}
