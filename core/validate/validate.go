package validate

import (
	"fmt"
	"sort"
	"time"

	"github.com/kilianp07/resident-scheduler/core/constraints"
	"github.com/kilianp07/resident-scheduler/core/model"
)

// Validator checks schedules for one problem under one option set.
type Validator struct {
	p        *constraints.Problem
	o        constraints.Options
	required map[string]int
}

// New returns a Validator. Options are used as given; call SetDefaults first
// when they come from a partial configuration.
func New(p *constraints.Problem, o constraints.Options) *Validator {
	return &Validator{p: p, o: o, required: p.Required(o.Reduction)}
}

// Validate is shorthand for New(p, o).Validate(s).
func Validate(p *constraints.Problem, o constraints.Options, s *model.Schedule) []model.Violation {
	return New(p, o).Validate(s)
}

type check func(v *Validator, s *model.Schedule, out *violations)

var checks = []struct {
	cat constraints.Category
	fn  check
}{
	{constraints.SingleAssignment, checkEligibility},
	{constraints.RequiredShifts, checkRequired},
	{constraints.TimeOff, checkTimeOff},
	{constraints.NoTuesdayNight, checkTuesdayNight},
	{constraints.ConsecutiveCap, checkConsecutive},
	{constraints.RestTransition, checkRest},
	{constraints.MinimumStaffing, checkStaffing},
	{constraints.Supervision, checkSupervision},
	{constraints.Buddy, checkBuddy},
	{constraints.Rotation, checkRotation},
	{constraints.PodBalance, checkPodBalance},
}

// Validate returns every violation of an enabled hard rule, sorted by date,
// rule, resident and detail. An empty result means the schedule is valid.
func (v *Validator) Validate(s *model.Schedule) []model.Violation {
	out := &violations{}
	if !s.Block.Start.Equal(v.p.Block().Start) || s.Block.Length != v.p.Block().Length {
		out.add(constraints.SingleAssignment, "", s.Block.Start, "schedule covers block starting %s, expected %s", s.Block.Start, v.p.Block().Start)
	}
	for _, c := range checks {
		if v.o.Enabled(c.cat) {
			c.fn(v, s, out)
		}
	}
	return out.sorted()
}

type violations struct {
	list []model.Violation
}

func (vs *violations) add(c constraints.Category, resident string, d model.Date, format string, args ...any) {
	vs.addRule(c.String(), resident, d, format, args...)
}

func (vs *violations) addRule(rule, resident string, d model.Date, format string, args ...any) {
	vs.list = append(vs.list, model.Violation{Rule: rule, ResidentID: resident, Date: d, Detail: fmt.Sprintf(format, args...)})
}

func (vs *violations) sorted() []model.Violation {
	sortViolations(vs.list)
	return vs.list
}

func sortViolations(list []model.Violation) {
	sort.Slice(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		if a.ResidentID != b.ResidentID {
			return a.ResidentID < b.ResidentID
		}
		return a.Detail < b.Detail
	})
}

func checkEligibility(v *Validator, s *model.Schedule, out *violations) {
	for _, e := range s.Entries() {
		r, ok := v.p.Roster.Get(e.ResidentID)
		if !ok {
			out.add(constraints.SingleAssignment, e.ResidentID, e.Date, "resident is not on the roster")
			continue
		}
		if !v.p.Block().Contains(e.Date) {
			out.add(constraints.SingleAssignment, e.ResidentID, e.Date, "date outside the block")
			continue
		}
		open := false
		for _, spec := range v.p.Calendar.Catalog {
			if spec.Kind == e.Kind && spec.Eligible(r.Pod) {
				open = true
			}
		}
		if !open {
			out.add(constraints.SingleAssignment, e.ResidentID, e.Date, "no %s slot open to pod %q", e.Kind, r.Pod)
		}
	}
}

func checkRequired(v *Validator, s *model.Schedule, out *violations) {
	for _, r := range v.p.Roster.Residents() {
		got := len(s.ForResident(r.ID))
		if want := v.required[r.ID]; got != want {
			out.add(constraints.RequiredShifts, r.ID, v.p.Block().Start, "works %d shifts, requires %d", got, want)
		}
	}
}

func checkTimeOff(v *Validator, s *model.Schedule, out *violations) {
	for _, e := range s.Entries() {
		if r, ok := v.p.Roster.Get(e.ResidentID); ok && r.OnTimeOff(e.Date) {
			out.add(constraints.TimeOff, e.ResidentID, e.Date, "assigned %s during time off", e.Kind)
		}
	}
}

func checkRotation(v *Validator, s *model.Schedule, out *violations) {
	for _, e := range s.Entries() {
		if r, ok := v.p.Roster.Get(e.ResidentID); ok && !r.OnRotation(e.Date) {
			out.add(constraints.Rotation, e.ResidentID, e.Date, "assigned %s outside rotation", e.Kind)
		}
	}
}

func checkTuesdayNight(_ *Validator, s *model.Schedule, out *violations) {
	for _, e := range s.Entries() {
		if e.Kind == model.ShiftNight && e.Date.Weekday() == time.Tuesday {
			out.add(constraints.NoTuesdayNight, e.ResidentID, e.Date, "night shift on a tuesday")
		}
	}
}
