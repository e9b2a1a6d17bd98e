package constraints

import "github.com/kilianp07/resident-scheduler/core/model"

func eligible(p *Problem, s model.Slot) []Key {
	var keys []Key
	for _, r := range p.Roster.Residents() {
		if s.Spec.Eligible(r.Pod) {
			keys = append(keys, Key{Resident: r.ID, Date: s.Date, Kind: s.Spec.Kind})
		}
	}
	return keys
}

// staffing bounds the headcount of every slot. Closed tuesday night slots
// keep their maximum but lose their minimum.
func staffing(p *Problem, o Options, _ map[string]int) []Constraint {
	var out []Constraint
	for _, s := range p.Calendar.Slots() {
		lo, hi := NoLower, NoUpper
		if s.Spec.MinStaff > 0 && !ClosedSlot(s, o) {
			lo = s.Spec.MinStaff
		}
		if s.Spec.HasMax() {
			hi = s.Spec.MaxStaff
		}
		if lo == NoLower && hi == NoUpper {
			continue
		}
		out = append(out, Constraint{
			Category: MinimumStaffing,
			Label:    s.String(),
			Terms:    ones(eligible(p, s)),
			Lo:       lo,
			Hi:       hi,
		})
	}
	return out
}
