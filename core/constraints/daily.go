package constraints

import (
	"time"

	"github.com/kilianp07/resident-scheduler/core/model"
)

// singleAssignment allows at most one shift per resident per date and
// closes kinds that no catalog entry opens to the resident's pod.
func singleAssignment(p *Problem, _ Options, _ map[string]int) []Constraint {
	kinds := p.Calendar.Kinds()
	var out []Constraint
	for _, r := range p.Roster.Residents() {
		closed := closedKinds(p, r.Pod)
		for _, d := range p.Block().Dates() {
			if len(kinds) > 1 {
				out = append(out, atMost(SingleAssignment, label(r.ID, d), ones(dayKeys(r.ID, d, kinds)), 1))
			}
			for _, k := range closed {
				out = append(out, forbid(SingleAssignment, label(r.ID, d, k, "pod"), Key{Resident: r.ID, Date: d, Kind: k}))
			}
		}
	}
	return out
}

// closedKinds lists the catalog kinds whose every entry is scoped to a pod
// other than pod.
func closedKinds(p *Problem, pod model.Pod) []model.ShiftKind {
	var out []model.ShiftKind
	for _, k := range p.Calendar.Kinds() {
		open := false
		for _, s := range p.Calendar.Catalog {
			if s.Kind == k && s.Eligible(pod) {
				open = true
			}
		}
		if !open {
			out = append(out, k)
		}
	}
	return out
}

// requiredShifts fixes the number of shifts each resident works in the block.
func requiredShifts(p *Problem, _ Options, required map[string]int) []Constraint {
	kinds := p.Calendar.Kinds()
	var out []Constraint
	for _, r := range p.Roster.Residents() {
		var keys []Key
		for _, d := range p.Block().Dates() {
			keys = append(keys, dayKeys(r.ID, d, kinds)...)
		}
		out = append(out, exactly(RequiredShifts, r.ID, ones(keys), required[r.ID]))
	}
	return out
}

// timeOff forbids every shift on dates covered by a PTO or RTO window.
func timeOff(p *Problem, _ Options, _ map[string]int) []Constraint {
	b := p.Block()
	kinds := p.Calendar.Kinds()
	var out []Constraint
	for _, r := range p.Roster.Residents() {
		for _, w := range r.TimeOff {
			clipped, ok := w.Clip(b.Start, b.End())
			if !ok {
				continue
			}
			for d := clipped.Start; !d.After(clipped.End); d = d.AddDays(1) {
				for _, k := range dayKeys(r.ID, d, kinds) {
					out = append(out, forbid(TimeOff, label(r.ID, d, w.Kind), k))
				}
			}
		}
	}
	return out
}

// rotation forbids shifts outside a resident's rotation dates.
func rotation(p *Problem, _ Options, _ map[string]int) []Constraint {
	kinds := p.Calendar.Kinds()
	var out []Constraint
	for _, r := range p.Roster.Residents() {
		if r.Rotation == nil {
			continue
		}
		for _, d := range p.Block().Dates() {
			if r.Rotation.Contains(d) {
				continue
			}
			for _, k := range dayKeys(r.ID, d, kinds) {
				out = append(out, forbid(Rotation, label(r.ID, d), k))
			}
		}
	}
	return out
}

// noTuesdayNight closes the night shift on Tuesdays.
func noTuesdayNight(p *Problem, _ Options, _ map[string]int) []Constraint {
	if !p.hasKind(model.ShiftNight) {
		return nil
	}
	var out []Constraint
	for _, d := range p.Block().Dates() {
		if d.Weekday() != time.Tuesday {
			continue
		}
		for _, r := range p.Roster.Residents() {
			out = append(out, forbid(NoTuesdayNight, label(r.ID, d), Key{Resident: r.ID, Date: d, Kind: model.ShiftNight}))
		}
	}
	return out
}

// ClosedSlot reports whether slot s is closed by the no-tuesday-night rule
// under o, in which case its minimum staffing does not apply.
func ClosedSlot(s model.Slot, o Options) bool {
	return o.Enabled(NoTuesdayNight) && s.Spec.Kind == model.ShiftNight && s.Date.Weekday() == time.Tuesday
}

func closedSlots(p *Problem, o Options) int {
	if !o.Enabled(MinimumStaffing) {
		return 0
	}
	n := 0
	for _, s := range p.Calendar.Slots() {
		if ClosedSlot(s, o) && s.Spec.MinStaff > 0 {
			n++
		}
	}
	return n
}
