package validate

import (
	"sort"
	"time"

	"github.com/kilianp07/resident-scheduler/core/constraints"
	"github.com/kilianp07/resident-scheduler/core/model"
)

type worked struct {
	date  model.Date
	kind  model.ShiftKind
	prior bool
}

// history returns the prior and scheduled shifts of a resident by date.
func (v *Validator) history(s *model.Schedule, id string) []worked {
	var out []worked
	for _, a := range v.p.Prior {
		if a.ResidentID == id {
			out = append(out, worked{date: a.Date, kind: a.Kind, prior: true})
		}
	}
	for _, e := range s.ForResident(id) {
		out = append(out, worked{date: e.Date, kind: e.Kind})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].date.Before(out[j].date) })
	return out
}

func checkConsecutive(v *Validator, s *model.Schedule, out *violations) {
	b := v.p.Block()
	w, limit := v.o.ConsecutiveWindowDays, v.o.MaxConsecutive
	for _, r := range v.p.Roster.Residents() {
		h := v.history(s, r.ID)
		for i := -(w - 1); i+w-1 < b.Length; i++ {
			from := b.Start.AddDays(i)
			to := from.AddDays(w - 1)
			carried, inBlock := 0, 0
			for _, x := range h {
				if !x.date.Between(from, to) {
					continue
				}
				if x.prior {
					carried++
				} else {
					inBlock++
				}
			}
			if inBlock > 0 && carried+inBlock > limit {
				out.add(constraints.ConsecutiveCap, r.ID, to, "%d shifts between %s and %s, at most %d allowed", carried+inBlock, from, to, limit)
			}
		}
	}
}

func checkRest(v *Validator, s *model.Schedule, out *violations) {
	loc := v.p.Block().Loc()
	same := time.Duration(v.o.RestSamePodHours) * time.Hour
	cross := time.Duration(v.o.RestCrossPodHours) * time.Hour
	for _, r := range v.p.Roster.Residents() {
		h := v.history(s, r.ID)
		for i := range h {
			for j := i + 1; j < len(h); j++ {
				a, c := h[i], h[j]
				if a.prior && c.prior {
					continue
				}
				if !model.Transition(a.kind, c.kind) {
					continue
				}
				need := same
				if a.prior || c.prior {
					need = cross
				}
				if rest := model.Rest(a.kind, a.date, c.kind, c.date, loc); rest < need {
					out.add(constraints.RestTransition, r.ID, c.date, "%s on %s after %s on %s leaves %s rest, needs %s",
						c.kind, c.date, a.kind, a.date, rest, need)
				}
			}
		}
	}
}

func checkStaffing(v *Validator, s *model.Schedule, out *violations) {
	for _, slot := range v.p.Calendar.Slots() {
		n := 0
		for _, id := range s.OnSlot(slot.Date, slot.Spec.Kind) {
			if r, ok := v.p.Roster.Get(id); ok && slot.Spec.Eligible(r.Pod) {
				n++
			}
		}
		if slot.Spec.MinStaff > 0 && !constraints.ClosedSlot(slot, v.o) && n < slot.Spec.MinStaff {
			out.add(constraints.MinimumStaffing, "", slot.Date, "%s staffed by %d, needs %d", slot, n, slot.Spec.MinStaff)
		}
		if slot.Spec.HasMax() && n > slot.Spec.MaxStaff {
			out.add(constraints.MinimumStaffing, "", slot.Date, "%s staffed by %d, at most %d", slot, n, slot.Spec.MaxStaff)
		}
	}
}

func checkSupervision(v *Validator, s *model.Schedule, out *violations) {
	for _, d := range v.p.Block().Dates() {
		for _, k := range v.p.Calendar.Kinds() {
			if v.o.Exempt(k) {
				continue
			}
			var firsts, seniors []model.Resident
			for _, id := range s.OnSlot(d, k) {
				r, ok := v.p.Roster.Get(id)
				switch {
				case !ok:
				case r.Level.IsFirstYear():
					firsts = append(firsts, r)
				case r.Level.CanSupervise():
					seniors = append(seniors, r)
				}
			}
			for _, f := range firsts {
				covered := false
				for _, sr := range seniors {
					if !v.o.Supervision.SamePod || sr.Pod == f.Pod {
						covered = true
					}
				}
				if !covered {
					out.add(constraints.Supervision, f.ID, d, "%s %s works %s without a senior", f.Level, f.ID, k)
				}
			}
		}
	}
}

func checkBuddy(v *Validator, s *model.Schedule, out *violations) {
	b := v.p.Block()
	if !v.o.BuddyBlock(b.Number) {
		return
	}
	for _, e := range s.Entries() {
		if e.Kind != model.ShiftSwing {
			continue
		}
		r, ok := v.p.Roster.Get(e.ResidentID)
		if !ok || !r.Level.IsFirstYear() {
			continue
		}
		if r.Buddy == "" {
			out.add(constraints.Buddy, r.ID, e.Date, "swing shift without an assigned buddy")
			continue
		}
		k, ok := s.Lookup(r.Buddy, e.Date)
		if !ok || !model.Overlaps(model.ShiftSwing, e.Date, k, e.Date, b.Loc()) {
			out.add(constraints.Buddy, r.ID, e.Date, "buddy %s not on an overlapping shift", r.Buddy)
		}
	}
}

func checkPodBalance(v *Validator, s *model.Schedule, out *violations) {
	if v.o.PodCap.Soft {
		return
	}
	for _, d := range v.p.Block().Dates() {
		for _, k := range v.p.Calendar.Kinds() {
			limit := v.o.PodCapFor(v.p.Block(), k)
			per := map[model.Pod]int{}
			for _, id := range s.OnSlot(d, k) {
				if r, ok := v.p.Roster.Get(id); ok && r.Pod != "" {
					per[r.Pod]++
				}
			}
			pods := make([]model.Pod, 0, len(per))
			for p := range per {
				pods = append(pods, p)
			}
			sort.Slice(pods, func(i, j int) bool { return pods[i] < pods[j] })
			for _, p := range pods {
				if per[p] > limit {
					out.add(constraints.PodBalance, "", d, "%d %s residents on %s, cap %d", per[p], p, k, limit)
				}
			}
		}
	}
}
