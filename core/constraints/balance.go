package constraints

import (
	"sort"

	"github.com/kilianp07/resident-scheduler/core/model"
)

func pods(p *Problem) []model.Pod {
	seen := map[model.Pod]bool{}
	var out []model.Pod
	for _, r := range p.Roster.Residents() {
		if r.Pod != "" && !seen[r.Pod] {
			seen[r.Pod] = true
			out = append(out, r.Pod)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// podBalance caps how many residents of one pod work the same kind on the
// same date. Swing has its own, usually tighter, cap. The cap is soft when
// configured so.
func podBalance(p *Problem, o Options, _ map[string]int) []Constraint {
	var out []Constraint
	for _, pod := range pods(p) {
		var members []model.Resident
		for _, r := range p.Roster.Residents() {
			if r.Pod == pod {
				members = append(members, r)
			}
		}
		for _, k := range p.Calendar.Kinds() {
			limit := o.PodCapFor(p.Block(), k)
			if len(members) <= limit {
				continue
			}
			for _, d := range p.Block().Dates() {
				keys := make([]Key, len(members))
				for i, r := range members {
					keys[i] = Key{Resident: r.ID, Date: d, Kind: k}
				}
				c := atMost(PodBalance, label(pod, d, k), ones(keys), limit)
				if o.PodCap.Soft {
					c.Soft = true
					c.Weight = o.PodCap.Weight
				}
				out = append(out, c)
			}
		}
	}
	return out
}
