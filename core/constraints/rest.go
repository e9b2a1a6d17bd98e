package constraints

import (
	"time"

	"github.com/kilianp07/resident-scheduler/core/model"
)

// restHorizon returns how many days apart two shifts can be and still fall
// under a rest threshold of h hours.
func restHorizon(h int) int {
	return h/24 + 2
}

// restTransition forbids pairs of day/night transitions closer than the
// same-pod threshold inside the block, and transitions from a prior
// assignment closer than the cross-pod threshold.
func restTransition(p *Problem, o Options, _ map[string]int) []Constraint {
	b := p.Block()
	loc := b.Loc()
	kinds := p.Calendar.Kinds()
	same := time.Duration(o.RestSamePodHours) * time.Hour
	cross := time.Duration(o.RestCrossPodHours) * time.Hour
	dates := b.Dates()

	var out []Constraint
	for _, r := range p.Roster.Residents() {
		for i, d1 := range dates {
			for j := i; j < len(dates) && j <= i+restHorizon(o.RestSamePodHours); j++ {
				d2 := dates[j]
				for _, k1 := range kinds {
					for _, k2 := range kinds {
						if j == i && k2 <= k1 {
							continue
						}
						if !model.Transition(k1, k2) || model.Rest(k1, d1, k2, d2, loc) >= same {
							continue
						}
						a := Key{Resident: r.ID, Date: d1, Kind: k1}
						c := Key{Resident: r.ID, Date: d2, Kind: k2}
						out = append(out, atMost(RestTransition, label(r.ID, d1, k1, d2, k2), ones([]Key{a, c}), 1))
					}
				}
			}
		}
		for _, pa := range p.priorFor(r.ID) {
			for j := 0; j < len(dates) && j <= restHorizon(o.RestCrossPodHours); j++ {
				d := dates[j]
				for _, k := range kinds {
					if !model.Transition(pa.Kind, k) || model.Rest(pa.Kind, pa.Date, k, d, loc) >= cross {
						continue
					}
					out = append(out, forbid(RestTransition, label(r.ID, "prior", pa.Date, pa.Kind, d, k), Key{Resident: r.ID, Date: d, Kind: k}))
				}
			}
		}
	}
	return out
}
