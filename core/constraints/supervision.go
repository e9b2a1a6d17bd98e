package constraints

import "github.com/kilianp07/resident-scheduler/core/model"

// supervision requires a senior on the same kind and date whenever a
// first-year works it: x[f] - Σ x[senior] <= 0.
func supervision(p *Problem, o Options, _ map[string]int) []Constraint {
	var out []Constraint
	for _, k := range p.Calendar.Kinds() {
		if o.Exempt(k) {
			continue
		}
		for _, d := range p.Block().Dates() {
			for _, f := range p.Roster.Residents() {
				if !f.Level.IsFirstYear() {
					continue
				}
				terms := []Term{{Key: Key{Resident: f.ID, Date: d, Kind: k}, Coef: 1}}
				for _, s := range p.Roster.Residents() {
					if !s.Level.CanSupervise() || (o.Supervision.SamePod && s.Pod != f.Pod) {
						continue
					}
					terms = append(terms, Term{Key: Key{Resident: s.ID, Date: d, Kind: k}, Coef: -1})
				}
				out = append(out, atMost(Supervision, label(f.ID, d, k), terms, 0))
			}
		}
	}
	return out
}

// buddy requires a first-year on swing to share the date with their buddy
// on any overlapping shift during buddy-system blocks. A first-year without
// a buddy cannot work swing in those blocks.
func buddy(p *Problem, o Options, _ map[string]int) []Constraint {
	b := p.Block()
	if !o.BuddyBlock(b.Number) || !p.hasKind(model.ShiftSwing) {
		return nil
	}
	loc := b.Loc()
	kinds := p.Calendar.Kinds()
	var out []Constraint
	for _, f := range p.Roster.Residents() {
		if !f.Level.IsFirstYear() {
			continue
		}
		for _, d := range b.Dates() {
			swing := Key{Resident: f.ID, Date: d, Kind: model.ShiftSwing}
			if f.Buddy == "" {
				out = append(out, forbid(Buddy, label(f.ID, d, "no-buddy"), swing))
				continue
			}
			terms := []Term{{Key: swing, Coef: 1}}
			for _, k := range kinds {
				if model.Overlaps(model.ShiftSwing, d, k, d, loc) {
					terms = append(terms, Term{Key: Key{Resident: f.Buddy, Date: d, Kind: k}, Coef: -1})
				}
			}
			out = append(out, atMost(Buddy, label(f.ID, d, f.Buddy), terms, 0))
		}
	}
	return out
}
