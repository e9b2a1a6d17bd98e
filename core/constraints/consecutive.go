package constraints

// consecutiveCap limits every sliding window of ConsecutiveWindowDays dates to
// MaxConsecutive worked shifts. Windows reaching back before the block count
// the resident's prior assignments against the cap.
func consecutiveCap(p *Problem, o Options, _ map[string]int) []Constraint {
	b := p.Block()
	kinds := p.Calendar.Kinds()
	w, limit := o.ConsecutiveWindowDays, o.MaxConsecutive
	var out []Constraint
	for _, r := range p.Roster.Residents() {
		prior := p.priorFor(r.ID)
		for i := -(w - 1); i+w-1 < b.Length; i++ {
			from := b.Start.AddDays(i)
			to := from.AddDays(w - 1)
			carried := 0
			for _, a := range prior {
				if a.Date.Between(from, to) {
					carried++
				}
			}
			var keys []Key
			for j := max(i, 0); j <= i+w-1 && j < b.Length; j++ {
				keys = append(keys, dayKeys(r.ID, b.Start.AddDays(j), kinds)...)
			}
			hi := max(limit-carried, 0)
			if len(keys) <= hi {
				continue
			}
			out = append(out, atMost(ConsecutiveCap, label(r.ID, from, to), ones(keys), hi))
		}
	}
	return out
}
