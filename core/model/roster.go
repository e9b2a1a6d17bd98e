package model

import "sort"

// Roster is the validated set of residents considered for one block.
type Roster struct {
	residents []Resident
	byID      map[string]int
}

// NewRoster validates each resident and the references between them.
func NewRoster(residents []Resident) (*Roster, error) {
	r := &Roster{residents: make([]Resident, 0, len(residents)), byID: make(map[string]int, len(residents))}
	for _, in := range residents {
		res, err := NewResident(in)
		if err != nil {
			return nil, err
		}
		if _, dup := r.byID[res.ID]; dup {
			return nil, invalidInput("resident.id", "duplicate resident id %q", res.ID)
		}
		r.byID[res.ID] = len(r.residents)
		r.residents = append(r.residents, res)
	}
	for _, res := range r.residents {
		if res.Buddy == "" {
			continue
		}
		b, ok := r.Get(res.Buddy)
		if !ok {
			return nil, invalidInput("resident.buddy", "%s: unknown buddy %q", res.ID, res.Buddy)
		}
		if !b.Level.CanSupervise() {
			return nil, invalidInput("resident.buddy", "%s: buddy %s (%s) cannot supervise", res.ID, b.ID, b.Level)
		}
	}
	return r, nil
}

// Len returns the number of residents.
func (r *Roster) Len() int { return len(r.residents) }

// Residents returns the residents in input order. The slice must not be modified.
func (r *Roster) Residents() []Resident { return r.residents }

// Get looks a resident up by ID.
func (r *Roster) Get(id string) (Resident, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Resident{}, false
	}
	return r.residents[i], true
}

// Available returns the residents who may work on d, sorted by ID.
func (r *Roster) Available(d Date) []Resident {
	var out []Resident
	for _, res := range r.residents {
		if res.Available(d) {
			out = append(out, res)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
