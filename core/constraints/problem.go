package constraints

import (
	"github.com/kilianp07/resident-scheduler/core/model"
)

// Problem is everything the builder needs about one block.
type Problem struct {
	Calendar model.Calendar
	Roster   *model.Roster
	// Prior holds assignments worked before the block starts.
	Prior []model.PriorAssignment
}

// NewProblem checks that prior assignments reference known residents and
// precede the block.
func NewProblem(cal model.Calendar, roster *model.Roster, prior []model.PriorAssignment) (*Problem, error) {
	if roster == nil || roster.Len() == 0 {
		return nil, model.NewInvalidInput("residents", "empty roster")
	}
	start := cal.Block.Start
	for _, p := range prior {
		if _, ok := roster.Get(p.ResidentID); !ok {
			return nil, model.NewInvalidInput("prior.resident", "unknown resident %q", p.ResidentID)
		}
		if !p.Date.Before(start) {
			return nil, model.NewInvalidInput("prior.date", "%s on %s is not before block start %s", p.ResidentID, p.Date, start)
		}
	}
	return &Problem{Calendar: cal, Roster: roster, Prior: prior}, nil
}

// Block is shorthand for the calendar's block.
func (p *Problem) Block() model.Block { return p.Calendar.Block }

// Keys enumerates every decision variable, resident-major then date then kind.
func (p *Problem) Keys() []Key {
	kinds := p.Calendar.Kinds()
	dates := p.Block().Dates()
	out := make([]Key, 0, p.Roster.Len()*len(dates)*len(kinds))
	for _, r := range p.Roster.Residents() {
		for _, d := range dates {
			for _, k := range kinds {
				out = append(out, Key{Resident: r.ID, Date: d, Kind: k})
			}
		}
	}
	return out
}

// Required returns the shifts owed by each resident under red.
func (p *Problem) Required(red model.Reduction) map[string]int {
	out := make(map[string]int, p.Roster.Len())
	for _, r := range p.Roster.Residents() {
		out[r.ID] = model.RequiredShifts(r, p.Block(), red)
	}
	return out
}

func (p *Problem) priorFor(id string) []model.PriorAssignment {
	var out []model.PriorAssignment
	for _, a := range p.Prior {
		if a.ResidentID == id {
			out = append(out, a)
		}
	}
	return out
}

func (p *Problem) hasKind(k model.ShiftKind) bool {
	for _, kk := range p.Calendar.Kinds() {
		if kk == k {
			return true
		}
	}
	return false
}

func dayKeys(id string, d model.Date, kinds []model.ShiftKind) []Key {
	out := make([]Key, len(kinds))
	for i, k := range kinds {
		out[i] = Key{Resident: id, Date: d, Kind: k}
	}
	return out
}
