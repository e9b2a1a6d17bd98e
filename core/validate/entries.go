package validate

import (
	"github.com/kilianp07/resident-scheduler/core/model"
)

// Rules reported by FromEntries for malformed input.
const (
	RuleDuplicate       = "duplicate-entry"
	RuleUnknownResident = "unknown-resident"
	RuleOutsideBlock    = "outside-block"
)

// FromEntries builds a schedule from a flat list of assignments, for example
// one read back from a file. Entries that cannot be placed are reported as
// violations instead of aborting, so a caller sees every problem at once.
func FromEntries(b model.Block, roster *model.Roster, entries []model.Entry) (*model.Schedule, []model.Violation) {
	s := model.NewSchedule(b)
	out := &violations{}
	for _, e := range entries {
		if _, ok := roster.Get(e.ResidentID); !ok {
			out.addRule(RuleUnknownResident, e.ResidentID, e.Date, "resident is not on the roster")
			continue
		}
		if !b.Contains(e.Date) {
			out.addRule(RuleOutsideBlock, e.ResidentID, e.Date, "date outside block %d", b.Number)
			continue
		}
		if err := s.Assign(e.ResidentID, e.Date, e.Kind); err != nil {
			out.addRule(RuleDuplicate, e.ResidentID, e.Date, "%v", err)
		}
	}
	return s, out.sorted()
}
