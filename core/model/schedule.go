package model

import (
	"fmt"
	"sort"
)

// Entry is one assignment of a resident to a shift kind on a date.
type Entry struct {
	ResidentID string    `json:"resident_id"`
	Date       Date      `json:"date"`
	Kind       ShiftKind `json:"kind"`
}

type dayKey struct {
	resident string
	date     Date
}

// Schedule maps (resident, date) to at most one shift kind for one block.
type Schedule struct {
	Block   Block
	entries map[dayKey]ShiftKind
}

// NewSchedule returns an empty schedule for b.
func NewSchedule(b Block) *Schedule {
	return &Schedule{Block: b, entries: make(map[dayKey]ShiftKind)}
}

// Assign records that residentID works kind on d. A second, different kind
// for the same resident and date is rejected; repeating the same assignment
// is a no-op.
func (s *Schedule) Assign(residentID string, d Date, kind ShiftKind) error {
	k := dayKey{residentID, d}
	if cur, ok := s.entries[k]; ok {
		if cur == kind {
			return nil
		}
		return fmt.Errorf("resident %s already works %s on %s, cannot add %s", residentID, cur, d, kind)
	}
	s.entries[k] = kind
	return nil
}

// Lookup returns the kind assigned to residentID on d.
func (s *Schedule) Lookup(residentID string, d Date) (ShiftKind, bool) {
	k, ok := s.entries[dayKey{residentID, d}]
	return k, ok
}

// Len returns the number of assignments.
func (s *Schedule) Len() int { return len(s.entries) }

// Entries returns every assignment sorted by date, kind and resident.
func (s *Schedule) Entries() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for k, kind := range s.entries {
		out = append(out, Entry{ResidentID: k.resident, Date: k.date, Kind: kind})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.ResidentID < b.ResidentID
	})
	return out
}

// ForResident returns the resident's assignments in date order.
func (s *Schedule) ForResident(residentID string) []Entry {
	var out []Entry
	for _, e := range s.Entries() {
		if e.ResidentID == residentID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// OnSlot returns the residents working kind on d, sorted.
func (s *Schedule) OnSlot(d Date, kind ShiftKind) []string {
	var out []string
	for k, v := range s.entries {
		if v == kind && k.date.Equal(d) {
			out = append(out, k.resident)
		}
	}
	sort.Strings(out)
	return out
}
