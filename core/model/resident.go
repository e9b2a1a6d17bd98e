package model

import (
	"sort"
)

// Resident is a trainee that can be assigned shifts.
type Resident struct {
	ID    string
	Name  string
	Level Level
	Pod   Pod
	// TimeOff is sorted by start date and free of overlaps.
	TimeOff []TimeOffWindow
	// BaseShifts is the number of shifts owed over a full block before any
	// time-off reduction.
	BaseShifts int
	// Buddy is the ID of the senior partner for buddy-system blocks.
	Buddy string
	// Rotation limits the dates the resident is on service. Nil means the
	// whole block.
	Rotation *Rotation
}

// NewResident validates r and returns a copy with time-off sorted.
func NewResident(r Resident) (Resident, error) {
	if r.ID == "" {
		return Resident{}, invalidInput("resident.id", "empty resident id")
	}
	if !r.Level.valid() {
		return Resident{}, invalidInput("resident.level", "%s: unknown level %d", r.ID, int(r.Level))
	}
	if r.BaseShifts < 0 {
		return Resident{}, invalidInput("resident.required_shifts", "%s: negative shift count %d", r.ID, r.BaseShifts)
	}
	if r.Buddy == r.ID {
		return Resident{}, invalidInput("resident.buddy", "%s: resident cannot be their own buddy", r.ID)
	}
	if r.Rotation != nil && r.Rotation.End.Before(r.Rotation.Start) {
		return Resident{}, invalidInput("resident.rotation", "%s: rotation ends before it starts", r.ID)
	}
	windows := make([]TimeOffWindow, len(r.TimeOff))
	copy(windows, r.TimeOff)
	for _, w := range windows {
		if w.Start.IsZero() || w.End.IsZero() {
			return Resident{}, invalidInput("resident.time_off", "%s: time-off window needs start and end", r.ID)
		}
		if w.End.Before(w.Start) {
			return Resident{}, invalidInput("resident.time_off", "%s: window %s ends before it starts", r.ID, w)
		}
		if w.Kind != TimeOffPTO && w.Kind != TimeOffRTO {
			return Resident{}, invalidInput("resident.time_off", "%s: unknown time-off kind %q", r.ID, w.Kind)
		}
	}
	sort.Slice(windows, func(i, j int) bool { return windows[i].Start.Before(windows[j].Start) })
	for i := 1; i < len(windows); i++ {
		if windows[i-1].Overlaps(windows[i]) {
			return Resident{}, invalidInput("resident.time_off", "%s: windows %s and %s overlap", r.ID, windows[i-1], windows[i])
		}
	}
	r.TimeOff = windows
	if r.Rotation != nil {
		rot := *r.Rotation
		r.Rotation = &rot
	}
	return r, nil
}

// OnTimeOff reports whether d is inside one of the resident's windows.
func (r Resident) OnTimeOff(d Date) bool {
	for _, w := range r.TimeOff {
		if w.Contains(d) {
			return true
		}
		if w.Start.After(d) {
			break
		}
	}
	return false
}

// OnRotation reports whether the resident is on service on d.
func (r Resident) OnRotation(d Date) bool {
	return r.Rotation == nil || r.Rotation.Contains(d)
}

// Available reports whether the resident may work on d at all.
func (r Resident) Available(d Date) bool {
	return r.OnRotation(d) && !r.OnTimeOff(d)
}

// TimeOffDaysIn counts the dates of b covered by time-off windows of the
// given kinds. No kinds means every kind.
func (r Resident) TimeOffDaysIn(b Block, kinds ...TimeOffKind) int {
	n := 0
	for _, w := range r.TimeOff {
		if len(kinds) > 0 && !hasKind(kinds, w.Kind) {
			continue
		}
		if c, ok := w.Clip(b.Start, b.End()); ok {
			n += c.Days()
		}
	}
	return n
}

// UnavailableDaysIn counts the dates of b the resident cannot work, whether
// from time off or from being off rotation.
func (r Resident) UnavailableDaysIn(b Block) int {
	n := 0
	for _, d := range b.Dates() {
		if !r.Available(d) {
			n++
		}
	}
	return n
}

func hasKind(kinds []TimeOffKind, k TimeOffKind) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}
