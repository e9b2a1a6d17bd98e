package model

import "fmt"

// TimeOffKind distinguishes paid time off from required time off. Both block
// scheduling; only PTO reduces the shift count under the capped policy.
type TimeOffKind string

const (
	TimeOffPTO TimeOffKind = "pto"
	TimeOffRTO TimeOffKind = "rto"
)

// TimeOffWindow is an inclusive range of dates a resident cannot work.
type TimeOffWindow struct {
	Start Date
	End   Date
	Kind  TimeOffKind
}

// Contains reports whether d falls inside the window.
func (w TimeOffWindow) Contains(d Date) bool { return d.Between(w.Start, w.End) }

// Days returns the number of dates covered.
func (w TimeOffWindow) Days() int { return w.Start.DaysUntil(w.End) + 1 }

// Overlaps reports whether the two windows share at least one date.
func (w TimeOffWindow) Overlaps(o TimeOffWindow) bool {
	return !w.End.Before(o.Start) && !o.End.Before(w.Start)
}

// Clip restricts the window to [from, to]. ok is false when nothing remains.
func (w TimeOffWindow) Clip(from, to Date) (TimeOffWindow, bool) {
	if w.End.Before(from) || w.Start.After(to) {
		return TimeOffWindow{}, false
	}
	c := w
	if c.Start.Before(from) {
		c.Start = from
	}
	if c.End.After(to) {
		c.End = to
	}
	return c, true
}

func (w TimeOffWindow) String() string {
	return fmt.Sprintf("%s..%s (%s)", w.Start, w.End, w.Kind)
}

// Rotation is the inclusive range during which a resident is on this service.
type Rotation struct {
	Start Date
	End   Date
}

// Contains reports whether d falls inside the rotation.
func (r Rotation) Contains(d Date) bool { return d.Between(r.Start, r.End) }
