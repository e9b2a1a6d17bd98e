package model

import (
	"fmt"
	"strings"
	"time"
)

// Pod is a sub-team of the department (a "side"). Residents belong to one pod
// and shifts may be scoped to one.
type Pod string

const (
	PodPurple Pod = "purple"
	PodOrange Pod = "orange"
)

// ShiftKind enumerates the shift patterns worked in a day.
type ShiftKind int

const (
	// ShiftDay runs 07:00-19:00.
	ShiftDay ShiftKind = iota
	// ShiftNight runs 19:00-07:00 the next morning.
	ShiftNight
	// ShiftSwing runs 11:00-23:00.
	ShiftSwing
)

// AllKinds lists the shift kinds in canonical order.
var AllKinds = []ShiftKind{ShiftDay, ShiftNight, ShiftSwing}

var kindHours = [...]struct {
	name  string
	start int
	hours int
}{
	ShiftDay:   {"day", 7, 12},
	ShiftNight: {"night", 19, 12},
	ShiftSwing: {"swing", 11, 12},
}

func (k ShiftKind) valid() bool { return k >= ShiftDay && k <= ShiftSwing }

func (k ShiftKind) String() string {
	if !k.valid() {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindHours[k].name
}

// ParseShiftKind converts the textual shift kind used in roster files.
func ParseShiftKind(s string) (ShiftKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, k := range kindHours {
		if k.name == name {
			return ShiftKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown shift kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k ShiftKind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("invalid shift kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ShiftKind) UnmarshalText(b []byte) error {
	v, err := ParseShiftKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// IsNight reports whether the kind is classified as a night shift.
func (k ShiftKind) IsNight() bool { return k == ShiftNight }

// Span returns the absolute start and end of the shift worked on date d.
func (k ShiftKind) Span(d Date, loc *time.Location) (time.Time, time.Time) {
	h := kindHours[k]
	start := d.At(loc, h.start)
	return start, start.Add(time.Duration(h.hours) * time.Hour)
}

// Transition reports whether moving between kinds a and b crosses the
// day/night boundary and is therefore subject to extended rest.
func Transition(a, b ShiftKind) bool {
	return a.IsNight() != b.IsNight()
}

// Rest returns the time between the end of the earlier and the start of the
// later of two shifts. The result is negative when they overlap.
func Rest(a ShiftKind, da Date, b ShiftKind, db Date, loc *time.Location) time.Duration {
	as, ae := a.Span(da, loc)
	bs, be := b.Span(db, loc)
	if bs.Before(as) {
		return as.Sub(be)
	}
	return bs.Sub(ae)
}

// Overlaps reports whether shift a on da and shift b on db share any time.
func Overlaps(a ShiftKind, da Date, b ShiftKind, db Date, loc *time.Location) bool {
	return Rest(a, da, b, db, loc) < 0
}

// ShiftSpec is one entry of the shift catalog: a kind worked every day of the
// block with its staffing bounds.
type ShiftSpec struct {
	Kind     ShiftKind
	MinStaff int
	// MaxStaff of zero means no maximum.
	MaxStaff int
	// Pod restricts the slot to residents of that pod when set.
	Pod Pod
}

// NewShiftSpec validates the staffing bounds.
func NewShiftSpec(kind ShiftKind, minStaff, maxStaff int, pod Pod) (ShiftSpec, error) {
	s := ShiftSpec{Kind: kind, MinStaff: minStaff, MaxStaff: maxStaff, Pod: pod}
	return s, s.Validate()
}

// Validate rejects negative bounds and a minimum above a configured maximum.
func (s ShiftSpec) Validate() error {
	if !s.Kind.valid() {
		return invalidInput("shift.kind", "unknown shift kind %d", int(s.Kind))
	}
	if s.MinStaff < 0 || s.MaxStaff < 0 {
		return invalidInput("shift.staff", "%s: negative headcount", s.Kind)
	}
	if s.HasMax() && s.MinStaff > s.MaxStaff {
		return invalidInput("shift.staff", "%s: min_staff %d exceeds max_staff %d", s.Kind, s.MinStaff, s.MaxStaff)
	}
	return nil
}

// HasMax reports whether a maximum headcount is configured.
func (s ShiftSpec) HasMax() bool { return s.MaxStaff > 0 }

// Eligible reports whether a resident of pod p counts towards this slot.
func (s ShiftSpec) Eligible(p Pod) bool {
	return s.Pod == "" || s.Pod == p
}

// Slot is one shift spec on one date.
type Slot struct {
	Date Date
	Spec ShiftSpec
}

func (s Slot) String() string {
	if s.Spec.Pod != "" {
		return fmt.Sprintf("%s/%s/%s", s.Date, s.Spec.Kind, s.Spec.Pod)
	}
	return fmt.Sprintf("%s/%s", s.Date, s.Spec.Kind)
}
