package constraints

import (
	"fmt"
	"strings"
)

// Category identifies a family of rules.
type Category int

const (
	SingleAssignment Category = iota
	RequiredShifts
	TimeOff
	NoTuesdayNight
	ConsecutiveCap
	RestTransition
	MinimumStaffing
	Supervision
	Buddy
	Rotation
	PodBalance
)

// AllCategories lists every category in build order.
var AllCategories = []Category{
	SingleAssignment,
	RequiredShifts,
	TimeOff,
	NoTuesdayNight,
	ConsecutiveCap,
	RestTransition,
	MinimumStaffing,
	Supervision,
	Buddy,
	Rotation,
	PodBalance,
}

var categoryNames = [...]string{
	SingleAssignment: "single-assignment",
	RequiredShifts:   "required-shifts",
	TimeOff:          "time-off",
	NoTuesdayNight:   "no-tuesday-night",
	ConsecutiveCap:   "consecutive-cap",
	RestTransition:   "rest-transition",
	MinimumStaffing:  "minimum-staffing",
	Supervision:      "supervision",
	Buddy:            "buddy",
	Rotation:         "rotation",
	PodBalance:       "pod-balance",
}

func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return fmt.Sprintf("category(%d)", int(c))
	}
	return categoryNames[c]
}

// ParseCategory resolves a category name as used in configuration files.
func ParseCategory(s string) (Category, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range categoryNames {
		if n == name {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown constraint category %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
