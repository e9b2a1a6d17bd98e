package model

import (
	"fmt"
	"strings"
)

// Level is the training level of a resident.
type Level int

const (
	LevelPGY1 Level = iota
	LevelPGY2
	LevelPGY3
	LevelChief
	// LevelTY is a transitional-year intern.
	LevelTY
	LevelFMPGY1
	LevelFMPGY2
	LevelIMPGY1
)

var levelNames = [...]string{
	LevelPGY1:   "pgy1",
	LevelPGY2:   "pgy2",
	LevelPGY3:   "pgy3",
	LevelChief:  "chief",
	LevelTY:     "ty",
	LevelFMPGY1: "fm_pgy1",
	LevelFMPGY2: "fm_pgy2",
	LevelIMPGY1: "im_pgy1",
}

// base and floor shift counts per 28-day block.
var levelShifts = [...][2]int{
	LevelPGY1:   {17, 12},
	LevelPGY2:   {17, 12},
	LevelPGY3:   {16, 11},
	LevelChief:  {15, 10},
	LevelTY:     {10, 10},
	LevelFMPGY1: {13, 13},
	LevelFMPGY2: {10, 10},
	LevelIMPGY1: {12, 12},
}

func (l Level) valid() bool { return l >= LevelPGY1 && l <= LevelIMPGY1 }

func (l Level) String() string {
	if !l.valid() {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel converts the textual level used in roster files.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil
		}
	}
	return 0, fmt.Errorf("unknown training level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if !l.valid() {
		return nil, fmt.Errorf("invalid level %d", int(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// IsFirstYear reports whether residents of this level need supervision.
func (l Level) IsFirstYear() bool {
	switch l {
	case LevelPGY1, LevelTY, LevelFMPGY1, LevelIMPGY1:
		return true
	}
	return false
}

// CanSupervise reports whether residents of this level may supervise first-years.
func (l Level) CanSupervise() bool {
	return l == LevelPGY3 || l == LevelChief
}

// BaseShifts is the default number of shifts owed in a full block.
func (l Level) BaseShifts() int {
	if !l.valid() {
		return 0
	}
	return levelShifts[l][0]
}

// MinimumShifts is the floor applied by the capped time-off policy.
func (l Level) MinimumShifts() int {
	if !l.valid() {
		return 0
	}
	return levelShifts[l][1]
}
