package model

import "fmt"

// ReductionPolicy names how time off reduces the number of shifts owed.
type ReductionPolicy string

const (
	// ReductionProportional removes floor(unavailable*base/length) shifts.
	ReductionProportional ReductionPolicy = "proportional"
	// ReductionCapped removes one shift per PTO day up to a cap and never goes
	// below the level minimum.
	ReductionCapped ReductionPolicy = "capped"
)

// Reduction configures RequiredShifts.
type Reduction struct {
	Policy       ReductionPolicy `json:"policy" yaml:"policy"`
	MaxReduction int             `json:"max_reduction" yaml:"max_reduction"`
}

// DefaultReduction is the proportional policy; MaxReduction only applies to
// the capped policy.
func DefaultReduction() Reduction {
	return Reduction{Policy: ReductionProportional, MaxReduction: 5}
}

// Validate checks the policy name.
func (r Reduction) Validate() error {
	switch r.Policy {
	case ReductionProportional, ReductionCapped:
	default:
		return fmt.Errorf("unknown reduction policy %q", r.Policy)
	}
	if r.MaxReduction < 0 {
		return fmt.Errorf("max_reduction must not be negative")
	}
	return nil
}

// RequiredShifts returns the number of shifts res must work in b.
func RequiredShifts(res Resident, b Block, red Reduction) int {
	base := res.BaseShifts
	if base <= 0 || b.Length <= 0 {
		return 0
	}
	switch red.Policy {
	case ReductionCapped:
		pto := res.TimeOffDaysIn(b, TimeOffPTO)
		cut := pto
		if cut > red.MaxReduction {
			cut = red.MaxReduction
		}
		floor := res.Level.MinimumShifts()
		if floor > base {
			floor = base
		}
		req := base - cut
		if req < floor {
			req = floor
		}
		return req
	default:
		off := res.UnavailableDaysIn(b)
		return base - off*base/b.Length
	}
}
