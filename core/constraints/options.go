package constraints

import (
	"fmt"
	"slices"

	"github.com/kilianp07/resident-scheduler/core/model"
)

// PodCapOptions bounds how many residents of one pod work the same slot.
type PodCapOptions struct {
	FirstBlock int `json:"first_block" yaml:"first_block"`
	Default    int `json:"default" yaml:"default"`
	// Swing caps swing slots separately; the lower of the two caps applies.
	Swing  int  `json:"swing" yaml:"swing"`
	Soft   bool `json:"soft" yaml:"soft"`
	Weight int  `json:"weight" yaml:"weight"`
}

// SupervisionOptions configures which slots need a senior on shift.
type SupervisionOptions struct {
	ExemptKinds []string `json:"exempt_kinds" yaml:"exempt_kinds"`
	// SamePod requires the supervising senior to belong to the first-year's pod.
	SamePod bool `json:"same_pod" yaml:"same_pod"`
}

// Options tunes the rule set. The zero value is not usable; start from
// DefaultOptions.
type Options struct {
	Disabled              []string           `json:"disabled" yaml:"disabled"`
	RestSamePodHours      int                `json:"rest_same_pod_hours" yaml:"rest_same_pod_hours"`
	RestCrossPodHours     int                `json:"rest_cross_pod_hours" yaml:"rest_cross_pod_hours"`
	MaxConsecutive        int                `json:"max_consecutive" yaml:"max_consecutive"`
	ConsecutiveWindowDays int                `json:"consecutive_window_days" yaml:"consecutive_window_days"`
	PodCap                PodCapOptions      `json:"pod_cap" yaml:"pod_cap"`
	Supervision           SupervisionOptions `json:"supervision" yaml:"supervision"`
	BuddyBlocks           []int              `json:"buddy_blocks" yaml:"buddy_blocks"`
	Reduction             model.Reduction    `json:"reduction" yaml:"reduction"`
}

// DefaultOptions returns the department's standing rules.
func DefaultOptions() Options {
	return Options{
		RestSamePodHours:      48,
		RestCrossPodHours:     72,
		MaxConsecutive:        6,
		ConsecutiveWindowDays: 7,
		PodCap:                PodCapOptions{FirstBlock: 4, Default: 3, Swing: 1, Weight: 10},
		BuddyBlocks:           []int{1},
		Reduction:             model.DefaultReduction(),
	}
}

// SetDefaults fills unset numeric fields.
func (o *Options) SetDefaults() {
	d := DefaultOptions()
	if o.RestSamePodHours == 0 {
		o.RestSamePodHours = d.RestSamePodHours
	}
	if o.RestCrossPodHours == 0 {
		o.RestCrossPodHours = d.RestCrossPodHours
	}
	if o.MaxConsecutive == 0 {
		o.MaxConsecutive = d.MaxConsecutive
	}
	if o.ConsecutiveWindowDays == 0 {
		o.ConsecutiveWindowDays = d.ConsecutiveWindowDays
	}
	if o.PodCap.FirstBlock == 0 {
		o.PodCap.FirstBlock = d.PodCap.FirstBlock
	}
	if o.PodCap.Default == 0 {
		o.PodCap.Default = d.PodCap.Default
	}
	if o.PodCap.Swing == 0 {
		o.PodCap.Swing = d.PodCap.Swing
	}
	if o.PodCap.Weight == 0 {
		o.PodCap.Weight = d.PodCap.Weight
	}
	if o.BuddyBlocks == nil {
		o.BuddyBlocks = d.BuddyBlocks
	}
	if o.Reduction.Policy == "" {
		o.Reduction.Policy = d.Reduction.Policy
	}
	if o.Reduction.MaxReduction == 0 {
		o.Reduction.MaxReduction = d.Reduction.MaxReduction
	}
}

// Validate reports unknown category names and out-of-range parameters.
func (o Options) Validate() error {
	for _, name := range o.Disabled {
		c, err := ParseCategory(name)
		if err != nil {
			return model.NewInvalidInput("constraints.disabled", "%v", err)
		}
		if c == SingleAssignment {
			return model.NewInvalidInput("constraints.disabled", "%s cannot be disabled", c)
		}
	}
	for _, k := range o.Supervision.ExemptKinds {
		if _, err := model.ParseShiftKind(k); err != nil {
			return model.NewInvalidInput("constraints.supervision.exempt_kinds", "%v", err)
		}
	}
	switch {
	case o.RestSamePodHours < 0 || o.RestCrossPodHours < 0:
		return model.NewInvalidInput("constraints.rest", "negative rest threshold")
	case o.MaxConsecutive < 1:
		return model.NewInvalidInput("constraints.max_consecutive", "must be at least 1, got %d", o.MaxConsecutive)
	case o.ConsecutiveWindowDays <= o.MaxConsecutive:
		return model.NewInvalidInput("constraints.consecutive_window_days",
			"window %d must exceed max_consecutive %d", o.ConsecutiveWindowDays, o.MaxConsecutive)
	case o.PodCap.FirstBlock < 0 || o.PodCap.Default < 0 || o.PodCap.Swing < 0:
		return model.NewInvalidInput("constraints.pod_cap", "negative cap")
	case o.PodCap.Soft && o.PodCap.Weight <= 0:
		return model.NewInvalidInput("constraints.pod_cap.weight", "soft cap needs a positive weight")
	}
	if err := o.Reduction.Validate(); err != nil {
		return err
	}
	return nil
}

// Enabled reports whether category c takes part in the build.
func (o Options) Enabled(c Category) bool {
	for _, name := range o.Disabled {
		if d, err := ParseCategory(name); err == nil && d == c {
			return false
		}
	}
	return true
}

// DisabledCategories returns the parsed disabled set in build order.
func (o Options) DisabledCategories() []Category {
	var out []Category
	for _, c := range AllCategories {
		if !o.Enabled(c) {
			out = append(out, c)
		}
	}
	return out
}

// Without returns a copy of o with c additionally disabled.
func (o Options) Without(c Category) Options {
	cp := o
	cp.Disabled = append(slices.Clone(o.Disabled), c.String())
	return cp
}

// Exempt reports whether kind k needs no senior supervision.
func (o Options) Exempt(k model.ShiftKind) bool {
	for _, name := range o.Supervision.ExemptKinds {
		if kk, err := model.ParseShiftKind(name); err == nil && kk == k {
			return true
		}
	}
	return false
}

// BuddyBlock reports whether the buddy system applies to block number.
func (o Options) BuddyBlock(number int) bool {
	return slices.Contains(o.BuddyBlocks, number)
}

// PodCapFor returns the per-pod cap that applies to kind k in b.
func (o Options) PodCapFor(b model.Block, k model.ShiftKind) int {
	limit := o.PodCap.Default
	if b.IsFirst() {
		limit = o.PodCap.FirstBlock
	}
	if k == model.ShiftSwing && o.PodCap.Swing > 0 && o.PodCap.Swing < limit {
		limit = o.PodCap.Swing
	}
	return limit
}

func (c PodCapOptions) String() string {
	return fmt.Sprintf("first=%d default=%d swing=%d soft=%v", c.FirstBlock, c.Default, c.Swing, c.Soft)
}
