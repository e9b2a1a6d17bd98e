package model

// Calendar combines a block with the shift catalog and yields its slots.
type Calendar struct {
	Block   Block
	Catalog []ShiftSpec
}

// NewCalendar validates the catalog against the block.
func NewCalendar(b Block, catalog []ShiftSpec) (Calendar, error) {
	if len(catalog) == 0 {
		return Calendar{}, invalidInput("shifts", "empty shift catalog")
	}
	type key struct {
		kind ShiftKind
		pod  Pod
	}
	seen := make(map[key]bool, len(catalog))
	for _, s := range catalog {
		if err := s.Validate(); err != nil {
			return Calendar{}, err
		}
		k := key{s.Kind, s.Pod}
		if seen[k] {
			return Calendar{}, invalidInput("shifts", "duplicate catalog entry %s/%s", s.Kind, s.Pod)
		}
		seen[k] = true
	}
	cat := make([]ShiftSpec, len(catalog))
	copy(cat, catalog)
	return Calendar{Block: b, Catalog: cat}, nil
}

// Kinds returns the distinct shift kinds in the catalog in canonical order.
func (c Calendar) Kinds() []ShiftKind {
	var out []ShiftKind
	for _, k := range AllKinds {
		for _, s := range c.Catalog {
			if s.Kind == k {
				out = append(out, k)
				break
			}
		}
	}
	return out
}

// SlotsOn returns the shift slots active on d.
func (c Calendar) SlotsOn(d Date) []Slot {
	if !c.Block.Contains(d) {
		return nil
	}
	out := make([]Slot, 0, len(c.Catalog))
	for _, s := range c.Catalog {
		out = append(out, Slot{Date: d, Spec: s})
	}
	return out
}

// Slots returns every slot of the block, date-major.
func (c Calendar) Slots() []Slot {
	out := make([]Slot, 0, c.Block.Length*len(c.Catalog))
	for _, d := range c.Block.Dates() {
		out = append(out, c.SlotsOn(d)...)
	}
	return out
}

// PriorAssignment is a shift worked at the end of the previous block. It is
// carried in so rest and consecutive-shift rules hold across the boundary.
type PriorAssignment struct {
	ResidentID string
	Date       Date
	Kind       ShiftKind
	Pod        Pod
}
