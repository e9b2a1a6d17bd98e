package model

import (
	"time"
)

// BlockLength is the number of days in a scheduling block.
const BlockLength = 28

// Block is one fixed-length scheduling period. A solve covers exactly one block.
type Block struct {
	Number   int
	Start    Date
	Length   int
	Location *time.Location
}

type blockOptions struct {
	expected int
	loc      *time.Location
}

// BlockOption customises NewBlock.
type BlockOption func(*blockOptions)

// WithExpectedLength overrides the expected block length. Used for short
// fixture blocks.
func WithExpectedLength(days int) BlockOption {
	return func(o *blockOptions) { o.expected = days }
}

// WithLocation sets the time zone used to turn shift times into instants.
func WithLocation(loc *time.Location) BlockOption {
	return func(o *blockOptions) { o.loc = loc }
}

// NewBlock validates and returns a block.
func NewBlock(number int, start Date, length int, opts ...BlockOption) (Block, error) {
	o := blockOptions{expected: BlockLength, loc: time.UTC}
	for _, fn := range opts {
		fn(&o)
	}
	if number < 1 || number > 13 {
		return Block{}, invalidInput("block.number", "block number %d outside 1..13", number)
	}
	if start.IsZero() {
		return Block{}, invalidInput("block.start_date", "missing start date")
	}
	if length != o.expected {
		return Block{}, invalidInput("block.length_days", "block length %d, expected %d", length, o.expected)
	}
	if o.loc == nil {
		o.loc = time.UTC
	}
	return Block{Number: number, Start: start, Length: length, Location: o.loc}, nil
}

// AcademicBlockStart returns the first date of block number in the academic
// year starting 1 July of year.
func AcademicBlockStart(number, year int) Date {
	return NewDate(year, time.July, 1).AddDays((number - 1) * BlockLength)
}

// End returns the last date of the block.
func (b Block) End() Date { return b.Start.AddDays(b.Length - 1) }

// Contains reports whether d is inside the block.
func (b Block) Contains(d Date) bool { return d.Between(b.Start, b.End()) }

// Dates lists every date of the block in order.
func (b Block) Dates() []Date {
	out := make([]Date, b.Length)
	for i := range out {
		out[i] = b.Start.AddDays(i)
	}
	return out
}

// Index returns the zero-based day offset of d inside the block.
func (b Block) Index(d Date) int { return b.Start.DaysUntil(d) }

// Loc returns the block location, defaulting to UTC.
func (b Block) Loc() *time.Location {
	if b.Location == nil {
		return time.UTC
	}
	return b.Location
}

// IsFirst reports whether this is the first block of the academic year.
func (b Block) IsFirst() bool { return b.Number == 1 }
