package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateArithmeticAcrossMonths(t *testing.T) {
	d := MustParseDate("2024-07-30")
	assert.Equal(t, "2024-08-02", d.AddDays(3).String())
	assert.Equal(t, 3, d.DaysUntil(d.AddDays(3)))
	assert.Equal(t, "2025-03-01", MustParseDate("2025-02-28").AddDays(1).String())
	assert.True(t, d.AddDays(1).Between(d, d.AddDays(2)))
}

func TestDateText(t *testing.T) {
	var d Date
	require.NoError(t, d.UnmarshalText([]byte("2024-12-31")))
	b, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2024-12-31", string(b))
	assert.Error(t, d.UnmarshalText([]byte("31/12/2024")))
}

func TestShiftRestUsesAbsoluteTimes(t *testing.T) {
	d := MustParseDate("2024-07-31")
	// night ends 1 Aug 07:00, day on 2 Aug starts 07:00
	assert.Equal(t, 24*time.Hour, Rest(ShiftNight, d, ShiftDay, d.AddDays(2), time.UTC))
	assert.Equal(t, 48*time.Hour, Rest(ShiftNight, d, ShiftDay, d.AddDays(3), time.UTC))
	// order of arguments does not matter
	assert.Equal(t, 48*time.Hour, Rest(ShiftDay, d.AddDays(3), ShiftNight, d, time.UTC))
	assert.True(t, Overlaps(ShiftNight, d, ShiftSwing, d, time.UTC))
	assert.False(t, Overlaps(ShiftDay, d, ShiftNight, d, time.UTC))
	assert.True(t, Transition(ShiftNight, ShiftSwing))
	assert.False(t, Transition(ShiftDay, ShiftSwing))
}

func TestShiftSpecValidate(t *testing.T) {
	_, err := NewShiftSpec(ShiftDay, 3, 2, "")
	var inv *InvalidInputError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, "shift.staff", inv.Field)

	s, err := NewShiftSpec(ShiftNight, 2, 0, PodPurple)
	require.NoError(t, err)
	assert.False(t, s.HasMax())
	assert.True(t, s.Eligible(PodPurple))
	assert.False(t, s.Eligible(PodOrange))
}

func TestNewResidentRejectsOverlappingTimeOff(t *testing.T) {
	_, err := NewResident(Resident{
		ID:    "r1",
		Level: LevelPGY2,
		TimeOff: []TimeOffWindow{
			{Start: MustParseDate("2024-07-10"), End: MustParseDate("2024-07-12"), Kind: TimeOffPTO},
			{Start: MustParseDate("2024-07-05"), End: MustParseDate("2024-07-10"), Kind: TimeOffRTO},
		},
	})
	var inv *InvalidInputError
	require.True(t, errors.As(err, &inv), "got %v", err)
	assert.Equal(t, "resident.time_off", inv.Field)
}

func TestNewResidentSortsWindows(t *testing.T) {
	r, err := NewResident(Resident{
		ID:    "r1",
		Level: LevelPGY3,
		TimeOff: []TimeOffWindow{
			{Start: MustParseDate("2024-07-20"), End: MustParseDate("2024-07-21"), Kind: TimeOffPTO},
			{Start: MustParseDate("2024-07-02"), End: MustParseDate("2024-07-03"), Kind: TimeOffPTO},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-07-02", r.TimeOff[0].Start.String())
	assert.True(t, r.OnTimeOff(MustParseDate("2024-07-21")))
	assert.False(t, r.OnTimeOff(MustParseDate("2024-07-22")))
}

func TestNewBlockLength(t *testing.T) {
	start := MustParseDate("2024-07-01")
	_, err := NewBlock(1, start, 27)
	var inv *InvalidInputError
	require.True(t, errors.As(err, &inv))

	b, err := NewBlock(1, start, 28)
	require.NoError(t, err)
	assert.Equal(t, "2024-07-28", b.End().String())
	assert.Len(t, b.Dates(), 28)

	short, err := NewBlock(2, start, 4, WithExpectedLength(4))
	require.NoError(t, err)
	assert.Equal(t, 3, short.Index(start.AddDays(3)))

	_, err = NewBlock(14, start, 28)
	assert.Error(t, err)
}

func TestAcademicBlockStart(t *testing.T) {
	assert.Equal(t, "2024-07-01", AcademicBlockStart(1, 2024).String())
	assert.Equal(t, "2024-07-29", AcademicBlockStart(2, 2024).String())
	assert.Equal(t, "2025-06-02", AcademicBlockStart(13, 2024).String())
}

func TestRosterValidation(t *testing.T) {
	_, err := NewRoster([]Resident{{ID: "a", Level: LevelPGY1}, {ID: "a", Level: LevelPGY2}})
	assert.Error(t, err)

	_, err = NewRoster([]Resident{{ID: "a", Level: LevelPGY1, Buddy: "b"}, {ID: "b", Level: LevelPGY2}})
	assert.Error(t, err, "pgy2 cannot be a buddy")

	r, err := NewRoster([]Resident{{ID: "a", Level: LevelPGY1, Buddy: "b"}, {ID: "b", Level: LevelPGY3}})
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
	got, ok := r.Get("a")
	require.True(t, ok)
	assert.Equal(t, "b", got.Buddy)
}

func TestRequiredShiftsProportional(t *testing.T) {
	b, err := NewBlock(3, MustParseDate("2024-08-26"), 28)
	require.NoError(t, err)
	r := Resident{ID: "r", Level: LevelPGY2, BaseShifts: 17}
	assert.Equal(t, 17, RequiredShifts(r, b, DefaultReduction()))

	r.TimeOff = []TimeOffWindow{{Start: b.Start.AddDays(-3), End: b.Start.AddDays(6), Kind: TimeOffPTO}}
	// 7 days inside the block: floor(7*17/28) = 4
	assert.Equal(t, 13, RequiredShifts(r, b, DefaultReduction()))

	r.TimeOff = []TimeOffWindow{{Start: b.Start, End: b.End(), Kind: TimeOffRTO}}
	assert.Equal(t, 0, RequiredShifts(r, b, DefaultReduction()))
}

func TestRequiredShiftsCapped(t *testing.T) {
	b, err := NewBlock(3, MustParseDate("2024-08-26"), 28)
	require.NoError(t, err)
	capped := Reduction{Policy: ReductionCapped, MaxReduction: 5}
	r := Resident{ID: "r", Level: LevelPGY1, BaseShifts: 17,
		TimeOff: []TimeOffWindow{{Start: b.Start, End: b.Start.AddDays(2), Kind: TimeOffPTO}}}
	assert.Equal(t, 14, RequiredShifts(r, b, capped))

	r.TimeOff = []TimeOffWindow{{Start: b.Start, End: b.Start.AddDays(9), Kind: TimeOffPTO}}
	assert.Equal(t, 12, RequiredShifts(r, b, capped))

	r.TimeOff = []TimeOffWindow{{Start: b.Start, End: b.Start.AddDays(9), Kind: TimeOffRTO}}
	assert.Equal(t, 17, RequiredShifts(r, b, capped))
}

func TestScheduleIsTotalFunction(t *testing.T) {
	b, err := NewBlock(1, MustParseDate("2024-07-01"), 28)
	require.NoError(t, err)
	s := NewSchedule(b)
	d := b.Start
	require.NoError(t, s.Assign("r1", d, ShiftDay))
	require.NoError(t, s.Assign("r1", d, ShiftDay))
	assert.Error(t, s.Assign("r1", d, ShiftNight))
	require.NoError(t, s.Assign("r2", d, ShiftDay))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"r1", "r2"}, s.OnSlot(d, ShiftDay))
	k, ok := s.Lookup("r1", d)
	require.True(t, ok)
	assert.Equal(t, ShiftDay, k)
}

func TestCalendarSlots(t *testing.T) {
	b, err := NewBlock(1, MustParseDate("2024-07-01"), 28)
	require.NoError(t, err)
	cal, err := NewCalendar(b, []ShiftSpec{
		{Kind: ShiftNight, MinStaff: 1},
		{Kind: ShiftDay, MinStaff: 1, Pod: PodPurple},
		{Kind: ShiftDay, MinStaff: 1, Pod: PodOrange},
	})
	require.NoError(t, err)
	assert.Equal(t, []ShiftKind{ShiftDay, ShiftNight}, cal.Kinds())
	assert.Len(t, cal.SlotsOn(b.Start), 3)
	assert.Nil(t, cal.SlotsOn(b.End().AddDays(1)))
	assert.Len(t, cal.Slots(), 84)

	_, err = NewCalendar(b, []ShiftSpec{{Kind: ShiftDay}, {Kind: ShiftDay}})
	assert.Error(t, err)
}
