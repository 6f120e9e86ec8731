package schedule

import (
	"fmt"
	"testing"
	"time"

	"slotnik/internal/models"

	"github.com/stretchr/testify/assert"
)

var monday = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

// farAway keeps "today" filtering out of tests that don't exercise it.
var farAway = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

func TestGenerate_FullDay(t *testing.T) {
	s := NewWeekSchedule(mondayWindow(), nil)
	g := NewSlotGenerator(30)

	slots := g.Generate(s, monday, 60, nil, farAway)

	// 09:00 through 16:00 inclusive, every 30 minutes.
	assert.Len(t, slots, 15)
	formatted := FormatSlots(slots)
	assert.Equal(t, "09:00", formatted[0])
	assert.Equal(t, "16:00", formatted[len(formatted)-1])
}

func TestGenerate_ExistingBookingRemovesSlots(t *testing.T) {
	s := NewWeekSchedule(mondayWindow(), nil)
	g := NewSlotGenerator(30)

	booked := []models.Booking{
		{StartMin: 600, DurationMin: 60, Status: models.StatusConfirmed}, // 10:00-11:00
	}

	slots := FormatSlots(g.Generate(s, monday, 60, booked, farAway))

	assert.NotContains(t, slots, "09:30") // would run into 10:00
	assert.NotContains(t, slots, "10:00")
	assert.NotContains(t, slots, "10:30")
	assert.Contains(t, slots, "09:00") // ends exactly at 10:00, no overlap
	assert.Contains(t, slots, "11:00") // starts exactly at booking end
}

func TestGenerate_NonBlockingStatusesIgnored(t *testing.T) {
	s := NewWeekSchedule(mondayWindow(), nil)
	g := NewSlotGenerator(30)

	booked := []models.Booking{
		{StartMin: 600, DurationMin: 60, Status: models.StatusCancelled},
		{StartMin: 720, DurationMin: 60, Status: models.StatusDeclined},
	}

	slots := FormatSlots(g.Generate(s, monday, 60, booked, farAway))
	assert.Contains(t, slots, "10:00")
	assert.Contains(t, slots, "12:00")
}

func TestGenerate_ExceptionDate(t *testing.T) {
	s := NewWeekSchedule(mondayWindow(), []string{"2025-03-10"})
	g := NewSlotGenerator(30)

	assert.Empty(t, g.Generate(s, monday, 60, nil, farAway))
}

func TestGenerate_DurationLongerThanWindow(t *testing.T) {
	s := NewWeekSchedule([]models.TimeWindow{
		{Weekday: 1, Start: "09:00", End: "10:00", Active: true},
	}, nil)
	g := NewSlotGenerator(15)

	assert.Empty(t, g.Generate(s, monday, 90, nil, farAway))

	// Exact fit still produces the single slot.
	exact := g.Generate(s, monday, 60, nil, farAway)
	assert.Equal(t, []int{540}, exact)
}

func TestGenerate_ClosedDay(t *testing.T) {
	s := NewWeekSchedule(mondayWindow(), nil)
	g := NewSlotGenerator(15)

	tuesday := monday.AddDate(0, 0, 1)
	assert.Empty(t, g.Generate(s, tuesday, 60, nil, farAway))
}

func TestGenerate_TodayDropsPastStarts(t *testing.T) {
	s := NewWeekSchedule(mondayWindow(), nil)
	g := NewSlotGenerator(30)

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	slots := FormatSlots(g.Generate(s, monday, 60, nil, now))

	assert.NotContains(t, slots, "11:30")
	assert.NotContains(t, slots, "12:00") // start equal to now is dropped too
	assert.Contains(t, slots, "12:30")
}

func TestGenerate_MultiWindowUnionSorted(t *testing.T) {
	s := NewWeekSchedule([]models.TimeWindow{
		{Weekday: 1, Start: "14:00", End: "16:00", Active: true},
		{Weekday: 1, Start: "09:00", End: "11:00", Active: true},
	}, nil)
	g := NewSlotGenerator(60)

	slots := FormatSlots(g.Generate(s, monday, 60, nil, farAway))
	assert.Equal(t, []string{"09:00", "10:00", "14:00", "15:00"}, slots)
}

func TestGenerate_SlotsAlwaysFitAndNeverConflict(t *testing.T) {
	s := NewWeekSchedule(mondayWindow(), nil)
	g := NewSlotGenerator(15)

	booked := []models.Booking{
		{StartMin: 570, DurationMin: 45, Status: models.StatusPending},
		{StartMin: 780, DurationMin: 90, Status: models.StatusConfirmed},
	}

	for _, dur := range []int{15, 30, 45, 60} {
		for _, start := range g.Generate(s, monday, dur, booked, farAway) {
			assert.LessOrEqual(t, start+dur, 17*60, fmt.Sprintf("dur=%d start=%d", dur, start))
			for _, b := range booked {
				assert.False(t, start < b.EndMin() && b.StartMin < start+dur,
					fmt.Sprintf("dur=%d start=%d conflicts with %d", dur, start, b.StartMin))
			}
		}
	}
}
