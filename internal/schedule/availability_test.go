package schedule

import (
	"testing"
	"time"

	"slotnik/internal/models"

	"github.com/stretchr/testify/assert"
)

func mondayWindow() []models.TimeWindow {
	return []models.TimeWindow{
		{Weekday: 1, Start: "09:00", End: "17:00", Active: true},
	}
}

func TestWeekSchedule_IsOpen(t *testing.T) {
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	tuesday := monday.AddDate(0, 0, 1)

	s := NewWeekSchedule(mondayWindow(), nil)
	assert.True(t, s.IsOpen(monday))
	assert.False(t, s.IsOpen(tuesday))
}

func TestWeekSchedule_ExceptionOverridesWindows(t *testing.T) {
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	s := NewWeekSchedule(mondayWindow(), []string{"2025-03-10"})
	assert.False(t, s.IsOpen(monday))
	assert.Empty(t, s.WindowsFor(monday))

	nextMonday := monday.AddDate(0, 0, 7)
	assert.True(t, s.IsOpen(nextMonday))
	assert.Len(t, s.WindowsFor(nextMonday), 1)
}

func TestWeekSchedule_InactiveWindowsIgnored(t *testing.T) {
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	s := NewWeekSchedule([]models.TimeWindow{
		{Weekday: 1, Start: "09:00", End: "17:00", Active: false},
	}, nil)
	assert.False(t, s.IsOpen(monday))
}

func TestWeekSchedule_MultipleWindowsSameDay(t *testing.T) {
	monday := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	s := NewWeekSchedule([]models.TimeWindow{
		{Weekday: 1, Start: "09:00", End: "12:00", Active: true},
		{Weekday: 1, Start: "14:00", End: "18:00", Active: true},
	}, nil)
	assert.Len(t, s.WindowsFor(monday), 2)
}
