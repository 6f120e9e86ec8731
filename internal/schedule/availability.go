// Package schedule implements recurring weekly availability, free-slot
// generation and the day-calendar overlap layout.
package schedule

import (
	"time"

	"slotnik/internal/models"
)

// WeekSchedule answers open/closed questions for calendar dates from a set of
// recurring weekly windows and fully blocked exception dates. An exception
// date overrides the weekday windows entirely.
type WeekSchedule struct {
	windows    map[time.Weekday][]models.TimeWindow
	exceptions map[string]struct{}
}

func NewWeekSchedule(windows []models.TimeWindow, exceptions []string) *WeekSchedule {
	s := &WeekSchedule{
		windows:    make(map[time.Weekday][]models.TimeWindow),
		exceptions: make(map[string]struct{}, len(exceptions)),
	}
	for _, w := range windows {
		if !w.Active {
			continue
		}
		wd := time.Weekday(w.Weekday)
		s.windows[wd] = append(s.windows[wd], w)
	}
	for _, d := range exceptions {
		s.exceptions[d] = struct{}{}
	}
	return s
}

// IsOpen reports whether the business accepts bookings on the given date.
func (s *WeekSchedule) IsOpen(date time.Time) bool {
	if s.isException(date) {
		return false
	}
	return len(s.windows[date.Weekday()]) > 0
}

// WindowsFor returns the active windows applying to the date, empty when the
// date is blocked by an exception.
func (s *WeekSchedule) WindowsFor(date time.Time) []models.TimeWindow {
	if s.isException(date) {
		return nil
	}
	return s.windows[date.Weekday()]
}

func (s *WeekSchedule) isException(date time.Time) bool {
	_, blocked := s.exceptions[date.Format(models.DateLayout)]
	return blocked
}
