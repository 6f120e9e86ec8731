// Package timeutil holds the wall-clock arithmetic the scheduling engine is
// built on. All values are local times; minutes are counted from midnight.
package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"slotnik/internal/models"
)

var ErrInvalidTime = errors.New("invalid time value")

// ToMinutes parses "HH:MM" (an optional seconds part is truncated) into
// minutes from midnight.
func ToMinutes(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}

	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidTime, s)
	}

	return hours*60 + minutes, nil
}

// ToTimeString renders minutes from midnight as "HH:MM".
func ToTimeString(minutes int) (string, error) {
	if minutes < 0 || minutes >= models.MinutesPerDay {
		return "", fmt.Errorf("%w: %d minutes", ErrInvalidTime, minutes)
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60), nil
}

// Overlaps reports whether [startA, startA+durA) and [startB, startB+durB)
// share at least one instant. Touching boundaries do not overlap.
func Overlaps(startA, durA, startB, durB int) bool {
	return startA < startB+durB && startB < startA+durA
}

// DateKey renders the calendar-date portion of t.
func DateKey(t time.Time) string {
	return t.Format(models.DateLayout)
}

// ParseDate parses a calendar date in DateLayout form.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return t, nil
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// MinuteOfDay converts a timestamp to minutes elapsed since its midnight.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// Midnight truncates t to the start of its calendar date.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
