package schedule

import (
	"sort"
	"time"

	"slotnik/internal/models"
	"slotnik/internal/timeutil"
)

// SlotGenerator enumerates candidate booking start times.
type SlotGenerator struct {
	StepMinutes int
}

func NewSlotGenerator(stepMinutes int) SlotGenerator {
	if stepMinutes <= 0 {
		stepMinutes = models.DefaultSlotStepMinutes
	}
	return SlotGenerator{StepMinutes: stepMinutes}
}

// Generate returns the free start times (minutes from midnight, ascending) for
// a service of the given duration on the given date. Candidates step through
// every open window; a candidate whose interval would not fit the window, or
// overlaps one of the blocking bookings, is dropped. On the current day,
// starts at or before now are dropped as well. A closed or blocked date yields
// an empty result, never an error.
func (g SlotGenerator) Generate(sched *WeekSchedule, date time.Time, durationMin int, booked []models.Booking, now time.Time) []int {
	if durationMin <= 0 {
		return nil
	}

	today := timeutil.SameDay(date, now)
	nowMin := timeutil.MinuteOfDay(now)

	seen := make(map[int]struct{})
	var slots []int

	for _, w := range sched.WindowsFor(date) {
		winStart, err := timeutil.ToMinutes(w.Start)
		if err != nil {
			continue
		}
		winEnd, err := timeutil.ToMinutes(w.End)
		if err != nil || winStart >= winEnd {
			continue
		}

		// Last exact-fit slot is included.
		for start := winStart; start+durationMin <= winEnd; start += g.StepMinutes {
			if today && start <= nowMin {
				continue
			}
			if g.taken(start, durationMin, booked) {
				continue
			}
			if _, dup := seen[start]; dup {
				continue
			}
			seen[start] = struct{}{}
			slots = append(slots, start)
		}
	}

	sort.Ints(slots)
	return slots
}

func (g SlotGenerator) taken(start, durationMin int, booked []models.Booking) bool {
	for i := range booked {
		b := &booked[i]
		if !b.Blocks() {
			continue
		}
		if timeutil.Overlaps(start, durationMin, b.StartMin, b.DurationMin) {
			return true
		}
	}
	return false
}

// FormatSlots renders generated start minutes as "HH:MM" strings.
func FormatSlots(slots []int) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		str, err := timeutil.ToTimeString(s)
		if err != nil {
			continue
		}
		out = append(out, str)
	}
	return out
}
