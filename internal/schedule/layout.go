package schedule

import (
	"sort"

	"slotnik/internal/models"
)

// ComputeLayout assigns rendering columns to one day's bookings so that
// overlapping bookings display side by side. The returned slice is aligned
// with the input: layouts[i] describes bookings[i]. Identical input always
// yields identical columns.
func ComputeLayout(bookings []models.Booking) []models.BookingLayout {
	n := len(bookings)
	layouts := make([]models.BookingLayout, n)
	if n == 0 {
		return layouts
	}

	// Order by start, then end, then original position.
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ba, bb := &bookings[order[a]], &bookings[order[b]]
		if ba.StartMin != bb.StartMin {
			return ba.StartMin < bb.StartMin
		}
		return ba.EndMin() < bb.EndMin()
	})

	// Overlap clusters through transitive closure: with intervals in start
	// order a cluster extends as long as the next start is before the
	// furthest end seen so far.
	var clusters [][]int
	var current []int
	maxEnd := 0
	for _, idx := range order {
		b := &bookings[idx]
		if len(current) > 0 && b.StartMin < maxEnd {
			current = append(current, idx)
			if b.EndMin() > maxEnd {
				maxEnd = b.EndMin()
			}
			continue
		}
		if len(current) > 0 {
			clusters = append(clusters, current)
		}
		current = []int{idx}
		maxEnd = b.EndMin()
	}
	clusters = append(clusters, current)

	for _, cluster := range clusters {
		total := maxConcurrent(bookings, cluster)
		width := 100.0 / float64(total)

		// Greedy lane assignment: lowest column whose occupant ended at or
		// before this booking's start.
		var columnEnds []int
		for _, idx := range cluster {
			b := &bookings[idx]
			col := -1
			for c, end := range columnEnds {
				if end <= b.StartMin {
					col = c
					break
				}
			}
			if col == -1 {
				col = len(columnEnds)
				columnEnds = append(columnEnds, 0)
			}
			columnEnds[col] = b.EndMin()

			layouts[idx] = models.BookingLayout{
				BookingID:    b.ID,
				Column:       col,
				TotalColumns: total,
				LeftPct:      float64(col) * width,
				WidthPct:     width,
			}
		}
	}

	return layouts
}

// maxConcurrent sweeps the cluster's start/end events; ends at a timestamp are
// processed before starts at the same timestamp, so touching bookings do not
// count as concurrent.
func maxConcurrent(bookings []models.Booking, cluster []int) int {
	type event struct {
		at    int
		start bool
	}
	events := make([]event, 0, 2*len(cluster))
	for _, idx := range cluster {
		b := &bookings[idx]
		events = append(events, event{b.StartMin, true}, event{b.EndMin(), false})
	}
	sort.Slice(events, func(a, b int) bool {
		if events[a].at != events[b].at {
			return events[a].at < events[b].at
		}
		return !events[a].start && events[b].start
	})

	peak, active := 0, 0
	for _, e := range events {
		if e.start {
			active++
			if active > peak {
				peak = active
			}
		} else {
			active--
		}
	}
	if peak == 0 {
		peak = 1
	}
	return peak
}
