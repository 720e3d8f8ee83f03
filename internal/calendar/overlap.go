package calendar

import "sort"

// GroupOverlapping packs events into columns. Events are taken in start
// order and each one goes into the first column where it overlaps nothing
// already placed. This is first-fit, not a minimum-column colouring.
func GroupOverlapping(events []Event) [][]Event {
	sorted := make([]Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return sorted[i].End.After(sorted[j].End)
	})

	var columns [][]Event
	for _, ev := range sorted {
		placed := false
		for i, col := range columns {
			if !overlapsAny(ev, col) {
				columns[i] = append(col, ev)
				placed = true
				break
			}
		}
		if !placed {
			columns = append(columns, []Event{ev})
		}
	}
	return columns
}

func overlapsAny(ev Event, col []Event) bool {
	for _, other := range col {
		if ev.Overlaps(other) {
			return true
		}
	}
	return false
}

// ColumnIndex maps event IDs to their column in a packing.
func ColumnIndex(columns [][]Event) map[string]int {
	idx := make(map[string]int)
	for i, col := range columns {
		for _, ev := range col {
			idx[ev.ID] = i
		}
	}
	return idx
}
