package source

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/hrcal/hrcal/internal/calendar"
	"github.com/hrcal/hrcal/internal/recurrence"
)

// OccurrenceID is the ID given to one instance of a recurring event.
func OccurrenceID(parentID string, start time.Time) string {
	return parentID + "@" + start.Format(time.RFC3339)
}

// expandEvents turns series masters into the occurrences inside
// [start, end). Plain events pass through when they intersect the range.
// A series whose rule cannot be expanded is shown once at its own start.
func expandEvents(masters []calendar.Event, start, end time.Time, log zerolog.Logger) []calendar.Event {
	var out []calendar.Event
	for _, ev := range masters {
		if ev.RRule == "" {
			if intersects(ev, start, end) {
				out = append(out, ev)
			}
			continue
		}

		occ, truncated, err := recurrence.Expand(ev.Start, ev.End, ev.RRule, recurrence.ExpandConfig{
			RangeStart: start,
			RangeEnd:   end,
			ExDates:    ev.ExDates,
			AllDay:     ev.AllDay,
		})
		if err != nil {
			log.Warn().Err(err).Str("id", ev.ID).Msg("cannot expand recurring event")
			if intersects(ev, start, end) {
				out = append(out, ev)
			}
			continue
		}
		if truncated {
			log.Warn().Str("id", ev.ID).Int("max", recurrence.DefaultMaxOccurrences).Msg("recurrence expansion truncated")
		}

		for _, o := range occ {
			inst := ev.Clone()
			inst.ID = OccurrenceID(ev.ID, o.Start)
			inst.ParentID = ev.ID
			inst.OccurrenceStart = o.Start
			inst.Start = o.Start
			inst.End = o.End
			out = append(out, inst)
		}
	}
	return out
}

// intersects reports whether ev touches [start, end). All-day events carry
// an inclusive end date.
func intersects(ev calendar.Event, start, end time.Time) bool {
	evEnd := ev.End
	if ev.AllDay {
		evEnd = calendar.StartOfDay(ev.End).AddDate(0, 0, 1)
	}
	if evEnd.Equal(ev.Start) {
		return !ev.Start.Before(start) && ev.Start.Before(end)
	}
	return ev.Start.Before(end) && evEnd.After(start)
}
