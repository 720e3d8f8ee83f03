package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// View is the active calendar layout. It also fixes the navigation step.
type View string

const (
	ViewMonth  View = "month"
	ViewWeek   View = "week"
	ViewDay    View = "day"
	ViewAgenda View = "agenda"
)

// Views lists the modes in the order the UI cycles through them.
var Views = []View{ViewMonth, ViewWeek, ViewDay, ViewAgenda}

// AgendaDays is the length of the agenda period.
const AgendaDays = 7

// ParseView accepts a view name case-insensitively.
func ParseView(s string) (View, error) {
	v := View(strings.ToLower(strings.TrimSpace(s)))
	if !v.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidView, s)
	}
	return v, nil
}

// Valid reports whether v is one of the four modes.
func (v View) Valid() bool {
	switch v {
	case ViewMonth, ViewWeek, ViewDay, ViewAgenda:
		return true
	}
	return false
}

// StartOfDay truncates t to local midnight in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay compares calendar dates, ignoring the clock.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StartOfWeek returns midnight of the first day of t's week.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(weekStart) + 7) % 7
	return StartOfDay(t).AddDate(0, 0, -offset)
}

// AddMonths moves t by n calendar months, clamping the day to the last day
// of the target month (Jan 31 + 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := daysIn(first.Year(), first.Month())
	if d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NextPeriod advances date by one unit of view. Agenda steps by a week.
func NextPeriod(date time.Time, view View) time.Time {
	return shift(date, view, 1)
}

// PreviousPeriod moves date back by one unit of view.
func PreviousPeriod(date time.Time, view View) time.Time {
	return shift(date, view, -1)
}

func shift(date time.Time, view View, dir int) time.Time {
	switch view {
	case ViewMonth:
		return AddMonths(date, dir)
	case ViewWeek, ViewAgenda:
		return date.AddDate(0, 0, 7*dir)
	case ViewDay:
		return date.AddDate(0, 0, dir)
	}
	return date
}

// ViewDays enumerates the days a view displays for the given focus date.
// Month views are padded with neighbouring days to whole weeks.
func ViewDays(date time.Time, view View, weekStart time.Weekday) []time.Time {
	var start time.Time
	var n int

	switch view {
	case ViewMonth:
		first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
		last := first.AddDate(0, 1, -1)
		start = StartOfWeek(first, weekStart)
		end := StartOfWeek(last, weekStart).AddDate(0, 0, 6)
		n = daysBetween(start, end) + 1
	case ViewWeek:
		start = StartOfWeek(date, weekStart)
		n = 7
	case ViewAgenda:
		start = StartOfDay(date)
		n = AgendaDays
	default:
		start = StartOfDay(date)
		n = 1
	}

	days := make([]time.Time, n)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// MonthGrid chunks the month view's days into weeks.
func MonthGrid(date time.Time, weekStart time.Weekday) [][]time.Time {
	days := ViewDays(date, ViewMonth, weekStart)
	weeks := make([][]time.Time, 0, len(days)/7)
	for i := 0; i+7 <= len(days); i += 7 {
		weeks = append(weeks, days[i:i+7])
	}
	return weeks
}

// ViewRange returns [start, end) covering every day of the view.
func ViewRange(date time.Time, view View, weekStart time.Weekday) (time.Time, time.Time) {
	days := ViewDays(date, view, weekStart)
	return days[0], days[len(days)-1].AddDate(0, 0, 1)
}

// daysBetween counts calendar days, immune to DST-length days.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// OccursOnDay reports whether ev should be shown on day: the day is its start
// day, its end day, or lies inside [start, end]. A timed event that ends
// exactly at midnight does not reach into the next day.
func OccursOnDay(ev Event, day time.Time) bool {
	dayStart := StartOfDay(day)

	if ev.AllDay {
		first := StartOfDay(ev.Start)
		last := StartOfDay(ev.End)
		return !dayStart.Before(first) && !dayStart.After(last)
	}

	end := ev.End
	if end.After(ev.Start) && end.Equal(StartOfDay(end)) {
		end = end.Add(-time.Nanosecond)
	}

	if SameDay(ev.Start, dayStart) || SameDay(end, dayStart) {
		return true
	}
	return !dayStart.Before(ev.Start) && !dayStart.After(end)
}

// EventsForDay returns the events shown on day, all-day entries first and
// the rest by start time.
func EventsForDay(events []Event, day time.Time) []Event {
	var out []Event
	for _, ev := range events {
		if OccursOnDay(ev, day) {
			out = append(out, ev)
		}
	}
	SortEvents(out)
	return out
}

// SortEvents orders events for display: all-day first, then by start, title
// and finally ID for stability.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
}

// PeriodLabel is the heading shown for the current period of a view.
func PeriodLabel(date time.Time, view View, weekStart time.Weekday) string {
	switch view {
	case ViewMonth:
		return date.Format("January 2006")
	case ViewWeek, ViewAgenda:
		days := ViewDays(date, view, weekStart)
		first, last := days[0], days[len(days)-1]
		if first.Month() == last.Month() {
			return fmt.Sprintf("%s %d - %d, %d", first.Format("Jan"), first.Day(), last.Day(), last.Year())
		}
		if first.Year() == last.Year() {
			return fmt.Sprintf("%s - %s", first.Format("Jan 2"), last.Format("Jan 2, 2006"))
		}
		return fmt.Sprintf("%s - %s", first.Format("Jan 2, 2006"), last.Format("Jan 2, 2006"))
	default:
		return date.Format("Monday, January 2, 2006")
	}
}
