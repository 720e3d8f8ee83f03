// Package calendar holds the event model and the view-state logic of the
// calendar: period navigation, day membership, time-grid geometry, overlap
// packing, category visibility, drag coordination and dialog routing.
//
// Everything here is pure or owned by an explicit container value, so several
// calendars can live side by side without sharing state.
package calendar

import (
	"strings"
	"time"

	"github.com/hrcal/hrcal/internal/recurrence"
)

// Color is one entry of the fixed event palette.
type Color string

const (
	ColorSky     Color = "sky"
	ColorAmber   Color = "amber"
	ColorViolet  Color = "violet"
	ColorRose    Color = "rose"
	ColorEmerald Color = "emerald"
	ColorOrange  Color = "orange"
)

// Palette lists the supported colors in display order.
var Palette = []Color{ColorSky, ColorAmber, ColorViolet, ColorRose, ColorEmerald, ColorOrange}

// Valid reports whether c belongs to the palette.
func (c Color) Valid() bool {
	for _, p := range Palette {
		if p == c {
			return true
		}
	}
	return false
}

// Type labels used by the HR feeds. Types are free text; these are the ones
// that carry routing meaning.
const (
	TypeInternal       = "Internal"
	TypeWFH            = "WFH"
	TypeLeave          = "Cuti"
	TypeEvent          = "Event"
	TypePerformance    = "301Meeting"
	TypeCompanyHoliday = "CompanyHoliday"
	TypeHoliday        = "holiday"
)

// ID prefixes that mark the record an event was derived from.
const (
	LeavePrefix       = "leave-"
	PerformancePrefix = "perf-"
)

// RSVPStatus is the attendee response stored on meeting events.
type RSVPStatus string

const (
	RSVPNeedsAction RSVPStatus = "needs-action"
	RSVPAccepted    RSVPStatus = "accepted"
	RSVPTentative   RSVPStatus = "tentative"
	RSVPDeclined    RSVPStatus = "declined"
)

// Next cycles through the responses in the order the meeting dialog offers
// them.
func (s RSVPStatus) Next() RSVPStatus {
	switch s {
	case RSVPAccepted:
		return RSVPTentative
	case RSVPTentative:
		return RSVPDeclined
	default:
		return RSVPAccepted
	}
}

// Event is a single calendar entry as handed over by the host.
type Event struct {
	ID     string
	Title  string
	Start  time.Time
	End    time.Time
	AllDay bool

	Color Color
	Type  string

	Description string
	Location    string
	MeetingURL  string
	Organizer   string
	ExternalID  string // set for events owned by an external calendar
	EmployeeID  string
	Guests      []string
	Reminders   []int // minutes before start
	RSVP        RSVPStatus

	Recurring       bool
	RRule           string
	Recurrence      *recurrence.Pattern
	ExDates         []time.Time
	ParentID        string // set on expanded occurrences
	OccurrenceStart time.Time

	Origin Origin
}

// Duration returns End - Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// IsExternal reports whether the event is owned by an external calendar.
func (e Event) IsExternal() bool {
	return strings.TrimSpace(e.ExternalID) != ""
}

// IsOccurrence reports whether the event is an expanded instance of a
// recurring parent.
func (e Event) IsOccurrence() bool {
	return e.ParentID != ""
}

// Overlaps reports whether two timed events share any instant. Touching
// intervals (a.End == b.Start) do not overlap.
func (e Event) Overlaps(o Event) bool {
	return e.Start.Before(o.End) && o.Start.Before(e.End)
}

// Normalize enforces End >= Start and date-only bounds for all-day events.
func (e Event) Normalize() Event {
	if e.End.Before(e.Start) {
		e.Start, e.End = e.End, e.Start
	}
	if e.AllDay {
		e.Start = StartOfDay(e.Start)
		e.End = StartOfDay(e.End)
	}
	if e.RRule != "" {
		e.Recurring = true
	}
	if !e.Color.Valid() {
		e.Color = ColorForType(e.Type)
	}
	return e
}

// Clone returns a deep copy so renderers can hand events to dialogs without
// aliasing slices owned by the host.
func (e Event) Clone() Event {
	out := e
	if e.Guests != nil {
		out.Guests = append([]string(nil), e.Guests...)
	}
	if e.Reminders != nil {
		out.Reminders = append([]int(nil), e.Reminders...)
	}
	if e.ExDates != nil {
		out.ExDates = append([]time.Time(nil), e.ExDates...)
	}
	if e.Recurrence != nil {
		p := e.Recurrence.Clone()
		out.Recurrence = &p
	}
	return out
}

// ColorForType is the palette entry used for an event that arrives without
// a color.
func ColorForType(eventType string) Color {
	switch eventType {
	case TypeInternal:
		return ColorSky
	case TypeWFH:
		return ColorAmber
	case TypeLeave:
		return ColorViolet
	case TypeHoliday, TypeCompanyHoliday:
		return ColorRose
	case TypePerformance:
		return ColorEmerald
	default:
		return ColorOrange
	}
}

// Category groups events by color for the visibility legend.
type Category struct {
	ID     string
	Name   string
	Color  Color
	Active bool
}

// DefaultCategories is used when the host does not supply any.
func DefaultCategories() []Category {
	return []Category{
		{ID: "internal", Name: "Internal", Color: ColorSky, Active: true},
		{ID: "wfh", Name: "Work from home", Color: ColorAmber, Active: true},
		{ID: "leave", Name: "Leave", Color: ColorViolet, Active: true},
		{ID: "holiday", Name: "Holiday", Color: ColorRose, Active: true},
		{ID: "performance", Name: "Performance", Color: ColorEmerald, Active: true},
		{ID: "event", Name: "Event", Color: ColorOrange, Active: true},
	}
}

// Ingest normalizes events received from the host and resolves each one's
// origin once, so routing never has to re-inspect IDs or type labels.
func Ingest(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		ev = ev.Normalize()
		ev.Origin = ClassifyOrigin(ev)
		out = append(out, ev)
	}
	return out
}
