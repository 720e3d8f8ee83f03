package source

import (
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/hrcal/hrcal/internal/calendar"
)

const productID = "-//hrcal//hrcal calendar//EN"

// ExportICS writes events as an iCalendar document. Recurring events are
// written once with their rule; expanded occurrences should not be passed.
func ExportICS(w io.Writer, events []calendar.Event, now time.Time) error {
	cal := ical.NewCalendar()
	cal.SetProductId(productID)
	cal.SetMethod(ical.MethodPublish)

	for _, ev := range events {
		if ev.IsOccurrence() {
			continue
		}
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now.UTC())
		ve.SetSummary(ev.Title)

		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Start)
			// Exclusive end date on the wire.
			ve.SetAllDayEndAt(calendar.StartOfDay(ev.End).AddDate(0, 0, 1))
		} else {
			ve.SetStartAt(ev.Start)
			ve.SetEndAt(ev.End)
		}

		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.MeetingURL != "" {
			ve.SetProperty(ical.ComponentPropertyUrl, ev.MeetingURL)
		}
		if ev.Organizer != "" {
			ve.SetOrganizer(mailto(ev.Organizer))
		}
		for _, g := range ev.Guests {
			ve.AddAttendee(g)
		}
		if ev.Type != "" {
			ve.SetProperty(ical.ComponentPropertyCategories, ev.Type)
		}
		if ev.RRule != "" {
			ve.SetProperty(ical.ComponentPropertyRrule, strings.TrimPrefix(ev.RRule, "RRULE:"))
			for _, ex := range ev.ExDates {
				ve.AddProperty(ical.ComponentPropertyExdate, ex.UTC().Format("20060102T150405Z"))
			}
		}
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("write ics: %w", err)
	}
	return nil
}

func mailto(addr string) string {
	if strings.Contains(addr, "@") && !strings.HasPrefix(strings.ToLower(addr), "mailto:") {
		return "mailto:" + addr
	}
	return addr
}
