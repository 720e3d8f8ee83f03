package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/wordwrap"

	"github.com/hrcal/hrcal/internal/calendar"
)

// renderAgenda lists the agenda period day by day. Days without events are
// left out.
func (m *Model) renderAgenda(events []calendar.Event, width, height int) string {
	current := m.state.CurrentDate()
	days := calendar.ViewDays(current, calendar.ViewAgenda, m.config.WeekStartDay)

	var focusID string
	if ev, ok := m.focusedEvent(); ok {
		focusID = ev.ID
	}

	var lines []string
	for _, day := range days {
		dayEvents := calendar.EventsForDay(events, day)
		if len(dayEvents) == 0 {
			continue
		}

		style := m.styles.Header
		if calendar.SameDay(day, m.now()) {
			style = m.styles.Today
		}
		lines = append(lines, style.Render(day.Format("Monday, January 2")))

		for _, ev := range dayEvents {
			title := ev.Title
			if calendar.SameDay(day, current) && ev.ID == focusID {
				title = m.styles.Selected.Render(title)
			}
			lines = append(lines, "  "+m.colorSwatch(ev.Color)+" "+m.styles.Muted.Render(padRight(m.agendaTime(ev, day), 13))+title)

			indent := strings.Repeat(" ", 18)
			if ev.Location != "" {
				lines = append(lines, indent+m.styles.Muted.Render("@ "+ev.Location))
			}
			if ev.Description != "" {
				wrapped := wordwrap.String(ev.Description, max(width-len(indent)-1, 10))
				for _, l := range strings.Split(wrapped, "\n") {
					lines = append(lines, indent+l)
				}
			}
		}
		lines = append(lines, "")
	}

	if len(lines) == 0 {
		last := days[len(days)-1]
		lines = append(lines, m.styles.Muted.Render("No events from "+
			days[0].Format(m.config.DateFormat)+" to "+last.Format(m.config.DateFormat)))
	}

	if len(lines) > height {
		lines = lines[:height]
	}
	return lipgloss.NewStyle().Width(width).Height(height).Render(strings.Join(lines, "\n"))
}

// agendaTime is the time column of an agenda row for day.
func (m *Model) agendaTime(ev calendar.Event, day time.Time) string {
	tf := m.config.TimeFormat
	switch {
	case ev.AllDay:
		return "all day"
	case !calendar.SameDay(ev.Start, day) && !calendar.SameDay(ev.End, day):
		return "all day"
	case !calendar.SameDay(ev.Start, day):
		return "until " + ev.End.Format(tf)
	case !calendar.SameDay(ev.End, day):
		return ev.Start.Format(tf) + " on"
	}
	return ev.Start.Format(tf) + "-" + ev.End.Format(tf)
}

func padRight(s string, width int) string {
	if n := lipgloss.Width(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
