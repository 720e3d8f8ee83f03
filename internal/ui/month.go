package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/v2"

	"github.com/hrcal/hrcal/internal/calendar"
)

func (m *Model) renderMonth(events []calendar.Event, width, height int) string {
	current := m.state.CurrentDate()
	weeks := calendar.MonthGrid(current, m.config.WeekStartDay)

	cellWidth := width / 7
	if cellWidth < 4 {
		cellWidth = 4
	}
	cellHeight := (height - 1) / len(weeks)
	if cellHeight < 2 {
		cellHeight = 2
	}

	var header []string
	for _, day := range weeks[0] {
		label := truncateTail(day.Format("Mon"), cellWidth-1)
		header = append(header, m.styles.Header.Width(cellWidth).Render(label))
	}

	rows := []string{lipgloss.JoinHorizontal(lipgloss.Top, header...)}
	for _, week := range weeks {
		var cells []string
		for _, day := range week {
			cells = append(cells, m.renderMonthCell(day, events, cellWidth, cellHeight))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}

	return lipgloss.NewStyle().Width(width).MaxHeight(height).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m *Model) renderMonthCell(day time.Time, events []calendar.Event, width, height int) string {
	current := m.state.CurrentDate()
	isCursor := calendar.SameDay(day, current)

	label := fmt.Sprintf("%2d", day.Day())
	if selected, ok := m.state.SelectedDate(); ok && calendar.SameDay(day, selected) {
		label += "*"
	}

	switch {
	case isCursor:
		label = m.styles.Selected.Render(label)
	case calendar.SameDay(day, m.now()):
		label = m.styles.Today.Render(label)
	case day.Month() != current.Month():
		label = m.styles.Muted.Render(label)
	case day.Weekday() == time.Saturday || day.Weekday() == time.Sunday:
		label = m.styles.Weekend.Render(label)
	default:
		label = m.styles.Normal.Render(label)
	}
	lines := []string{label}

	dayEvents := calendar.EventsForDay(events, day)
	room := height - 1
	shown := len(dayEvents)
	if shown > m.config.MaxMonthEvents {
		shown = m.config.MaxMonthEvents
	}
	if shown > room {
		shown = room
	}
	overflow := len(dayEvents) > shown
	if overflow && shown+1 > room && shown > 0 {
		shown--
	}

	var focusID string
	if isCursor {
		if ev, ok := m.focusedEvent(); ok {
			focusID = ev.ID
		}
	}

	for _, ev := range dayEvents[:shown] {
		text := ev.Title
		if !ev.AllDay && calendar.SameDay(ev.Start, day) {
			text = ev.Start.Format(m.config.TimeFormat) + " " + text
		}
		text = truncateTail(text, width-1)

		style := m.eventStyle(ev)
		if ev.ID == focusID {
			style = m.styles.Selected
		}
		lines = append(lines, style.Render(text))
	}
	if overflow {
		more := fmt.Sprintf("+%d more", len(dayEvents)-shown)
		lines = append(lines, m.styles.Muted.Render(truncateTail(more, width-1)))
	}

	return lipgloss.NewStyle().Width(width).Height(height).MaxHeight(height).Render(strings.Join(lines, "\n"))
}
