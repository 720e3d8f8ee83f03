package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/wordwrap"

	"github.com/hrcal/hrcal/internal/calendar"
)

func (m *Model) renderSidebar(events []calendar.Event) string {
	sections := []string{
		m.renderMiniCalendar(),
		"",
		m.renderLegend(),
	}

	if ev, ok := m.focusedEvent(); ok {
		sections = append(sections, "", m.renderFocusSummary(ev))
	}

	// Today's count uses the same filtered list as the main view
	today := calendar.EventsForDay(events, m.now())
	sections = append(sections, "", m.styles.Muted.Render(fmt.Sprintf("Today: %d event(s)", len(today))))

	return lipgloss.NewStyle().Width(sidebarWidth).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// renderMiniCalendar renders a small calendar for navigation
func (m *Model) renderMiniCalendar() string {
	current := m.state.CurrentDate()
	selected, hasSelected := m.state.SelectedDate()
	today := m.now()

	var lines []string

	// Month/Year header
	lines = append(lines, m.styles.Header.Render(current.Format("January 2006")))

	weeks := calendar.MonthGrid(current, m.config.WeekStartDay)

	// Day headers
	var names []string
	for _, day := range weeks[0] {
		names = append(names, day.Format("Mon")[:2])
	}
	lines = append(lines, strings.Join(names, " "))

	for _, week := range weeks {
		var cells []string
		for _, day := range week {
			dayStr := fmt.Sprintf("%2d", day.Day())

			// Apply styling
			switch {
			case calendar.SameDay(day, current):
				dayStr = m.styles.Selected.Render(dayStr)
			case hasSelected && calendar.SameDay(day, selected):
				dayStr = m.styles.Today.Underline(true).Render(dayStr)
			case day.Month() != current.Month():
				dayStr = m.styles.Muted.Render(dayStr) // Dimmed
			case calendar.SameDay(day, today):
				dayStr = m.styles.Today.Render(dayStr)
			case day.Weekday() == time.Saturday || day.Weekday() == time.Sunday:
				dayStr = m.styles.Weekend.Render(dayStr)
			default:
				dayStr = m.styles.Normal.Render(dayStr)
			}
			cells = append(cells, dayStr)
		}
		lines = append(lines, strings.Join(cells, " "))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// renderLegend lists the categories with their toggle keys.
func (m *Model) renderLegend() string {
	lines := []string{m.styles.Header.Render("Categories")}
	for i, cat := range m.visibility.Categories() {
		mark := m.colorSwatch(cat.Color)
		name := m.styles.Normal.Render(cat.Name)
		if !cat.Active {
			mark = m.styles.Muted.Render("○")
			name = m.styles.Muted.Render(cat.Name)
		}
		key := " "
		if i < 9 {
			key = fmt.Sprintf("%d", i+1)
		}
		lines = append(lines, truncateTail(fmt.Sprintf("%s %s %s", m.styles.Muted.Render(key), mark, name), sidebarWidth))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) renderFocusSummary(ev calendar.Event) string {
	lines := []string{m.styles.Header.Render("Focused")}
	for _, l := range strings.Split(wordwrap.String(ev.Title, sidebarWidth), "\n") {
		lines = append(lines, m.styles.Normal.Render(l))
	}
	lines = append(lines, m.styles.Muted.Render(wordwrap.String(m.formatSpan(ev), sidebarWidth)))
	if ev.Location != "" {
		lines = append(lines, m.styles.Muted.Render(truncateTail("@ "+ev.Location, sidebarWidth)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}
