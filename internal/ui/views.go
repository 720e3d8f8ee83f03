package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/truncate"

	"github.com/hrcal/hrcal/internal/calendar"
)

// paletteColors maps event colors to terminal colors.
var paletteColors = map[calendar.Color]lipgloss.ANSIColor{
	calendar.ColorSky:     lipgloss.ANSIColor(39),
	calendar.ColorAmber:   lipgloss.ANSIColor(214),
	calendar.ColorViolet:  lipgloss.ANSIColor(135),
	calendar.ColorRose:    lipgloss.ANSIColor(204),
	calendar.ColorEmerald: lipgloss.ANSIColor(42),
	calendar.ColorOrange:  lipgloss.ANSIColor(208),
}

func paletteColor(c calendar.Color) lipgloss.ANSIColor {
	if ansi, ok := paletteColors[c]; ok {
		return ansi
	}
	return lipgloss.ANSIColor(240)
}

func (m *Model) eventStyle(ev calendar.Event) lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(lipgloss.ANSIColor(235)).
		Background(paletteColor(ev.Color))
}

func (m *Model) colorSwatch(c calendar.Color) string {
	return lipgloss.NewStyle().Foreground(paletteColor(c)).Render("●")
}

func truncateTail(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return truncate.StringWithTail(s, uint(width), "…")
}

func (m *Model) viewHelp() string {
	help := []string{
		m.styles.Header.Render("hrcal help"),
		"",
		m.styles.Normal.Render("Navigation:"),
		m.styles.Muted.Render("  h/l ←/→   - Previous/next day"),
		m.styles.Muted.Render("  j/k ↓/↑   - Next/previous slot (week, day) or week (month)"),
		m.styles.Muted.Render("  [ ] < >   - Previous/next period"),
		m.styles.Muted.Render("  t         - Today"),
		m.styles.Muted.Render("  g         - Go to date"),
		m.styles.Muted.Render("  space     - Select the focused day"),
		"",
		m.styles.Normal.Render("Views:"),
		m.styles.Muted.Render("  v         - Cycle views"),
		m.styles.Muted.Render("  M/W/D/A   - Month, week, day, agenda"),
		m.styles.Muted.Render("  1-9       - Toggle a category"),
		"",
		m.styles.Normal.Render("Events:"),
		m.styles.Muted.Render("  tab       - Focus next event of the day"),
		m.styles.Muted.Render("  enter     - Open event (or create one)"),
		m.styles.Muted.Render("  n         - New event"),
		m.styles.Muted.Render("  m         - Move event, then enter to drop"),
		m.styles.Muted.Render("  r         - Refresh"),
		m.styles.Muted.Render("  q         - Quit"),
		"",
		m.styles.Muted.Render("Press any key to return..."),
	}

	return m.styles.Dialog.Render(lipgloss.JoinVertical(lipgloss.Left, help...))
}

// overlay draws box centred over screen.
func (m *Model) overlay(screen, box string) string {
	x := (m.width - lipgloss.Width(box)) / 2
	y := (m.height - lipgloss.Height(box)) / 2
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}

	canvas := lipgloss.NewCanvas(
		lipgloss.NewLayer(screen).X(0).Y(0).Z(0),
		lipgloss.NewLayer(box).X(x).Y(y).Z(100),
	)
	return canvas.Render()
}

func (m *Model) renderHeader() string {
	var tabs []string
	for _, v := range calendar.Views {
		name := strings.ToUpper(string(v[:1])) + string(v[1:])
		if v == m.state.View() {
			tabs = append(tabs, m.styles.Selected.Render(" "+name+" "))
		} else {
			tabs = append(tabs, m.styles.Muted.Render(" "+name+" "))
		}
	}

	left := strings.Join(tabs, "") + "  " +
		m.styles.Header.Render(calendar.PeriodLabel(m.state.CurrentDate(), m.state.View(), m.config.WeekStartDay))

	right := ""
	if !m.editable() {
		right = m.styles.Muted.Render("[read-only] ")
	}

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m *Model) renderStatusBar() string {
	current := m.state.CurrentDate()
	left := fmt.Sprintf(" %s | Events: %d",
		current.Format(m.config.DateFormat),
		len(calendar.EventsForDay(m.visibility.Filter(m.events), current)))

	right := "? for help | q to quit"
	if s, ok := m.drag.Active(); ok {
		right = "Moving " + s.Event.Title + " | enter drop | esc cancel"
	}
	if m.message != "" {
		right = m.styles.Message.Render(m.message)
	}

	width := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if width < 0 {
		width = 0
	}

	middle := strings.Repeat(" ", width)

	return m.styles.Muted.Render(left + middle + right)
}
