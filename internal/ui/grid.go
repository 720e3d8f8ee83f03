package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss/v2"

	"github.com/hrcal/hrcal/internal/calendar"
)

const (
	gridHeaderRows  = 2 // day names and the all-day strip
	timeColumnWidth = 6 // "HH:MM "
)

// renderTimeGrid draws the week and day views. Every visible row is one
// slot of 60/rows_per_hour minutes; event blocks are placed with the
// calendar geometry at one row per slot.
func (m *Model) renderTimeGrid(events []calendar.Event, width, height int) string {
	current := m.state.CurrentDate()
	days := calendar.ViewDays(current, m.state.View(), m.config.WeekStartDay)

	dayWidth := (width - timeColumnWidth) / len(days)
	if dayWidth < 3 {
		dayWidth = 3
	}
	rows := height - gridHeaderRows
	if rows < 1 {
		rows = 1
	}

	r := m.rowsPerHour()
	geom := calendar.Geometry{PixelsPerHour: float64(r), MinHeight: 1}

	var layers []*lipgloss.Layer

	// Background sized to the whole area
	blank := strings.TrimSuffix(strings.Repeat(strings.Repeat(" ", width)+"\n", height), "\n")
	layers = append(layers, lipgloss.NewLayer(blank).X(0).Y(0).Z(0))

	layers = append(layers, m.createTimeColumnLayers(rows)...)

	var focusID string
	if ev, ok := m.focusedEvent(); ok {
		focusID = ev.ID
	}

	for d, day := range days {
		x := timeColumnWidth + d*dayWidth
		isCursor := calendar.SameDay(day, current)

		headerStyle := m.styles.Header
		switch {
		case isCursor:
			headerStyle = m.styles.Selected
		case calendar.SameDay(day, m.now()):
			headerStyle = m.styles.Today
		}
		label := truncateTail(day.Format("Mon 02"), dayWidth-1)
		layers = append(layers, lipgloss.NewLayer(headerStyle.Render(label)).X(x).Y(0).Z(1))

		var allDay, timed []calendar.Event
		for _, ev := range calendar.EventsForDay(events, day) {
			if ev.AllDay {
				allDay = append(allDay, ev)
			} else {
				timed = append(timed, ev)
			}
		}

		if len(allDay) > 0 {
			text := allDay[0].Title
			if len(allDay) > 1 {
				text = fmt.Sprintf("%s +%d", text, len(allDay)-1)
			}
			style := m.eventStyle(allDay[0])
			if isCursor && allDay[0].ID == focusID {
				style = m.styles.Selected
			}
			strip := style.Width(dayWidth - 1).Render(truncateTail(text, dayWidth-1))
			layers = append(layers, lipgloss.NewLayer(strip).X(x).Y(1).Z(1))
		}

		if isCursor {
			if row := m.slot - m.topRow; row >= 0 && row < rows {
				cursor := m.styles.Cursor.Render(strings.Repeat(" ", dayWidth-1))
				layers = append(layers, lipgloss.NewLayer(cursor).X(x).Y(gridHeaderRows+row).Z(2))
			}
		}

		layers = append(layers, m.createEventBlockLayers(timed, day, geom, x, dayWidth-1, rows, isCursor, focusID)...)

		if now := m.now(); calendar.SameDay(day, now) {
			row := int(calendar.CurrentTimeOffset(now, float64(r))) - m.topRow
			if row >= 0 && row < rows {
				line := m.styles.Now.Render(strings.Repeat("─", dayWidth-1))
				layers = append(layers, lipgloss.NewLayer(line).X(x).Y(gridHeaderRows+row).Z(30))
			}
		}
	}

	if s, ok := m.drag.Active(); ok {
		if ghost := m.createDragGhostLayer(s, days, geom, dayWidth, rows); ghost != nil {
			layers = append(layers, ghost)
		}
	}

	return lipgloss.NewCanvas(layers...).Render()
}

// createTimeColumnLayers labels each hour and the cursor row.
func (m *Model) createTimeColumnLayers(rows int) []*lipgloss.Layer {
	var layers []*lipgloss.Layer
	r := m.rowsPerHour()
	now := m.now()
	nowRow := m.slotFor(now)

	for i := 0; i < rows; i++ {
		row := m.topRow + i
		if row >= m.totalRows() {
			break
		}

		label := ""
		if row%r == 0 {
			label = fmt.Sprintf("%02d:00", row/r)
		}

		style := m.styles.Muted
		if row == nowRow {
			style = m.styles.Now
		}
		if row == m.slot {
			label = m.slotTime(m.state.CurrentDate()).Format("15:04")
			style = m.styles.Selected
		}

		layer := lipgloss.NewLayer(style.Render(fmt.Sprintf("%-5s", label))).X(0).Y(gridHeaderRows + i).Z(1)
		layers = append(layers, layer)
	}
	return layers
}

// createEventBlockLayers packs the day's timed events into columns and
// places one block per event.
func (m *Model) createEventBlockLayers(timed []calendar.Event, day time.Time, geom calendar.Geometry, x, width, rows int, isCursor bool, focusID string) []*lipgloss.Layer {
	var layers []*lipgloss.Layer

	columns := calendar.GroupOverlapping(timed)
	index := calendar.ColumnIndex(columns)
	colWidth := width
	if len(columns) > 1 {
		colWidth = width / len(columns)
	}
	if colWidth < 1 {
		colWidth = 1
	}

	for _, ev := range timed {
		top, height, ok := m.blockRows(ev, day, geom, rows)
		if !ok {
			continue
		}

		style := m.eventStyle(ev)
		if isCursor && ev.ID == focusID {
			style = m.styles.Selected
		}

		content := truncateTail(ev.Title, colWidth)
		if height > 1 {
			span := ev.Start.Format(m.config.TimeFormat) + "-" + ev.End.Format(m.config.TimeFormat)
			content += "\n" + truncateTail(span, colWidth)
		}
		block := style.Width(colWidth).Height(height).MaxHeight(height).Render(content)

		col := index[ev.ID]
		layer := lipgloss.NewLayer(block).X(x + col*colWidth).Y(gridHeaderRows + top).Z(10 + col)
		layers = append(layers, layer)
	}
	return layers
}

// blockRows converts an event's geometry into visible grid rows.
func (m *Model) blockRows(ev calendar.Event, day time.Time, geom calendar.Geometry, rows int) (int, int, bool) {
	box := geom.Position(ev, day)
	if box.Empty() {
		return 0, 0, false
	}

	top := int(box.Top) - m.topRow
	bottom := int(math.Ceil(box.Top+box.Height)) - m.topRow
	if bottom <= top {
		bottom = top + 1
	}
	if bottom <= 0 || top >= rows {
		return 0, 0, false
	}
	if top < 0 {
		top = 0
	}
	if bottom > rows {
		bottom = rows
	}
	return top, bottom - top, true
}

// createDragGhostLayer previews where the dragged event would land.
func (m *Model) createDragGhostLayer(s calendar.DragSession, days []time.Time, geom calendar.Geometry, dayWidth, rows int) *lipgloss.Layer {
	target := m.dropTarget(s)
	for d, day := range days {
		if !calendar.SameDay(day, target.Day) {
			continue
		}

		ghost := s.Event
		ghost.Start = target.Time()
		ghost.End = ghost.Start.Add(s.OriginalEnd.Sub(s.OriginalStart))

		y, height := 1, 1
		if !ghost.AllDay {
			top, h, ok := m.blockRows(ghost, day, geom, rows)
			if !ok {
				return nil
			}
			y, height = gridHeaderRows+top, h
		}

		width := dayWidth - 1
		block := m.styles.Ghost.Width(width).Height(height).MaxHeight(height).Render(truncateTail("⇢ "+ghost.Title, width))
		return lipgloss.NewLayer(block).X(timeColumnWidth + d*dayWidth).Y(y).Z(50)
	}
	return nil
}
