package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hrcal/hrcal/internal/calendar"
)

// startDrag picks up the focused event. The cursor then moves the drop
// slot until enter drops it or esc puts it back.
func (m *Model) startDrag() tea.Cmd {
	ev, ok := m.focusedEvent()
	if !ok {
		return m.showMessage("No event to move")
	}
	if !calendar.RouteEvent(ev, m.readOnlyFor(ev)).Editable {
		return m.showMessage("This event cannot be moved")
	}

	m.drag.Start(ev)
	if !ev.AllDay && calendar.SameDay(ev.Start, m.state.CurrentDate()) {
		m.slot = m.slotFor(ev.Start)
		m.scrollToSlot()
	}
	return m.showMessage("Moving " + ev.Title + ": enter to drop, esc to cancel")
}

func (m *Model) handleDragKeys(action string) (tea.Model, tea.Cmd) {
	switch action {
	case "cancel", "quit":
		m.drag.Cancel()
		return m, m.showMessage("Move cancelled")

	case "open_event", "move_event":
		return m, m.dropDrag()
	}
	return m, m.navigate(action)
}

// dropTarget is the slot under the cursor. Views without a time grid, and
// all-day events, keep the original time of day.
func (m *Model) dropTarget(s calendar.DragSession) calendar.DropTarget {
	day := calendar.StartOfDay(m.state.CurrentDate())
	view := m.state.View()
	if s.Event.AllDay || (view != calendar.ViewWeek && view != calendar.ViewDay) {
		return calendar.DropTarget{Day: day, Hour: s.OriginalStart.Hour(), Minute: s.OriginalStart.Minute()}
	}
	at := m.slotTime(day)
	return calendar.DropTarget{Day: day, Hour: at.Hour(), Minute: at.Minute()}
}

func (m *Model) dropDrag() tea.Cmd {
	session, ok := m.drag.Active()
	if !ok {
		return nil
	}

	// The slot key is what a droppable cell carries.
	id := m.dropTarget(session).ID()
	moved, ok := m.drag.EndAt(id, m.state.CurrentDate().Location())
	if !ok {
		return nil
	}
	if moved.Start.Equal(session.OriginalStart) {
		return m.showMessage("Event not moved")
	}

	m.log.Debug().Str("event", moved.ID).Str("target", id).Msg("dropping event")
	store := m.store
	return storeCmd(opMove, moved, func(ctx context.Context) error {
		_, err := store.UpdateEvent(ctx, moved)
		return err
	})
}
