package ui

import (
	"testing"
	"time"

	"github.com/hrcal/hrcal/internal/calendar"
)

func TestKeyboardDragPreservesDuration(t *testing.T) {
	m, store, _ := newTestModel(t, calendar.ViewWeek,
		calendar.Event{ID: "ev-1", Title: "Interview", Start: at(10, 10, 0), End: at(10, 11, 30)},
	)

	// The cursor starts on 10:00, where the event begins.
	press(m, "m")
	if _, ok := m.drag.Active(); !ok {
		t.Fatal("m should pick up the event under the cursor")
	}

	cmd := press(m, "l", "j", "j", "enter")
	if cmd == nil {
		t.Fatal("enter should drop the event")
	}
	if _, ok := m.drag.Active(); ok {
		t.Error("drop should end the drag session")
	}

	m.Update(cmd())
	if len(store.updated) != 1 {
		t.Fatalf("updated = %d events", len(store.updated))
	}
	moved := store.updated[0]
	if !moved.Start.Equal(at(11, 11, 0)) {
		t.Errorf("start = %s, want Jun 11 11:00", moved.Start)
	}
	if moved.Duration() != 90*time.Minute {
		t.Errorf("duration = %s, want 1h30m", moved.Duration())
	}
}

func TestMonthDragKeepsTimeOfDay(t *testing.T) {
	m, store, _ := newTestModel(t, calendar.ViewMonth,
		calendar.Event{ID: "ev-1", Title: "Interview", Start: at(10, 10, 0), End: at(10, 11, 30)},
	)

	press(m, "tab", "m")
	cmd := press(m, "l", "l", "enter")
	if cmd == nil {
		t.Fatal("enter should drop the event")
	}
	m.Update(cmd())

	moved := store.updated[0]
	if !moved.Start.Equal(at(12, 10, 0)) || !moved.End.Equal(at(12, 11, 30)) {
		t.Errorf("moved to %s - %s, want Jun 12 10:00 - 11:30", moved.Start, moved.End)
	}
}

func TestDragEscapeCancels(t *testing.T) {
	m, store, _ := newTestModel(t, calendar.ViewWeek,
		calendar.Event{ID: "ev-1", Title: "Interview", Start: at(10, 10, 0), End: at(10, 11, 30)},
	)

	press(m, "m", "l", "esc")
	if _, ok := m.drag.Active(); ok {
		t.Error("esc should cancel the drag")
	}
	if len(store.updated) != 0 {
		t.Errorf("cancelled drag updated %v", store.updated)
	}
}

func TestDragDropInPlaceIsNoop(t *testing.T) {
	m, store, _ := newTestModel(t, calendar.ViewWeek,
		calendar.Event{ID: "ev-1", Title: "Interview", Start: at(10, 10, 0), End: at(10, 11, 30)},
	)

	press(m, "m", "enter")
	if len(store.updated) != 0 {
		t.Errorf("dropping in place updated %v", store.updated)
	}
}

func TestDragRefusesReadOnlyEvents(t *testing.T) {
	m, _, _ := newTestModel(t, calendar.ViewWeek,
		calendar.Event{ID: "team:1", Title: "Vendor sync", Type: calendar.TypeInternal, ExternalID: "team:1", Start: at(10, 10, 0), End: at(10, 11, 0)},
		calendar.Event{ID: "leave-2", Title: "Leave", AllDay: true, Start: at(10, 0, 0), End: at(10, 0, 0)},
	)

	press(m, "m")
	if _, ok := m.drag.Active(); ok {
		t.Error("external meetings cannot be moved")
	}

	press(m, "tab", "m")
	if _, ok := m.drag.Active(); ok {
		t.Error("leave records cannot be moved")
	}
}

func TestDropTargetFollowsCursor(t *testing.T) {
	m, _, _ := newTestModel(t, calendar.ViewDay)
	session := calendar.DragSession{
		Event:         calendar.Event{ID: "x", Start: at(10, 9, 0), End: at(10, 10, 0)},
		OriginalStart: at(10, 9, 0),
		OriginalEnd:   at(10, 10, 0),
	}

	m.slot = 29 // 14:30
	target := m.dropTarget(session)
	if got := target.ID(); got != "slot-2026-06-10-14-30" {
		t.Errorf("target = %s", got)
	}

	press(m, "M")
	if got := m.dropTarget(session).ID(); got != "slot-2026-06-10-9" {
		t.Errorf("month target = %s, want the original time of day", got)
	}
}
