package calendar

import (
	"testing"
	"time"
)

func TestDropTargetIDRoundTrip(t *testing.T) {
	tests := []struct {
		target DropTarget
		id     string
	}{
		{DropTarget{Day: mustDate(2025, 5, 14), Hour: 9}, "slot-2025-05-14-9"},
		{DropTarget{Day: mustDate(2025, 5, 14), Hour: 14, Minute: 30}, "slot-2025-05-14-14-30"},
	}
	for _, tt := range tests {
		if got := tt.target.ID(); got != tt.id {
			t.Errorf("ID() = %q, want %q", got, tt.id)
		}
		back, ok := ParseDropTarget(tt.id, time.UTC)
		if !ok {
			t.Fatalf("ParseDropTarget(%q) failed", tt.id)
		}
		if !back.Time().Equal(tt.target.Time()) {
			t.Errorf("round trip %q = %s, want %s", tt.id, back.Time(), tt.target.Time())
		}
	}
}

func TestParseDropTargetRejects(t *testing.T) {
	for _, id := range []string{"", "cell-2025-05-14", "slot-2025-05-14", "slot-2025-13-40-9", "slot-2025-05-14-25", "slot-2025-05-14-9-75", "slot-2025-05-14-9-30-extra"} {
		if _, ok := ParseDropTarget(id, time.UTC); ok {
			t.Errorf("ParseDropTarget(%q) should fail", id)
		}
	}
}

func TestDragPreservesDuration(t *testing.T) {
	var d Drag
	ev := timed("review", at(2025, 5, 14, 9, 0), at(2025, 5, 14, 10, 30))
	d.Start(ev)

	moved, ok := d.EndAt("slot-2025-05-16-13-15", time.UTC)
	if !ok {
		t.Fatal("drop on a valid slot was ignored")
	}
	if !moved.Start.Equal(at(2025, 5, 16, 13, 15)) {
		t.Errorf("new start = %s", moved.Start)
	}
	if moved.Duration() != 90*time.Minute {
		t.Errorf("duration = %s, want 1h30m", moved.Duration())
	}
	if _, active := d.Active(); active {
		t.Error("session should be cleared after drop")
	}
}

func TestDragInvalidDropIsNoop(t *testing.T) {
	var d Drag
	d.Start(timed("a", at(2025, 5, 14, 9, 0), at(2025, 5, 14, 10, 0)))

	if _, ok := d.EndAt("outside", time.UTC); ok {
		t.Error("invalid drop should not produce an event")
	}
	if _, active := d.Active(); active {
		t.Error("session should be discarded after an invalid drop")
	}
	if _, ok := d.End(DropTarget{Day: mustDate(2025, 5, 14), Hour: 9}, true); ok {
		t.Error("End without a session should be a no-op")
	}
}

func TestDragStartReplacesSession(t *testing.T) {
	var d Drag
	d.Start(timed("first", at(2025, 5, 14, 9, 0), at(2025, 5, 14, 10, 0)))
	d.Start(timed("second", at(2025, 5, 14, 11, 0), at(2025, 5, 14, 11, 15)))

	s, ok := d.Active()
	if !ok || s.Event.ID != "second" {
		t.Fatalf("active session = %+v", s)
	}
	moved, _ := d.End(DropTarget{Day: mustDate(2025, 5, 15), Hour: 8}, true)
	if moved.ID != "second" || moved.Duration() != 15*time.Minute {
		t.Errorf("moved = %+v", moved)
	}

	d.Start(timed("third", at(2025, 5, 14, 9, 0), at(2025, 5, 14, 10, 0)))
	d.Cancel()
	if _, ok := d.Active(); ok {
		t.Error("cancel should clear the session")
	}
}
