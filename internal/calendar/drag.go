package calendar

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// DropTarget identifies a droppable time slot.
type DropTarget struct {
	Day    time.Time
	Hour   int
	Minute int
}

// Time returns the instant the slot starts at, in Day's location.
func (t DropTarget) Time() time.Time {
	d := StartOfDay(t.Day)
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, 0, 0, d.Location())
}

// ID renders the slot key, slot-<YYYY-MM-DD>-<hour>[-<minute>]. The minute
// is omitted for whole hours.
func (t DropTarget) ID() string {
	day := t.Day.Format("2006-01-02")
	if t.Minute == 0 {
		return fmt.Sprintf("slot-%s-%d", day, t.Hour)
	}
	return fmt.Sprintf("slot-%s-%d-%d", day, t.Hour, t.Minute)
}

var slotRe = regexp.MustCompile(`^slot-(\d{4}-\d{2}-\d{2})-(\d{1,2})(?:-(\d{1,2}))?$`)

// ParseDropTarget decodes a slot key in loc. ok is false for anything that is
// not a valid slot.
func ParseDropTarget(id string, loc *time.Location) (DropTarget, bool) {
	m := slotRe.FindStringSubmatch(id)
	if m == nil {
		return DropTarget{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation("2006-01-02", m[1], loc)
	if err != nil {
		return DropTarget{}, false
	}
	hour, _ := strconv.Atoi(m[2])
	minute := 0
	if m[3] != "" {
		minute, _ = strconv.Atoi(m[3])
	}
	if hour > 23 || minute > 59 {
		return DropTarget{}, false
	}
	return DropTarget{Day: day, Hour: hour, Minute: minute}, true
}

// DragSession is the snapshot taken when a drag begins.
type DragSession struct {
	Event         Event
	OriginalStart time.Time
	OriginalEnd   time.Time
}

// Drag coordinates the single in-flight drag of a calendar instance.
type Drag struct {
	session *DragSession
}

// Start begins a drag of ev, replacing any session already in flight.
func (d *Drag) Start(ev Event) {
	d.session = &DragSession{Event: ev, OriginalStart: ev.Start, OriginalEnd: ev.End}
}

// Active returns the current session, if any.
func (d *Drag) Active() (DragSession, bool) {
	if d.session == nil {
		return DragSession{}, false
	}
	return *d.session, true
}

// Cancel discards the session without moving anything.
func (d *Drag) Cancel() {
	d.session = nil
}

// End finishes the drag. When ok is false, or no drag is active, the session
// is dropped and nothing moves. Otherwise the event is moved to the target
// keeping its original duration exactly.
func (d *Drag) End(target DropTarget, ok bool) (Event, bool) {
	s := d.session
	d.session = nil
	if s == nil || !ok {
		return Event{}, false
	}

	moved := s.Event
	moved.Start = target.Time()
	moved.End = moved.Start.Add(s.OriginalEnd.Sub(s.OriginalStart))
	return moved, true
}

// EndAt is End for a slot key, as produced by DropTarget.ID.
func (d *Drag) EndAt(id string, loc *time.Location) (Event, bool) {
	target, ok := ParseDropTarget(id, loc)
	return d.End(target, ok)
}
