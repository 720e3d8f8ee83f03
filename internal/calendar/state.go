package calendar

import (
	"fmt"
	"time"
)

// State is the navigation state of one calendar instance: the focus date,
// the active view and an optional user-selected date (set from the mini
// calendar, independent of the focus date).
type State struct {
	current  time.Time
	view     View
	selected *time.Time
	now      func() time.Time
}

// NewState returns a State focused on date. An invalid view falls back to
// month.
func NewState(date time.Time, view View) *State {
	if !view.Valid() {
		view = ViewMonth
	}
	return &State{current: date, view: view, now: time.Now}
}

// SetClock overrides the time source used by GoToToday.
func (s *State) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *State) CurrentDate() time.Time { return s.current }

func (s *State) SetCurrentDate(t time.Time) { s.current = t }

func (s *State) View() View { return s.view }

// SetView switches the layout without touching the focus date.
func (s *State) SetView(v View) error {
	if !v.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidView, v)
	}
	s.view = v
	return nil
}

// SelectedDate returns the user-selected date, if any.
func (s *State) SelectedDate() (time.Time, bool) {
	if s.selected == nil {
		return time.Time{}, false
	}
	return *s.selected, true
}

func (s *State) SelectDate(t time.Time) {
	s.selected = &t
}

func (s *State) ClearSelection() {
	s.selected = nil
}

// GoToToday focuses the calendar on the current instant.
func (s *State) GoToToday() {
	s.current = s.now()
}

// GoToNext advances one period of the active view.
func (s *State) GoToNext() {
	s.current = NextPeriod(s.current, s.view)
}

// GoToPrevious moves back one period of the active view.
func (s *State) GoToPrevious() {
	s.current = PreviousPeriod(s.current, s.view)
}
