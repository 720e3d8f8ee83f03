package ui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/hrcal/hrcal/internal/calendar"
	"github.com/hrcal/hrcal/internal/config"
	"github.com/hrcal/hrcal/internal/source"
)

// Wednesday
var testNow = time.Date(2026, 6, 10, 10, 0, 0, 0, time.Local)

func at(day, hour, min int) time.Time {
	return time.Date(2026, 6, day, hour, min, 0, 0, time.Local)
}

type fakeSource struct {
	events []calendar.Event
	cats   []calendar.Category
	err    error
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) Events(ctx context.Context, start, end time.Time) ([]calendar.Event, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

func (f *fakeSource) Categories() ([]calendar.Category, error) { return f.cats, nil }

func (f *fakeSource) Watch() (<-chan source.ChangeEvent, error) { return nil, nil }

func (f *fakeSource) Close() error { return nil }

type fakeStore struct {
	added   []calendar.Event
	updated []calendar.Event
	deleted []string
	rsvps   map[string]calendar.RSVPStatus
	err     error
}

func (f *fakeStore) AddEvent(ctx context.Context, ev calendar.Event) (calendar.Event, error) {
	if f.err != nil {
		return calendar.Event{}, f.err
	}
	f.added = append(f.added, ev)
	return ev, nil
}

func (f *fakeStore) UpdateEvent(ctx context.Context, ev calendar.Event) (calendar.Event, error) {
	if f.err != nil {
		return calendar.Event{}, f.err
	}
	f.updated = append(f.updated, ev)
	return ev, nil
}

func (f *fakeStore) DeleteEvent(ctx context.Context, ev calendar.Event) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, ev.ID)
	return nil
}

func (f *fakeStore) SetRSVP(ctx context.Context, ev calendar.Event, status calendar.RSVPStatus) error {
	if f.err != nil {
		return f.err
	}
	if f.rsvps == nil {
		f.rsvps = make(map[string]calendar.RSVPStatus)
	}
	f.rsvps[ev.ID] = status
	return nil
}

// newTestModel returns a loaded 120x40 model in view with the clock fixed
// at testNow.
func newTestModel(t *testing.T, view calendar.View, events ...calendar.Event) (*Model, *fakeStore, *fakeSource) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.StartupView = view
	src := &fakeSource{events: events}
	store := &fakeStore{}

	m := NewModel(cfg, src, store, zerolog.Nop())
	m.SetClock(func() time.Time { return testNow })
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m.Update(m.reload()())
	return m, store, src
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "home":
		return tea.KeyMsg{Type: tea.KeyHome}
	case "end":
		return tea.KeyMsg{Type: tea.KeyEnd}
	case "ctrl+d":
		return tea.KeyMsg{Type: tea.KeyCtrlD}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

// press sends keys in order and returns the command of the last one.
func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(keyMsg(k))
	}
	return cmd
}

func typeText(m *Model, text string) {
	for _, r := range text {
		m.Update(keyMsg(string(r)))
	}
}

func findEvent(t *testing.T, m *Model, id string) calendar.Event {
	t.Helper()
	for _, ev := range m.events {
		if ev.ID == id {
			return ev
		}
	}
	t.Fatalf("event %s not loaded", id)
	return calendar.Event{}
}
