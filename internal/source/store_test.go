package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hrcal/hrcal/internal/calendar"
)

func at(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func newTestStore(t *testing.T, opts ...StoreOption) *FileStore {
	t.Helper()
	n := 0
	opts = append([]StoreOption{
		WithLocation(time.UTC),
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("ev-%d", n)
		}),
	}, opts...)
	return NewFileStore(filepath.Join(t.TempDir(), "events.yaml"), zerolog.Nop(), opts...)
}

func TestFileStoreAddAndReload(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	added, err := s.AddEvent(ctx, calendar.Event{
		Title: "1:1 with Dana",
		Start: at(2025, 5, 14, 9, 0),
		End:   at(2025, 5, 14, 9, 30),
		Type:  calendar.TypeEvent,
	})
	if err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	if added.ID != "ev-1" {
		t.Errorf("ID = %q, want ev-1", added.ID)
	}
	if added.Color != calendar.ColorOrange {
		t.Errorf("color = %q, want type default", added.Color)
	}

	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	reopened := NewFileStore(s.Path(), zerolog.Nop(), WithLocation(time.UTC))
	events, err := reopened.Events(ctx, at(2025, 5, 14, 0, 0), at(2025, 5, 15, 0, 0))
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 1 || events[0].Title != "1:1 with Dana" || !events[0].Start.Equal(at(2025, 5, 14, 9, 0)) {
		t.Errorf("reloaded events = %+v", events)
	}
}

func TestFileStoreMissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	events, err := s.Events(context.Background(), at(2025, 1, 1, 0, 0), at(2026, 1, 1, 0, 0))
	if err != nil || len(events) != 0 {
		t.Errorf("Events = %v, %v", events, err)
	}
}

func TestFileStoreRejects(t *testing.T) {
	ctx := context.Background()

	ro := newTestStore(t, WithReadOnly(true))
	if _, err := ro.AddEvent(ctx, calendar.Event{Title: "x"}); !errors.Is(err, calendar.ErrReadOnly) {
		t.Errorf("read-only add error = %v", err)
	}

	s := newTestStore(t)
	if _, err := s.AddEvent(ctx, calendar.Event{Title: "  "}); err == nil {
		t.Error("blank title should be rejected")
	}
	if _, err := s.UpdateEvent(ctx, calendar.Event{ID: "nope", Title: "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("update unknown error = %v", err)
	}
	if err := s.DeleteEvent(ctx, calendar.Event{ID: "nope"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete unknown error = %v", err)
	}
	if _, err := s.UpdateEvent(ctx, calendar.Event{ID: "g", Title: "x", ExternalID: "google:g"}); !errors.Is(err, calendar.ErrReadOnly) {
		t.Errorf("update external error = %v", err)
	}
}

func TestFileStoreUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	ev, _ := s.AddEvent(ctx, calendar.Event{Title: "Review", Start: at(2025, 5, 14, 9, 0), End: at(2025, 5, 14, 10, 30)})

	ev.Start = at(2025, 5, 16, 13, 0)
	ev.End = at(2025, 5, 16, 14, 30)
	ev.Title = "Quarterly review"
	if _, err := s.UpdateEvent(ctx, ev); err != nil {
		t.Fatalf("UpdateEvent: %v", err)
	}

	events, _ := s.Events(ctx, at(2025, 5, 1, 0, 0), at(2025, 6, 1, 0, 0))
	if len(events) != 1 || events[0].Title != "Quarterly review" || !events[0].Start.Equal(at(2025, 5, 16, 13, 0)) {
		t.Fatalf("after update = %+v", events)
	}

	if err := s.DeleteEvent(ctx, events[0]); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	events, _ = s.Events(ctx, at(2025, 5, 1, 0, 0), at(2025, 6, 1, 0, 0))
	if len(events) != 0 {
		t.Errorf("after delete = %+v", events)
	}
}

func TestFileStoreRecurringSeries(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.AddEvent(ctx, calendar.Event{
		Title: "Standup",
		Start: at(2025, 6, 2, 9, 0),
		End:   at(2025, 6, 2, 9, 15),
		RRule: "FREQ=WEEKLY;INTERVAL=1;BYDAY=MO",
	})
	if err != nil {
		t.Fatal(err)
	}

	june := func() []calendar.Event {
		events, err := s.Events(ctx, at(2025, 6, 1, 0, 0), at(2025, 7, 1, 0, 0))
		if err != nil {
			t.Fatal(err)
		}
		return events
	}

	events := june()
	if len(events) != 5 {
		t.Fatalf("June Mondays = %d, want 5", len(events))
	}
	second := events[1]
	if second.ParentID != "ev-1" || second.ID != OccurrenceID("ev-1", at(2025, 6, 9, 9, 0)) {
		t.Errorf("occurrence linkage = %q / %q", second.ParentID, second.ID)
	}

	if err := s.DeleteEvent(ctx, second); err != nil {
		t.Fatalf("delete occurrence: %v", err)
	}
	events = june()
	if len(events) != 4 {
		t.Fatalf("after excluding one = %d, want 4", len(events))
	}

	// Moving an occurrence by an hour shifts the series.
	moved := events[0]
	moved.Start = moved.Start.Add(time.Hour)
	moved.End = moved.End.Add(time.Hour)
	if _, err := s.UpdateEvent(ctx, moved); err != nil {
		t.Fatalf("update occurrence: %v", err)
	}
	for _, ev := range june() {
		if ev.Start.Hour() != 10 || ev.Duration() != 15*time.Minute {
			t.Errorf("occurrence %s not shifted: %s", ev.ID, ev.Start)
		}
	}
}

func TestFileStoreAllDayDates(t *testing.T) {
	ctx := context.Background()
	loc := time.FixedZone("WIB", 7*3600)
	s := newTestStore(t, WithLocation(loc))

	_, err := s.AddEvent(ctx, calendar.Event{
		Title:  "Company outing",
		AllDay: true,
		Start:  time.Date(2025, 5, 20, 0, 0, 0, 0, loc),
		End:    time.Date(2025, 5, 21, 0, 0, 0, 0, loc),
	})
	if err != nil {
		t.Fatal(err)
	}

	data, _ := os.ReadFile(s.Path())
	if !strings.Contains(string(data), "2025-05-20") {
		t.Errorf("all-day date not stored as a date: %s", data)
	}

	events, _ := s.Events(ctx, time.Date(2025, 5, 21, 0, 0, 0, 0, loc), time.Date(2025, 5, 22, 0, 0, 0, 0, loc))
	if len(events) != 1 {
		t.Fatalf("all-day event should reach its inclusive end date, got %d", len(events))
	}
	if events[0].Start.Location() != loc || events[0].Start.Day() != 20 {
		t.Errorf("start = %s", events[0].Start)
	}
}

func TestFileStoreAllDaySeriesAtRangeStart(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.AddEvent(ctx, calendar.Event{
		Title:  "Weekend on call",
		AllDay: true,
		Start:  at(2026, 2, 28, 0, 0),
		End:    at(2026, 3, 1, 0, 0),
		RRule:  "FREQ=WEEKLY;BYDAY=SA",
	})
	if err != nil {
		t.Fatal(err)
	}

	// Sunday Mar 1 is the second day of the Feb 28 occurrence.
	events, err := s.Events(ctx, at(2026, 3, 1, 0, 0), at(2026, 3, 2, 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || !events[0].Start.Equal(at(2026, 2, 28, 0, 0)) {
		t.Fatalf("events on Mar 1 = %+v, want the Feb 28 occurrence", events)
	}
}

func TestFileStoreExternalOverlay(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	meeting := calendar.Event{ID: "m1", Title: "Sync", ExternalID: "team:m1", Type: calendar.TypeInternal}
	other := calendar.Event{ID: "m2", Title: "Planning", ExternalID: "team:m2", Type: calendar.TypeInternal}

	if err := s.SetRSVP(ctx, meeting, calendar.RSVPAccepted); err != nil {
		t.Fatalf("SetRSVP: %v", err)
	}
	if err := s.DeleteEvent(ctx, other); err != nil {
		t.Fatalf("dismiss: %v", err)
	}

	out := s.Apply([]calendar.Event{meeting, other})
	if len(out) != 1 || out[0].ID != "m1" || out[0].RSVP != calendar.RSVPAccepted {
		t.Errorf("overlay result = %+v", out)
	}
}

func TestFileStoreImport(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	in := []calendar.Event{
		{ID: "leave-7", Title: "Annual leave", AllDay: true, Start: at(2025, 5, 5, 0, 0), End: at(2025, 5, 6, 0, 0), ExternalID: "hr:leave-7"},
		{Title: "No ID", Start: at(2025, 5, 7, 9, 0), End: at(2025, 5, 7, 10, 0)},
	}
	n, err := s.Import(ctx, in)
	if err != nil || n != 2 {
		t.Fatalf("Import = %d, %v", n, err)
	}
	n, err = s.Import(ctx, in[:1])
	if err != nil || n != 0 {
		t.Errorf("re-import = %d, %v; want 0", n, err)
	}

	all, _ := s.All()
	if len(all) != 2 || all[0].ID != "leave-7" || all[0].IsExternal() {
		t.Errorf("stored = %+v", all)
	}
}

func TestFileStoreCategories(t *testing.T) {
	s := newTestStore(t)
	doc := `categories:
  - id: interview
    name: Interviews
    color: violet
  - id: misc
    name: Misc
    color: orange
    hidden: true
events: []
`
	if err := os.WriteFile(s.Path(), []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	cats, err := s.Categories()
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 || cats[0].Color != calendar.ColorViolet || !cats[0].Active || cats[1].Active {
		t.Errorf("categories = %+v", cats)
	}
}
