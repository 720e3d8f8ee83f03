package source

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hrcal/hrcal/internal/calendar"
)

const teamICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:m-100
DTSTAMP:20250501T000000Z
DTSTART:20250514T020000Z
DTEND:20250514T030000Z
SUMMARY:Sprint planning
LOCATION:Room 4
URL:https://meet.example.com/abc
ORGANIZER:mailto:lead@example.com
ATTENDEE:mailto:a@example.com
ATTENDEE:mailto:b@example.com
END:VEVENT
BEGIN:VEVENT
UID:leave-55
DTSTAMP:20250501T000000Z
DTSTART;VALUE=DATE:20250519
DTEND;VALUE=DATE:20250521
SUMMARY:Annual leave
END:VEVENT
BEGIN:VEVENT
UID:weekly-1
DTSTAMP:20250501T000000Z
DTSTART:20250602T020000Z
DTEND:20250602T023000Z
RRULE:FREQ=WEEKLY;BYDAY=MO
EXDATE:20250609T020000Z
SUMMARY:Weekly sync
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20250501T000000Z
DTSTART:20250514T020000Z
SUMMARY:No UID
END:VEVENT
END:VCALENDAR
`

func TestParseICS(t *testing.T) {
	events, err := ParseICS([]byte(teamICS), ParseOptions{Feed: "team", Type: calendar.TypeInternal, Location: time.UTC}, zerolog.Nop())
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3 (UID-less event skipped)", len(events))
	}

	m := events[0]
	if m.ID != "m-100" || m.ExternalID != "team:m-100" || !m.IsExternal() {
		t.Errorf("identity = %q / %q", m.ID, m.ExternalID)
	}
	if m.Organizer != "lead@example.com" || len(m.Guests) != 2 || m.Guests[0] != "a@example.com" {
		t.Errorf("people = %q %v", m.Organizer, m.Guests)
	}
	if m.MeetingURL != "https://meet.example.com/abc" || m.Location != "Room 4" {
		t.Errorf("meeting details = %q %q", m.MeetingURL, m.Location)
	}
	if m.RSVP != calendar.RSVPNeedsAction || m.Color != calendar.ColorSky {
		t.Errorf("meeting defaults = %q %q", m.RSVP, m.Color)
	}

	leave := events[1]
	if !leave.AllDay || leave.Start.Day() != 19 || leave.End.Day() != 20 {
		t.Errorf("all-day bounds = %s - %s, want inclusive 19-20", leave.Start, leave.End)
	}

	weekly := events[2]
	if weekly.RRule == "" || len(weekly.ExDates) != 1 {
		t.Errorf("series = %q exdates %v", weekly.RRule, weekly.ExDates)
	}
}

func TestParseICSExDateZone(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("no zoneinfo: %v", err)
	}
	body := `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:standup-ny
DTSTAMP:20260501T000000Z
DTSTART;TZID=America/New_York:20260601T090000
DTEND;TZID=America/New_York:20260601T091500
RRULE:FREQ=DAILY;COUNT=5
EXDATE;TZID=America/New_York:20260603T090000
SUMMARY:NY standup
END:VEVENT
END:VCALENDAR
`
	events, err := ParseICS([]byte(body), ParseOptions{Location: time.UTC}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || len(events[0].ExDates) != 1 {
		t.Fatalf("events = %+v", events)
	}
	want := time.Date(2026, 6, 3, 9, 0, 0, 0, ny)
	if got := events[0].ExDates[0]; !got.Equal(want) {
		t.Errorf("exdate = %s, want %s", got, want)
	}

	occ := expandEvents(events, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, 6, 8, 0, 0, 0, 0, time.UTC), zerolog.Nop())
	if len(occ) != 4 {
		t.Fatalf("got %d occurrences, want 4 with Jun 3 excluded", len(occ))
	}
	for _, o := range occ {
		if o.Start.Equal(want) {
			t.Errorf("excluded occurrence %s still expanded", o.Start)
		}
	}
}

func TestParseICSTypeFromCategories(t *testing.T) {
	body := strings.Replace(teamICS, "SUMMARY:Sprint planning", "SUMMARY:Sprint planning\nCATEGORIES:WFH,Other", 1)
	events, err := ParseICS([]byte(body), ParseOptions{}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if events[0].Type != calendar.TypeWFH || events[0].IsExternal() {
		t.Errorf("type = %q external = %v", events[0].Type, events[0].IsExternal())
	}
}

func TestParseICSErrors(t *testing.T) {
	if _, err := ParseICS(nil, ParseOptions{}, zerolog.Nop()); err == nil {
		t.Error("empty body should fail")
	}
}

func TestICSFeedFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "team.ics")
	if err := os.WriteFile(path, []byte(teamICS), 0o600); err != nil {
		t.Fatal(err)
	}
	feed := NewICSFeed("team", calendar.TypeInternal, path, zerolog.Nop())

	events, err := feed.Events(context.Background(), at(2025, 6, 1, 0, 0), at(2025, 7, 1, 0, 0))
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	// Weekly sync on Mondays in June minus the excluded 9th.
	if len(events) != 4 {
		t.Errorf("June occurrences = %d, want 4", len(events))
	}
	for _, ev := range events {
		if ev.ParentID != "weekly-1" || !ev.IsExternal() {
			t.Errorf("occurrence %+v", ev)
		}
	}
}

func TestICSFeedKeepsLastGoodBody(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		w.Write([]byte(teamICS))
	}))
	defer srv.Close()

	feed := NewICSFeed("team", "", srv.URL+"/private/token.ics", zerolog.Nop())
	ctx := context.Background()
	from, to := at(2025, 5, 1, 0, 0), at(2025, 6, 1, 0, 0)

	first, err := feed.Events(ctx, from, to)
	if err != nil || len(first) != 2 {
		t.Fatalf("first fetch = %d, %v", len(first), err)
	}

	fail.Store(true)
	second, err := feed.Events(ctx, from, to)
	if err != nil || len(second) != len(first) {
		t.Errorf("fallback fetch = %d, %v", len(second), err)
	}

	if ch, err := feed.Watch(); ch != nil || err != nil {
		t.Errorf("URL feeds should not be watched: %v %v", ch, err)
	}
}

func TestICSFeedErrorWithoutCache(t *testing.T) {
	feed := NewICSFeed("gone", "", filepath.Join(t.TempDir(), "missing.ics"), zerolog.Nop())
	if _, err := feed.Events(context.Background(), at(2025, 5, 1, 0, 0), at(2025, 6, 1, 0, 0)); err == nil {
		t.Error("expected error for missing feed file")
	}
}

func TestExportRoundTrip(t *testing.T) {
	events := []calendar.Event{
		{ID: "e1", Title: "Review", Start: at(2025, 5, 14, 9, 0), End: at(2025, 5, 14, 10, 0), Type: calendar.TypeEvent, Guests: []string{"x@example.com"}, Organizer: "boss@example.com"},
		{ID: "e2", Title: "Offsite", AllDay: true, Start: at(2025, 5, 20, 0, 0), End: at(2025, 5, 21, 0, 0)},
		{ID: "e3", Title: "Standup", Start: at(2025, 6, 2, 9, 0), End: at(2025, 6, 2, 9, 15), RRule: "FREQ=WEEKLY;BYDAY=MO"},
		{ID: "e3@x", ParentID: "e3", Title: "Standup"},
	}

	var buf bytes.Buffer
	if err := ExportICS(&buf, events, at(2025, 5, 1, 0, 0)); err != nil {
		t.Fatalf("ExportICS: %v", err)
	}
	if !strings.Contains(buf.String(), "RRULE:FREQ=WEEKLY;BYDAY=MO") {
		t.Errorf("rule missing from export:\n%s", buf.String())
	}

	back, err := ParseICS(buf.Bytes(), ParseOptions{Location: time.UTC}, zerolog.Nop())
	if err != nil {
		t.Fatalf("ParseICS: %v", err)
	}
	if len(back) != 3 {
		t.Fatalf("round trip kept %d events, want 3", len(back))
	}
	if !back[0].Start.Equal(events[0].Start) || back[0].Type != calendar.TypeEvent || back[0].Organizer != "boss@example.com" {
		t.Errorf("timed event = %+v", back[0])
	}
	if !back[1].AllDay || back[1].End.Day() != 21 {
		t.Errorf("all-day event = %+v", back[1])
	}
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://cal.example.com/private/abc?token=1"); got != "https://cal.example.com/..." {
		t.Errorf("redactURL = %q", got)
	}
}
