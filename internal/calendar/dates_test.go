package calendar

import (
	"errors"
	"testing"
	"time"
)

func TestNavigationRoundTrip(t *testing.T) {
	dates := []time.Time{
		at(2025, 1, 15, 10, 30),
		at(2024, 2, 28, 0, 0),
		at(2025, 12, 28, 23, 59),
		at(2025, 3, 9, 12, 0),
	}

	for _, view := range Views {
		for _, d := range dates {
			got := PreviousPeriod(NextPeriod(d, view), view)
			if !got.Equal(d) {
				t.Errorf("%s: previous(next(%s)) = %s", view, d, got)
			}
		}
	}
}

func TestPeriodStepSizes(t *testing.T) {
	d := at(2025, 5, 14, 9, 0)
	tests := []struct {
		view View
		want time.Time
	}{
		{ViewDay, at(2025, 5, 15, 9, 0)},
		{ViewWeek, at(2025, 5, 21, 9, 0)},
		{ViewMonth, at(2025, 6, 14, 9, 0)},
		{ViewAgenda, at(2025, 5, 21, 9, 0)},
	}
	for _, tt := range tests {
		if got := NextPeriod(d, tt.view); !got.Equal(tt.want) {
			t.Errorf("NextPeriod(%s) = %s, want %s", tt.view, got, tt.want)
		}
	}
}

func TestAddMonthsClamps(t *testing.T) {
	if got := AddMonths(mustDate(2025, 1, 31), 1); !got.Equal(mustDate(2025, 2, 28)) {
		t.Errorf("Jan 31 + 1 month = %s", got)
	}
	if got := AddMonths(mustDate(2024, 3, 31), -1); !got.Equal(mustDate(2024, 2, 29)) {
		t.Errorf("Mar 31 2024 - 1 month = %s", got)
	}
	if got := AddMonths(mustDate(2025, 12, 15), 1); !got.Equal(mustDate(2026, 1, 15)) {
		t.Errorf("Dec 15 + 1 month = %s", got)
	}
}

func TestViewDays(t *testing.T) {
	// May 2025 starts on Thursday and ends on Saturday.
	month := ViewDays(mustDate(2025, 5, 14), ViewMonth, time.Sunday)
	if len(month)%7 != 0 {
		t.Fatalf("month view has %d days, not whole weeks", len(month))
	}
	if !month[0].Equal(mustDate(2025, 4, 27)) {
		t.Errorf("month view starts %s, want Apr 27", month[0])
	}
	if last := month[len(month)-1]; !last.Equal(mustDate(2025, 5, 31)) {
		t.Errorf("month view ends %s, want May 31", last)
	}

	week := ViewDays(at(2025, 5, 14, 15, 0), ViewWeek, time.Sunday)
	if len(week) != 7 {
		t.Fatalf("week view has %d days", len(week))
	}
	if week[0].Weekday() != time.Sunday || !week[0].Equal(mustDate(2025, 5, 11)) {
		t.Errorf("week starts %s", week[0])
	}

	monday := ViewDays(mustDate(2025, 5, 14), ViewWeek, time.Monday)
	if !monday[0].Equal(mustDate(2025, 5, 12)) {
		t.Errorf("monday week starts %s", monday[0])
	}

	if day := ViewDays(at(2025, 5, 14, 15, 0), ViewDay, time.Sunday); len(day) != 1 || !day[0].Equal(mustDate(2025, 5, 14)) {
		t.Errorf("day view = %v", day)
	}

	grid := MonthGrid(mustDate(2025, 5, 1), time.Sunday)
	if len(grid) != 5 {
		t.Errorf("May 2025 grid has %d weeks, want 5", len(grid))
	}
}

func TestAllDayMembership(t *testing.T) {
	ev := Event{ID: "offsite", AllDay: true, Start: mustDate(2025, 5, 13), End: mustDate(2025, 5, 15)}

	for d := 10; d <= 18; d++ {
		day := mustDate(2025, 5, d)
		want := d >= 13 && d <= 15
		if got := OccursOnDay(ev, day); got != want {
			t.Errorf("OccursOnDay(May %d) = %v, want %v", d, got, want)
		}
	}
}

func TestTimedMembership(t *testing.T) {
	overnight := timed("late", at(2025, 5, 13, 22, 0), at(2025, 5, 14, 2, 0))
	if !OccursOnDay(overnight, mustDate(2025, 5, 13)) || !OccursOnDay(overnight, mustDate(2025, 5, 14)) {
		t.Error("overnight event should appear on both days")
	}
	if OccursOnDay(overnight, mustDate(2025, 5, 15)) {
		t.Error("overnight event leaked into the third day")
	}

	toMidnight := timed("evening", at(2025, 5, 13, 20, 0), at(2025, 5, 14, 0, 0))
	if OccursOnDay(toMidnight, mustDate(2025, 5, 14)) {
		t.Error("event ending at midnight should not appear on the next day")
	}

	long := timed("conference", at(2025, 5, 1, 9, 0), at(2025, 5, 4, 17, 0))
	if !OccursOnDay(long, at(2025, 5, 2, 13, 0)) {
		t.Error("middle day of a multi-day event missing")
	}
}

func TestEventsForDaySorting(t *testing.T) {
	day := mustDate(2025, 5, 14)
	events := []Event{
		timed("b", at(2025, 5, 14, 11, 0), at(2025, 5, 14, 12, 0)),
		timed("a", at(2025, 5, 14, 9, 0), at(2025, 5, 14, 10, 0)),
		{ID: "allday", Title: "allday", AllDay: true, Start: day, End: day},
		timed("other-day", at(2025, 5, 15, 9, 0), at(2025, 5, 15, 10, 0)),
	}
	got := ids(EventsForDay(events, day))
	want := []string{"allday", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
			break
		}
	}
}

func TestParseView(t *testing.T) {
	if v, err := ParseView(" Week "); err != nil || v != ViewWeek {
		t.Errorf("ParseView(Week) = %q, %v", v, err)
	}
	if _, err := ParseView("year"); !errors.Is(err, ErrInvalidView) {
		t.Errorf("ParseView(year) err = %v", err)
	}
}

func TestPeriodLabel(t *testing.T) {
	d := mustDate(2025, 5, 14)
	if got := PeriodLabel(d, ViewMonth, time.Sunday); got != "May 2025" {
		t.Errorf("month label = %q", got)
	}
	if got := PeriodLabel(d, ViewWeek, time.Sunday); got != "May 11 - 17, 2025" {
		t.Errorf("week label = %q", got)
	}
	if got := PeriodLabel(mustDate(2025, 4, 30), ViewWeek, time.Sunday); got != "Apr 27 - May 3, 2025" {
		t.Errorf("cross-month week label = %q", got)
	}
}
