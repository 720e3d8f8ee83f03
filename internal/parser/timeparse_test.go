package parser

import (
	"errors"
	"testing"
	"time"
)

// Friday
var parseNow = time.Date(2024, 3, 15, 10, 0, 0, 0, time.Local)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func TestParseDates(t *testing.T) {
	parser := NewTimeParser()
	parser.SetNow(parseNow)

	tests := []struct {
		input string
		date  time.Time
		text  string
	}{
		{"today team sync", date(2024, 3, 15), "team sync"},
		{"Tomorrow payroll run", date(2024, 3, 16), "payroll run"},
		{"tmrw", date(2024, 3, 16), ""},
		{"yesterday", date(2024, 3, 14), ""},
		{"next monday submit report", date(2024, 3, 18), "submit report"},
		{"next friday", date(2024, 3, 22), ""},
		{"friday", date(2024, 3, 22), ""},
		{"this tues 1:1", date(2024, 3, 19), "1:1"},
		{"thurs offsite", date(2024, 3, 21), "offsite"},
		{"next week", date(2024, 3, 22), ""},
		{"next month", date(2024, 4, 15), ""},
		{"in 3 days project deadline", date(2024, 3, 18), "project deadline"},
		{"in 1 week", date(2024, 3, 22), ""},
		{"2 weeks from now vacation starts", date(2024, 3, 29), "vacation starts"},
		{"2024-07-04 holiday", date(2024, 7, 4), "holiday"},
		{"3/25/2024 birthday party", date(2024, 3, 25), "birthday party"},
		{"12-31-2024 new year's eve", date(2024, 12, 31), "new year's eve"},
		{"4/1 quarter starts", date(2024, 4, 1), "quarter starts"},
		{"May 15, 2024 conference", date(2024, 5, 15), "conference"},
		{"december 25th", date(2024, 12, 25), ""},
		{"Sept 3 onboarding", date(2024, 9, 3), "onboarding"},
		{"10 june 2025 review cycle", date(2025, 6, 10), "review cycle"},
		{"1st Aug", date(2024, 8, 1), ""},
		// Malformed and unknown dates are left for the caller to reject.
		{"2024-02-30", date(2024, 3, 15), "2024-02-30"},
		{"13/40 x", date(2024, 3, 15), "13/40 x"},
		{"someday", date(2024, 3, 15), "someday"},
		{"monthly budget", date(2024, 3, 15), "monthly budget"},
		{"3 candidates", date(2024, 3, 15), "3 candidates"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := parser.Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if !result.Date.Equal(tt.date) {
				t.Errorf("Date mismatch: got %s, want %s", result.Date.Format("2006-01-02"), tt.date.Format("2006-01-02"))
			}
			if result.Text != tt.text {
				t.Errorf("Text mismatch: got %q, want %q", result.Text, tt.text)
			}
			if result.HasTime {
				t.Errorf("unexpected time %s", result.Time.Format("15:04"))
			}
		})
	}
}

func TestParseTimes(t *testing.T) {
	parser := NewTimeParser()
	parser.SetNow(parseNow)

	tests := []struct {
		input    string
		date     time.Time
		hour     int
		min      int
		duration time.Duration
		text     string
	}{
		{"2pm meeting", date(2024, 3, 15), 14, 0, 0, "meeting"},
		{"14:30 conference call", date(2024, 3, 15), 14, 30, 0, "conference call"},
		{"at 9am standup", date(2024, 3, 15), 9, 0, 0, "standup"},
		{"12am cutover", date(2024, 3, 15), 0, 0, 0, "cutover"},
		{"12pm lunch", date(2024, 3, 15), 12, 0, 0, "lunch"},
		{"noon lunch", date(2024, 3, 15), 12, 0, 0, "lunch"},
		{"midnight deadline", date(2024, 3, 15), 0, 0, 0, "deadline"},
		{"afternoon interviews", date(2024, 3, 15), 14, 0, 0, "interviews"},
		{"2pm-4pm workshop", date(2024, 3, 15), 14, 0, 2 * time.Hour, "workshop"},
		{"9:00-10:30 calibration", date(2024, 3, 15), 9, 0, 90 * time.Minute, "calibration"},
		{"2-4pm review", date(2024, 3, 15), 14, 0, 2 * time.Hour, "review"},
		{"11pm-1am release", date(2024, 3, 15), 23, 0, 2 * time.Hour, "release"},
		{"tomorrow at 3pm doctor appointment", date(2024, 3, 16), 15, 0, 0, "doctor appointment"},
		{"next friday 2:30pm team meeting", date(2024, 3, 22), 14, 30, 0, "team meeting"},
		{"May 20, 2024 at noon graduation", date(2024, 5, 20), 12, 0, 0, "graduation"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := parser.Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if !result.HasTime {
				t.Fatal("Expected time to be parsed")
			}
			want := tt.date.Add(time.Duration(tt.hour)*time.Hour + time.Duration(tt.min)*time.Minute)
			if !result.Time.Equal(want) {
				t.Errorf("Time mismatch: got %s, want %s", result.Time, want)
			}
			if result.Duration != tt.duration {
				t.Errorf("Duration mismatch: got %v, want %v", result.Duration, tt.duration)
			}
			if result.Text != tt.text {
				t.Errorf("Text mismatch: got %q, want %q", result.Text, tt.text)
			}
		})
	}
}

func TestParseRejectsBadClocks(t *testing.T) {
	parser := NewTimeParser()
	parser.SetNow(parseNow)

	for _, input := range []string{"13pm", "25:00", "9:75", "0am", "at lunch"} {
		result, err := parser.Parse(input)
		if err != nil {
			t.Fatalf("Parse(%q) failed: %v", input, err)
		}
		if result.HasTime {
			t.Errorf("Parse(%q) read a time %s", input, result.Time.Format("15:04"))
		}
		if result.Text != input {
			t.Errorf("Parse(%q) consumed input, left %q", input, result.Text)
		}
	}
}

func TestParseEmpty(t *testing.T) {
	if _, err := NewTimeParser().Parse("   "); !errors.Is(err, ErrEmpty) {
		t.Errorf("err = %v, want ErrEmpty", err)
	}
}
