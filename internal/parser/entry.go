package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hrcal/hrcal/internal/recurrence"
)

var (
	allDayRe = regexp.MustCompile(`^(all[\s-]?day)\b`)
	forRe    = regexp.MustCompile(`^for\s+(\d+d|(?:\d+h)?(?:\d+m)?)\b`)
	everyRe  = regexp.MustCompile(`^(?:every\s+(day|week|month|year)|(daily|weekly|monthly|yearly))\b`)
)

// Entry is a quick-entry line decoded into event fields, e.g.
// "tomorrow 2pm for 90m Interview with Sam" or "5/20 all day weekly Offsite".
type Entry struct {
	Title   string
	Start   time.Time
	End     time.Time
	AllDay  bool
	HasTime bool
	Repeat  recurrence.Kind
}

// ParseEntry decodes a quick-entry line. Without a time the entry is all
// day; without a range or "for" clause a timed entry lasts defaultDuration.
func (p *TimeParser) ParseEntry(input string, defaultDuration time.Duration) (Entry, error) {
	parsed, err := p.Parse(input)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{HasTime: parsed.HasTime, Repeat: recurrence.KindNone}
	text := parsed.Text
	duration := parsed.Duration
	days := 0

	for {
		lower := strings.ToLower(text)
		if m := allDayRe.FindStringSubmatch(lower); m != nil {
			e.AllDay = true
			text = strings.TrimSpace(text[len(m[0]):])
			continue
		}
		if m := forRe.FindStringSubmatch(lower); m != nil && m[1] != "" {
			if strings.HasSuffix(m[1], "d") {
				days, _ = strconv.Atoi(strings.TrimSuffix(m[1], "d"))
			} else {
				d, err := time.ParseDuration(m[1])
				if err != nil {
					return Entry{}, fmt.Errorf("invalid duration %q: %w", m[1], err)
				}
				duration = d
			}
			text = strings.TrimSpace(text[len(m[0]):])
			continue
		}
		if m := everyRe.FindStringSubmatch(lower); m != nil {
			unit := m[1]
			if unit == "" {
				unit = m[2]
			}
			e.Repeat = repeatKind(unit)
			text = strings.TrimSpace(text[len(m[0]):])
			continue
		}
		break
	}

	e.Title = strings.TrimSpace(text)
	if e.Title == "" {
		return Entry{}, fmt.Errorf("missing title")
	}

	if !e.HasTime {
		e.AllDay = true
	}

	date := parsed.Date
	if e.AllDay {
		e.HasTime = false
		e.Start = date
		if days < 1 {
			days = 1
		}
		e.End = date.AddDate(0, 0, days-1)
		return e, nil
	}

	e.Start = time.Date(date.Year(), date.Month(), date.Day(),
		parsed.Time.Hour(), parsed.Time.Minute(), 0, 0, date.Location())
	if duration <= 0 {
		duration = defaultDuration
	}
	if days > 0 {
		duration = time.Duration(days) * 24 * time.Hour
	}
	e.End = e.Start.Add(duration)
	return e, nil
}

func repeatKind(unit string) recurrence.Kind {
	switch unit {
	case "day", "daily":
		return recurrence.KindDaily
	case "week", "weekly":
		return recurrence.KindWeekly
	case "month", "monthly":
		return recurrence.KindMonthly
	case "year", "yearly":
		return recurrence.KindYearly
	}
	return recurrence.KindNone
}
