// Package parser reads the free-form date and time expressions typed into
// the goto prompt and the quick-entry line of the event form.
package parser

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var ErrEmpty = errors.New("empty input")

const (
	monthNames   = `jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?`
	weekdayNames = `sun(?:day)?|mon(?:day)?|tue(?:s(?:day)?)?|wed(?:nesday)?|thu(?:r(?:s(?:day)?)?)?|fri(?:day)?|sat(?:urday)?`
	ordinal      = `(?:st|nd|rd|th)?`
)

// ParsedTime is the leading date and time of an input line. Time is on
// Date and only meaningful when HasTime is set.
type ParsedTime struct {
	Date     time.Time
	HasTime  bool
	Time     time.Time
	Duration time.Duration // set by ranges such as 9:00-10:30
	Text     string        // input left after the date and time
}

// TimeParser resolves relative expressions against a fixed now.
type TimeParser struct {
	now time.Time
	loc *time.Location
}

func NewTimeParser() *TimeParser {
	return &TimeParser{now: time.Now(), loc: time.Local}
}

func (p *TimeParser) SetNow(now time.Time) {
	p.now = now
}

// dateRule reads one date expression at the start of lowercased input.
type dateRule struct {
	re   *regexp.Regexp
	date func(p *TimeParser, m []string) (time.Time, bool)
}

var dateRules = []dateRule{
	{regexp.MustCompile(`^today\b`), func(p *TimeParser, m []string) (time.Time, bool) {
		return p.today(), true
	}},
	{regexp.MustCompile(`^(?:tomorrow|tmrw)\b`), func(p *TimeParser, m []string) (time.Time, bool) {
		return p.today().AddDate(0, 0, 1), true
	}},
	{regexp.MustCompile(`^yesterday\b`), func(p *TimeParser, m []string) (time.Time, bool) {
		return p.today().AddDate(0, 0, -1), true
	}},
	{regexp.MustCompile(`^next\s+(week|month|year)\b`), func(p *TimeParser, m []string) (time.Time, bool) {
		return p.offset(1, m[1]), true
	}},
	{regexp.MustCompile(`^(?:(next|this)\s+)?(` + weekdayNames + `)\b`), func(p *TimeParser, m []string) (time.Time, bool) {
		return p.upcoming(weekdays[m[2][:3]], m[1] == "next"), true
	}},
	{regexp.MustCompile(`^in\s+(\d+)\s+(day|week|month|year)s?\b`), func(p *TimeParser, m []string) (time.Time, bool) {
		n, _ := strconv.Atoi(m[1])
		return p.offset(n, m[2]), true
	}},
	{regexp.MustCompile(`^(\d+)\s+(day|week|month|year)s?\s+from\s+(?:now|today)\b`), func(p *TimeParser, m []string) (time.Time, bool) {
		n, _ := strconv.Atoi(m[1])
		return p.offset(n, m[2]), true
	}},
	// 2026-06-10
	{regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\b`), func(p *TimeParser, m []string) (time.Time, bool) {
		return p.date(m[1], m[2], m[3])
	}},
	// 6/10/2026 or 6-10-2026
	{regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`), func(p *TimeParser, m []string) (time.Time, bool) {
		return p.date(m[3], m[1], m[2])
	}},
	// 6/10, this year
	{regexp.MustCompile(`^(\d{1,2})[/-](\d{1,2})\b`), func(p *TimeParser, m []string) (time.Time, bool) {
		return p.date("", m[1], m[2])
	}},
	// June 10, June 10th 2026
	{regexp.MustCompile(`^(` + monthNames + `)\.?\s+(\d{1,2})` + ordinal + `(?:,?\s+(\d{4}))?\b`), func(p *TimeParser, m []string) (time.Time, bool) {
		return p.date(m[3], strconv.Itoa(int(months[m[1][:3]])), m[2])
	}},
	// 10 June, 10th June 2026
	{regexp.MustCompile(`^(\d{1,2})` + ordinal + `\s+(` + monthNames + `)\.?(?:\s+(\d{4}))?\b`), func(p *TimeParser, m []string) (time.Time, bool) {
		return p.date(m[3], strconv.Itoa(int(months[m[2][:3]])), m[1])
	}},
}

var weekdays = map[string]time.Weekday{
	"sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
	"thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

var months = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

var (
	rangeRe = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*-\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
	clockRe = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
)

// namedTimes are checked in order so that longer names win.
var namedTimes = []struct {
	name string
	hour int
}{
	{"afternoon", 14},
	{"midnight", 0},
	{"morning", 9},
	{"evening", 18},
	{"night", 21},
	{"noon", 12},
}

// Parse reads an optional date followed by an optional time. Without a
// date the result is today.
func (p *TimeParser) Parse(input string) (*ParsedTime, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmpty
	}

	result := &ParsedTime{Date: p.today()}
	rest := input
	if date, n, ok := p.matchDate(rest); ok {
		result.Date = date
		rest = strings.TrimSpace(rest[n:])
	}

	if h, m, d, n, ok := matchTime(rest); ok {
		result.HasTime = true
		result.Time = time.Date(result.Date.Year(), result.Date.Month(), result.Date.Day(), h, m, 0, 0, p.loc)
		result.Duration = d
		rest = strings.TrimSpace(rest[n:])
	}

	result.Text = rest
	return result, nil
}

// matchDate returns the date at the start of input and its length.
func (p *TimeParser) matchDate(input string) (time.Time, int, bool) {
	lower := strings.ToLower(input)
	for _, rule := range dateRules {
		m := rule.re.FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if date, ok := rule.date(p, m); ok {
			return date, len(m[0]), true
		}
		// A malformed date such as 2/30 is not read as anything else.
		return time.Time{}, 0, false
	}
	return time.Time{}, 0, false
}

// matchTime reads a clock time, a range or a named time of day, optionally
// preceded by "at". It returns the hour, minute, range length and the
// number of bytes consumed.
func matchTime(input string) (hour, minute int, d time.Duration, n int, ok bool) {
	lower := strings.ToLower(input)
	if strings.HasPrefix(lower, "at ") {
		n = 3
		lower = lower[3:]
	}

	if m := rangeRe.FindStringSubmatch(lower); m != nil {
		// "2-4pm": the start takes the end's meridiem.
		startMer := m[3]
		if startMer == "" {
			startMer = m[6]
		}
		sh, sm, ok1 := clock(m[1], m[2], startMer)
		eh, em, ok2 := clock(m[4], m[5], m[6])
		if ok1 && ok2 {
			d = time.Duration((eh-sh)*60+(em-sm)) * time.Minute
			if d <= 0 {
				// 11pm-1am runs past midnight.
				d += 24 * time.Hour
			}
			return sh, sm, d, n + len(m[0]), true
		}
	}

	// A bare number is a count, not a time.
	if m := clockRe.FindStringSubmatch(lower); m != nil && (m[2] != "" || m[3] != "") {
		if h, mm, ok := clock(m[1], m[2], m[3]); ok {
			return h, mm, 0, n + len(m[0]), true
		}
	}

	for _, nt := range namedTimes {
		if strings.HasPrefix(lower, nt.name) {
			return nt.hour, 0, 0, n + len(nt.name), true
		}
	}
	return 0, 0, 0, 0, false
}

func clock(hour, minute, meridiem string) (int, int, bool) {
	h, _ := strconv.Atoi(hour)
	m := 0
	if minute != "" {
		m, _ = strconv.Atoi(minute)
	}
	if meridiem != "" && (h < 1 || h > 12) {
		return 0, 0, false
	}
	switch {
	case meridiem == "pm" && h < 12:
		h += 12
	case meridiem == "am" && h == 12:
		h = 0
	}
	if h > 23 || m > 59 {
		return 0, 0, false
	}
	return h, m, true
}

// date builds a calendar date, rejecting days the month does not have. An
// empty year means the current one.
func (p *TimeParser) date(year, month, day string) (time.Time, bool) {
	y := p.now.Year()
	if year != "" {
		y, _ = strconv.Atoi(year)
	}
	mo, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)

	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, p.loc)
	if t.Year() != y || int(t.Month()) != mo || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}

func (p *TimeParser) offset(n int, unit string) time.Time {
	switch unit {
	case "week":
		return p.today().AddDate(0, 0, 7*n)
	case "month":
		return p.today().AddDate(0, n, 0)
	case "year":
		return p.today().AddDate(n, 0, 0)
	}
	return p.today().AddDate(0, 0, n)
}

// upcoming is the next target weekday after today. With skip set, a week
// further out ("next friday" on a Monday is eleven days away).
func (p *TimeParser) upcoming(target time.Weekday, skip bool) time.Time {
	days := int(target - p.now.Weekday())
	if days <= 0 || skip {
		days += 7
	}
	return p.today().AddDate(0, 0, days)
}

func (p *TimeParser) today() time.Time {
	y, m, d := p.now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, p.loc)
}
