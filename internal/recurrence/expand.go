package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// DefaultMaxOccurrences caps a single expansion.
const DefaultMaxOccurrences = 1000

// Occurrence is one concrete instance of a recurring series.
type Occurrence struct {
	Start time.Time
	End   time.Time
}

// ExpandConfig bounds an expansion.
type ExpandConfig struct {
	RangeStart time.Time
	RangeEnd   time.Time
	// MaxOccurrences is a safety cap; zero means DefaultMaxOccurrences.
	MaxOccurrences int
	// ExDates are removed from the series.
	ExDates []time.Time
	// AllDay marks a series whose end is the last covered day at 00:00.
	// Such an occurrence runs until the day after its end.
	AllDay bool
}

// Expand lists the occurrences of a series starting at start and lasting
// end-start that intersect the configured range. truncated is true when the
// cap was hit.
func Expand(start, end time.Time, raw string, cfg ExpandConfig) (occ []Occurrence, truncated bool, err error) {
	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return nil, false, errors.New("recurrence: range end before range start")
	}
	if cfg.MaxOccurrences <= 0 {
		cfg.MaxOccurrences = DefaultMaxOccurrences
	}

	r := FromRule(raw)
	if r.Err != nil {
		return nil, false, fmt.Errorf("recurrence: parse %q: %w", raw, r.Err)
	}
	if r.Kind == KindNone {
		return []Occurrence{{Start: start, End: end}}, false, nil
	}

	opt, err := rrule.StrToROption(trimRule(raw))
	if err != nil {
		return nil, false, fmt.Errorf("recurrence: parse %q: %w", raw, err)
	}
	opt.Dtstart = start
	if opt.Count > 0 {
		opt.Until = time.Time{}
	}
	rule, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, false, fmt.Errorf("recurrence: build rule: %w", err)
	}

	var set rrule.Set
	set.RRule(rule)
	for _, ex := range cfg.ExDates {
		set.ExDate(ex.In(start.Location()))
	}

	dur := end.Sub(start)
	// An all-day member covers whole days, so it ends at the midnight after
	// its last day.
	days := 0
	stop := func(t time.Time) time.Time { return t.Add(dur) }
	if cfg.AllDay {
		days = dayCount(start, end)
		stop = func(t time.Time) time.Time {
			y, m, d := t.Date()
			return time.Date(y, m, d+days, 0, 0, 0, 0, t.Location())
		}
	}
	// Pull the window back by the span so series members that started
	// before the range but are still running are included.
	from := cfg.RangeStart.Add(-dur).AddDate(0, 0, -days).In(start.Location())
	to := cfg.RangeEnd.In(start.Location())

	times := set.Between(from, to, true)
	if len(times) > cfg.MaxOccurrences {
		times = times[:cfg.MaxOccurrences]
		truncated = true
	}

	occ = make([]Occurrence, 0, len(times))
	for _, t := range times {
		o := Occurrence{Start: t, End: t.Add(dur)}
		if !stop(t).After(cfg.RangeStart) && !o.Start.Equal(cfg.RangeStart) {
			continue
		}
		occ = append(occ, o)
	}
	return occ, truncated, nil
}

// dayCount is the number of calendar days from start through end inclusive.
func dayCount(start, end time.Time) int {
	sy, sm, sd := start.Date()
	ey, em, ed := end.In(start.Location()).Date()
	a := time.Date(sy, sm, sd, 12, 0, 0, 0, time.UTC)
	b := time.Date(ey, em, ed, 12, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours()/24) + 1
}

func trimRule(raw string) string {
	s := raw
	if len(s) >= 6 && s[:6] == "RRULE:" {
		s = s[6:]
	}
	return s
}
