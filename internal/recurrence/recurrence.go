// Package recurrence converts between the structured repeat pattern edited in
// the event form and RRULE strings, and expands rules into occurrences.
//
// The rule string is authoritative. Kind is only a display bucket: a rule the
// form cannot edit is reported as KindCustom but its fields and raw text are
// preserved.
package recurrence

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// Frequency is how often a pattern repeats.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// Kind is the simplified bucket offered by the form's repeat select.
type Kind string

const (
	KindNone    Kind = "none"
	KindDaily   Kind = "daily"
	KindWeekly  Kind = "weekly"
	KindMonthly Kind = "monthly"
	KindYearly  Kind = "yearly"
	KindCustom  Kind = "custom"
)

// Kinds lists the buckets the form cycles through. Custom is display-only.
var Kinds = []Kind{KindNone, KindDaily, KindWeekly, KindMonthly, KindYearly}

// ErrBoundedTwice is returned when encoding a pattern with both Count and
// Until set. Decoding such a rule keeps Count.
var ErrBoundedTwice = errors.New("recurrence: count and until are mutually exclusive")

// Pattern is a structured repeat description.
type Pattern struct {
	Frequency  Frequency      `yaml:"frequency" json:"frequency"`
	Interval   int            `yaml:"interval" json:"interval"`
	ByWeekday  []time.Weekday `yaml:"by_weekday,omitempty" json:"by_weekday,omitempty"`
	ByMonthDay []int          `yaml:"by_month_day,omitempty" json:"by_month_day,omitempty"`
	Count      int            `yaml:"count,omitempty" json:"count,omitempty"`
	Until      time.Time      `yaml:"until,omitempty" json:"until,omitempty"`
}

// Clone deep-copies the pattern.
func (p Pattern) Clone() Pattern {
	out := p
	out.ByWeekday = append([]time.Weekday(nil), p.ByWeekday...)
	out.ByMonthDay = append([]int(nil), p.ByMonthDay...)
	return out
}

// Bounded reports whether the pattern ends.
func (p Pattern) Bounded() bool {
	return p.Count > 0 || !p.Until.IsZero()
}

// Rule is the result of decoding a rule string.
type Rule struct {
	Raw     string
	Pattern Pattern
	Kind    Kind
	// Err is set when Raw could not be parsed; Pattern is then best effort.
	Err error
}

var toRRuleFreq = map[Frequency]rrule.Frequency{
	Daily:   rrule.DAILY,
	Weekly:  rrule.WEEKLY,
	Monthly: rrule.MONTHLY,
	Yearly:  rrule.YEARLY,
}

var fromRRuleFreq = map[rrule.Frequency]Frequency{
	rrule.DAILY:   Daily,
	rrule.WEEKLY:  Weekly,
	rrule.MONTHLY: Monthly,
	rrule.YEARLY:  Yearly,
}

// time.Weekday is Sunday-based, rrule weekdays are Monday-based.
var toRRuleDay = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

func fromRRuleDay(d rrule.Weekday) time.Weekday {
	return time.Weekday((d.Day() + 1) % 7)
}

// Options builds the rrule options for p without a DTSTART.
func (p Pattern) Options() (rrule.ROption, error) {
	freq, ok := toRRuleFreq[p.Frequency]
	if !ok {
		return rrule.ROption{}, fmt.Errorf("recurrence: unknown frequency %q", p.Frequency)
	}
	if p.Count > 0 && !p.Until.IsZero() {
		return rrule.ROption{}, ErrBoundedTwice
	}

	interval := p.Interval
	if interval < 1 {
		interval = 1
	}
	opt := rrule.ROption{
		Freq:       freq,
		Interval:   interval,
		Count:      p.Count,
		Until:      p.Until,
		Bymonthday: append([]int(nil), p.ByMonthDay...),
	}
	for _, d := range sortedWeekdays(p.ByWeekday) {
		opt.Byweekday = append(opt.Byweekday, toRRuleDay[d])
	}
	return opt, nil
}

// ToRule encodes p as an RRULE value, e.g. FREQ=WEEKLY;INTERVAL=1;BYDAY=MO.
// A pattern without a frequency does not repeat and encodes as "".
func ToRule(p Pattern) (string, error) {
	if p.Frequency == "" {
		return "", nil
	}
	opt, err := p.Options()
	if err != nil {
		return "", err
	}
	return opt.RRuleString(), nil
}

// FromRule decodes raw. It never fails: an unparseable rule comes back as
// KindCustom with Err set and Raw untouched.
func FromRule(raw string) Rule {
	r := Rule{Raw: raw}
	body := strings.TrimSpace(raw)
	body = strings.TrimPrefix(body, "RRULE:")
	if body == "" {
		r.Kind = KindNone
		return r
	}

	opt, err := rrule.StrToROption(body)
	if err != nil {
		r.Kind = KindCustom
		r.Err = err
		r.Pattern = bestEffort(body)
		return r
	}

	// A rule bounded by both COUNT and UNTIL stops at the count.
	if opt.Count > 0 {
		opt.Until = time.Time{}
	}
	r.Pattern = fromOptions(*opt)
	r.Kind = Classify(r.Pattern)
	if hasUnsupportedParts(*opt) {
		r.Kind = KindCustom
	}
	return r
}

func fromOptions(opt rrule.ROption) Pattern {
	p := Pattern{
		Frequency: fromRRuleFreq[opt.Freq],
		Interval:  opt.Interval,
		Count:     opt.Count,
		Until:     opt.Until,
	}
	if p.Interval < 1 {
		p.Interval = 1
	}
	for _, d := range opt.Byweekday {
		p.ByWeekday = append(p.ByWeekday, fromRRuleDay(d))
	}
	p.ByWeekday = sortedWeekdays(p.ByWeekday)
	if len(opt.Bymonthday) > 0 {
		p.ByMonthDay = append([]int(nil), opt.Bymonthday...)
	}
	return p
}

// hasUnsupportedParts flags rule parts the Pattern cannot carry.
func hasUnsupportedParts(opt rrule.ROption) bool {
	if _, ok := fromRRuleFreq[opt.Freq]; !ok {
		return true
	}
	for _, d := range opt.Byweekday {
		if d.N() != 0 {
			return true
		}
	}
	return len(opt.Bysetpos) > 0 || len(opt.Bymonth) > 0 || len(opt.Byyearday) > 0 ||
		len(opt.Byweekno) > 0 || len(opt.Byhour) > 0 || len(opt.Byminute) > 0 ||
		len(opt.Bysecond) > 0 || len(opt.Byeaster) > 0
}

// bestEffort recovers the frequency from a rule rrule-go refused.
func bestEffort(body string) Pattern {
	p := Pattern{Interval: 1}
	for _, part := range strings.Split(strings.ToUpper(body), ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || key != "FREQ" {
			continue
		}
		switch value {
		case "DAILY":
			p.Frequency = Daily
		case "WEEKLY":
			p.Frequency = Weekly
		case "MONTHLY":
			p.Frequency = Monthly
		case "YEARLY":
			p.Frequency = Yearly
		}
	}
	return p
}

// Classify maps a pattern to the form's simplified buckets. Anything beyond
// interval 1 with at most one weekday or month day and no bound is custom.
func Classify(p Pattern) Kind {
	if p.Frequency == "" {
		return KindNone
	}
	if p.Interval > 1 || p.Bounded() {
		return KindCustom
	}
	switch p.Frequency {
	case Daily:
		if len(p.ByWeekday) == 0 && len(p.ByMonthDay) == 0 {
			return KindDaily
		}
	case Weekly:
		if len(p.ByWeekday) <= 1 && len(p.ByMonthDay) == 0 {
			return KindWeekly
		}
	case Monthly:
		if len(p.ByMonthDay) <= 1 && len(p.ByWeekday) == 0 {
			return KindMonthly
		}
	case Yearly:
		if len(p.ByWeekday) == 0 && len(p.ByMonthDay) == 0 {
			return KindYearly
		}
	}
	return KindCustom
}

// Preset is the canonical pattern for a form bucket anchored at start.
// KindNone and KindCustom have no preset.
func Preset(kind Kind, start time.Time) (Pattern, bool) {
	switch kind {
	case KindDaily:
		return Pattern{Frequency: Daily, Interval: 1}, true
	case KindWeekly:
		return Pattern{Frequency: Weekly, Interval: 1, ByWeekday: []time.Weekday{start.Weekday()}}, true
	case KindMonthly:
		return Pattern{Frequency: Monthly, Interval: 1, ByMonthDay: []int{start.Day()}}, true
	case KindYearly:
		return Pattern{Frequency: Yearly, Interval: 1}, true
	}
	return Pattern{}, false
}

// Describe renders a short human label for a rule.
func Describe(r Rule) string {
	p := r.Pattern
	switch r.Kind {
	case KindNone:
		return "Does not repeat"
	case KindDaily:
		return "Daily"
	case KindWeekly:
		if len(p.ByWeekday) == 1 {
			return "Weekly on " + p.ByWeekday[0].String()
		}
		return "Weekly"
	case KindMonthly:
		if len(p.ByMonthDay) == 1 {
			return fmt.Sprintf("Monthly on day %d", p.ByMonthDay[0])
		}
		return "Monthly"
	case KindYearly:
		return "Yearly"
	}
	return "Custom (" + r.Raw + ")"
}

func sortedWeekdays(days []time.Weekday) []time.Weekday {
	if len(days) == 0 {
		return nil
	}
	out := append([]time.Weekday(nil), days...)
	// Monday-first, matching BYDAY ordering.
	sort.Slice(out, func(i, j int) bool {
		return (out[i]+6)%7 < (out[j]+6)%7
	})
	return out
}
