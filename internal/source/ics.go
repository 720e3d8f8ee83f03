package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/rs/zerolog"

	"github.com/hrcal/hrcal/internal/calendar"
)

const fetchTimeout = 15 * time.Second

// ICSFeed is a read-only external calendar read from a file or an HTTP(S)
// URL. Every event it yields is marked external.
type ICSFeed struct {
	name      string
	eventType string
	url       string
	client    *http.Client
	log       zerolog.Logger

	mu       sync.Mutex
	lastBody []byte
	watcher  *FileWatcher
	changes  chan ChangeEvent
}

func NewICSFeed(name, eventType, url string, log zerolog.Logger) *ICSFeed {
	return &ICSFeed{
		name:      name,
		eventType: eventType,
		url:       url,
		client:    &http.Client{Timeout: fetchTimeout},
		log:       log,
	}
}

func (f *ICSFeed) Name() string { return "ics:" + f.name }

func (f *ICSFeed) isRemote() bool {
	return strings.HasPrefix(f.url, "http://") || strings.HasPrefix(f.url, "https://")
}

// fetch returns the feed body. A failed fetch falls back to the last body
// that was read successfully.
func (f *ICSFeed) fetch(ctx context.Context) ([]byte, error) {
	body, err := f.read(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err != nil {
		if len(f.lastBody) > 0 {
			f.log.Warn().Err(err).Str("feed", f.name).Str("url", redactURL(f.url)).Msg("feed fetch failed, using last good copy")
			return f.lastBody, nil
		}
		return nil, err
	}
	f.lastBody = body
	return body, nil
}

func (f *ICSFeed) read(ctx context.Context) ([]byte, error) {
	if !f.isRemote() {
		return os.ReadFile(f.url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", redactURL(f.url), resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (f *ICSFeed) Events(ctx context.Context, start, end time.Time) ([]calendar.Event, error) {
	body, err := f.fetch(ctx)
	if err != nil {
		return nil, err
	}
	masters, err := ParseICS(body, ParseOptions{Feed: f.name, Type: f.eventType}, f.log)
	if err != nil {
		return nil, err
	}
	return expandEvents(masters, start, end, f.log), nil
}

func (f *ICSFeed) Categories() ([]calendar.Category, error) { return nil, nil }

// Watch is supported for file feeds only; URL feeds are refreshed on a
// schedule instead.
func (f *ICSFeed) Watch() (<-chan ChangeEvent, error) {
	if f.isRemote() {
		return nil, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.changes != nil {
		return f.changes, nil
	}

	changes := make(chan ChangeEvent, 1)
	watcher, err := NewFileWatcher(func(path string) {
		select {
		case changes <- ChangeEvent{Source: f.Name(), Path: path, Timestamp: time.Now()}:
		default:
		}
	}, f.log)
	if err != nil {
		return nil, err
	}
	if err := watcher.AddFile(f.url); err != nil {
		watcher.Close()
		return nil, err
	}
	f.watcher = watcher
	f.changes = changes
	return changes, nil
}

func (f *ICSFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.watcher == nil {
		return nil
	}
	err := f.watcher.Close()
	f.watcher = nil
	f.changes = nil
	return err
}

// ParseOptions controls how VEVENTs are mapped to events.
type ParseOptions struct {
	// Feed marks events as external; empty leaves them local, as for import.
	Feed string
	// Type is assigned to every event; when empty the first CATEGORIES
	// value is used.
	Type string
	// Location anchors all-day dates; nil means time.Local.
	Location *time.Location
}

// ParseICS decodes a calendar into series masters. Recurring events keep
// their RRULE and EXDATEs and are expanded by the caller. A VEVENT that
// cannot be read is logged and skipped.
func ParseICS(body []byte, opts ParseOptions, log zerolog.Logger) ([]calendar.Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse ics: %w", err)
	}

	var out []calendar.Event
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(ve, opts)
		if err != nil {
			log.Warn().Err(err).Str("feed", opts.Feed).Msg("skipping vevent")
			continue
		}
		out = append(out, ev)
	}
	log.Debug().Str("feed", opts.Feed).Int("events", len(out)).Msg("ics parsed")
	return out, nil
}

func parseVEvent(ve *ical.VEvent, opts ParseOptions) (calendar.Event, error) {
	var ev calendar.Event

	uid := propValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return ev, errors.New("missing UID")
	}
	// Overridden instances are not modelled; the series master covers them.
	if ve.GetProperty(ical.ComponentProperty("RECURRENCE-ID")) != nil {
		return ev, fmt.Errorf("%s: recurrence override not supported", uid)
	}

	ev.ID = uid
	ev.Title = propValue(ve, ical.ComponentPropertySummary)
	ev.Description = propValue(ve, ical.ComponentPropertyDescription)
	ev.Location = propValue(ve, ical.ComponentPropertyLocation)
	ev.MeetingURL = propValue(ve, ical.ComponentPropertyUrl)
	ev.Organizer = stripMailto(propValue(ve, ical.ComponentPropertyOrganizer))
	for _, p := range ve.GetProperties(ical.ComponentPropertyAttendee) {
		if g := stripMailto(p.Value); g != "" {
			ev.Guests = append(ev.Guests, g)
		}
	}

	ev.Type = opts.Type
	if ev.Type == "" {
		if cats := propValue(ve, ical.ComponentPropertyCategories); cats != "" {
			ev.Type = strings.TrimSpace(strings.Split(cats, ",")[0])
		}
	}
	if opts.Feed != "" {
		ev.ExternalID = opts.Feed + ":" + uid
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return ev, fmt.Errorf("%s: missing DTSTART", uid)
	}
	ev.AllDay = isDateValue(dtStart)

	if ev.AllDay {
		start, err := ve.GetAllDayStartAt()
		if err != nil {
			return ev, fmt.Errorf("%s: DTSTART: %w", uid, err)
		}
		ev.Start = inDate(start, opts.Location)
		ev.End = ev.Start
		if end, err := ve.GetAllDayEndAt(); err == nil {
			// DTEND is exclusive for dates; events keep an inclusive end.
			last := inDate(end, opts.Location).AddDate(0, 0, -1)
			if last.After(ev.Start) {
				ev.End = last
			}
		}
	} else {
		start, err := ve.GetStartAt()
		if err != nil {
			return ev, fmt.Errorf("%s: DTSTART: %w", uid, err)
		}
		ev.Start = start
		ev.End = start
		if end, err := ve.GetEndAt(); err == nil {
			ev.End = end
		}
	}

	if rule := propValue(ve, ical.ComponentPropertyRrule); rule != "" {
		ev.RRule = rule
		for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
			loc := paramLocation(p, ev.Start.Location())
			for _, part := range strings.Split(p.Value, ",") {
				if t, err := parseICSTime(strings.TrimSpace(part), loc); err == nil {
					ev.ExDates = append(ev.ExDates, t)
				}
			}
		}
	}

	if ev.Type == calendar.TypeInternal {
		ev.RSVP = calendar.RSVPNeedsAction
	}
	return ev.Normalize(), nil
}

func propValue(ve *ical.VEvent, prop ical.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return strings.TrimSpace(p.Value)
	}
	return ""
}

func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

func inDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func stripMailto(v string) string {
	v = strings.TrimSpace(v)
	if len(v) >= 7 && strings.EqualFold(v[:7], "mailto:") {
		return v[7:]
	}
	return v
}

// paramLocation is the zone named by a property's TZID parameter. Without
// one, or for a zone this system does not know, it is fallback.
func paramLocation(p *ical.IANAProperty, fallback *time.Location) *time.Location {
	if ids := p.ICalParameters[string(ical.ParameterTzid)]; len(ids) == 1 {
		if loc, err := time.LoadLocation(ids[0]); err == nil {
			return loc
		}
	}
	return fallback
}

// parseICSTime reads the DATE and DATE-TIME forms used by EXDATE.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}
	return time.ParseInLocation("20060102", v, loc)
}

// redactURL keeps only the scheme and host of a feed URL for logging;
// private calendar URLs usually carry a token in the path or query.
func redactURL(u string) string {
	i := strings.Index(u, "://")
	if i < 0 {
		return u
	}
	rest := u[i+3:]
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		rest = rest[:j]
	}
	return u[:i+3] + rest + "/..."
}
