package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/hrcal/hrcal/internal/calendar"
)

// FileStore keeps the user's own events in a YAML file. It is both a source
// and the store behind the UI's add, update, delete and RSVP actions.
//
// Besides its own events it records personal state about events owned by
// external feeds: dismissed meetings and RSVP responses. That state is
// applied to the merged event list through the Overlay interface.
type FileStore struct {
	path     string
	readOnly bool
	loc      *time.Location
	log      zerolog.Logger
	newID    func() string

	mu      sync.Mutex
	doc     document
	modTime time.Time
	loaded  bool

	watcher *FileWatcher
	changes chan ChangeEvent
}

type document struct {
	Categories []categoryRecord  `yaml:"categories,omitempty"`
	Events     []eventRecord     `yaml:"events"`
	Responses  map[string]string `yaml:"responses,omitempty"`
	Dismissed  []string          `yaml:"dismissed,omitempty"`
}

type categoryRecord struct {
	ID     string `yaml:"id"`
	Name   string `yaml:"name"`
	Color  string `yaml:"color"`
	Hidden bool   `yaml:"hidden,omitempty"`
}

type eventRecord struct {
	ID          string      `yaml:"id"`
	Title       string      `yaml:"title"`
	Start       time.Time   `yaml:"start"`
	End         time.Time   `yaml:"end"`
	AllDay      bool        `yaml:"all_day,omitempty"`
	Color       string      `yaml:"color,omitempty"`
	Type        string      `yaml:"type,omitempty"`
	Description string      `yaml:"description,omitempty"`
	Location    string      `yaml:"location,omitempty"`
	MeetingURL  string      `yaml:"meeting_url,omitempty"`
	Organizer   string      `yaml:"organizer,omitempty"`
	EmployeeID  string      `yaml:"employee_id,omitempty"`
	Guests      []string    `yaml:"guests,omitempty"`
	Reminders   []int       `yaml:"reminders,omitempty"`
	RSVP        string      `yaml:"rsvp,omitempty"`
	RRule       string      `yaml:"rrule,omitempty"`
	ExDates     []time.Time `yaml:"exdates,omitempty"`
}

// StoreOption configures a FileStore.
type StoreOption func(*FileStore)

// WithReadOnly rejects changes to the store's own events.
func WithReadOnly(readOnly bool) StoreOption {
	return func(s *FileStore) { s.readOnly = readOnly }
}

// WithLocation sets the zone all-day dates are anchored in.
func WithLocation(loc *time.Location) StoreOption {
	return func(s *FileStore) { s.loc = loc }
}

// WithIDGenerator replaces the uuid generator, for tests.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *FileStore) { s.newID = fn }
}

func NewFileStore(path string, log zerolog.Logger, opts ...StoreOption) *FileStore {
	s := &FileStore{
		path:  path,
		loc:   time.Local,
		log:   log,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FileStore) Name() string { return "file:" + filepath.Base(s.path) }

// Path returns the event file location.
func (s *FileStore) Path() string { return s.path }

// load reads the file when it changed since the last read. A missing file is
// an empty calendar.
func (s *FileStore) load() error {
	info, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if !s.loaded {
			s.doc = document{}
			s.loaded = true
		}
		return nil
	}
	if err != nil {
		return err
	}
	if s.loaded && info.ModTime().Equal(s.modTime) {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	s.doc = doc
	s.modTime = info.ModTime()
	s.loaded = true
	s.log.Debug().Str("path", s.path).Int("events", len(doc.Events)).Msg("event file loaded")
	return nil
}

// save writes the document atomically: temp file, fsync, rename.
func (s *FileStore) save() error {
	data, err := yaml.Marshal(&s.doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".hrcal-events-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return err
	}

	if info, err := os.Stat(s.path); err == nil {
		s.modTime = info.ModTime()
	}
	return nil
}

func (s *FileStore) Events(ctx context.Context, start, end time.Time) ([]calendar.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if err := s.load(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	masters := make([]calendar.Event, 0, len(s.doc.Events))
	for _, rec := range s.doc.Events {
		masters = append(masters, s.toEvent(rec))
	}
	s.mu.Unlock()

	return expandEvents(masters, start, end, s.log), nil
}

// All returns every stored event unexpanded, as used by export.
func (s *FileStore) All() ([]calendar.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	out := make([]calendar.Event, 0, len(s.doc.Events))
	for _, rec := range s.doc.Events {
		out = append(out, s.toEvent(rec))
	}
	return out, nil
}

func (s *FileStore) Categories() ([]calendar.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	var out []calendar.Category
	for _, c := range s.doc.Categories {
		out = append(out, calendar.Category{
			ID:     c.ID,
			Name:   c.Name,
			Color:  calendar.Color(c.Color),
			Active: !c.Hidden,
		})
	}
	return out, nil
}

func (s *FileStore) AddEvent(ctx context.Context, ev calendar.Event) (calendar.Event, error) {
	if err := s.checkWritable(ctx, ev); err != nil {
		return calendar.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return calendar.Event{}, err
	}
	ev = ev.Normalize()
	ev.ID = s.newID()
	ev.ParentID = ""
	ev.OccurrenceStart = time.Time{}

	s.doc.Events = append(s.doc.Events, s.toRecord(ev))
	if err := s.save(); err != nil {
		s.doc.Events = s.doc.Events[:len(s.doc.Events)-1]
		return calendar.Event{}, fmt.Errorf("save event: %w", err)
	}
	s.log.Info().Str("id", ev.ID).Str("title", ev.Title).Msg("event added")
	return ev, nil
}

// UpdateEvent replaces a stored event. An edited occurrence updates its
// series: field changes apply to the parent and a time change shifts the
// whole series by the same offset.
func (s *FileStore) UpdateEvent(ctx context.Context, ev calendar.Event) (calendar.Event, error) {
	if err := s.checkWritable(ctx, ev); err != nil {
		return calendar.Event{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return calendar.Event{}, err
	}

	id := ev.ID
	if ev.IsOccurrence() {
		id = ev.ParentID
	}
	idx := s.indexOf(id)
	if idx < 0 {
		return calendar.Event{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	updated := ev
	if ev.IsOccurrence() {
		parent := s.toEvent(s.doc.Events[idx])
		delta := ev.Start.Sub(ev.OccurrenceStart)
		updated.Start = parent.Start.Add(delta)
		updated.End = updated.Start.Add(ev.Duration())
		updated.ExDates = nil
		for _, ex := range parent.ExDates {
			updated.ExDates = append(updated.ExDates, ex.Add(delta))
		}
	}
	updated.ID = id
	updated.ParentID = ""
	updated.OccurrenceStart = time.Time{}
	updated = updated.Normalize()

	prev := s.doc.Events[idx]
	s.doc.Events[idx] = s.toRecord(updated)
	if err := s.save(); err != nil {
		s.doc.Events[idx] = prev
		return calendar.Event{}, fmt.Errorf("save event: %w", err)
	}
	s.log.Info().Str("id", id).Msg("event updated")
	return updated, nil
}

// DeleteEvent removes a stored event. Deleting one occurrence excludes it
// from its series; deleting an external event dismisses it locally.
func (s *FileStore) DeleteEvent(ctx context.Context, ev calendar.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	if ev.IsExternal() {
		if !slices.Contains(s.doc.Dismissed, ev.ID) {
			s.doc.Dismissed = append(s.doc.Dismissed, ev.ID)
		}
		if err := s.save(); err != nil {
			return fmt.Errorf("save dismissal: %w", err)
		}
		s.log.Info().Str("id", ev.ID).Msg("external event dismissed")
		return nil
	}

	if s.readOnly {
		return calendar.ErrReadOnly
	}

	if ev.IsOccurrence() {
		idx := s.indexOf(ev.ParentID)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, ev.ParentID)
		}
		rec := &s.doc.Events[idx]
		rec.ExDates = append(rec.ExDates, ev.OccurrenceStart)
		if err := s.save(); err != nil {
			rec.ExDates = rec.ExDates[:len(rec.ExDates)-1]
			return fmt.Errorf("save exclusion: %w", err)
		}
		s.log.Info().Str("id", ev.ParentID).Time("occurrence", ev.OccurrenceStart).Msg("occurrence removed")
		return nil
	}

	idx := s.indexOf(ev.ID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, ev.ID)
	}
	prev := slices.Clone(s.doc.Events)
	s.doc.Events = slices.Delete(s.doc.Events, idx, idx+1)
	if err := s.save(); err != nil {
		s.doc.Events = prev
		return fmt.Errorf("delete event: %w", err)
	}
	s.log.Info().Str("id", ev.ID).Msg("event deleted")
	return nil
}

// SetRSVP records the user's response. Responses to external events are
// kept in the store and overlaid on the feed's events.
func (s *FileStore) SetRSVP(ctx context.Context, ev calendar.Event, status calendar.RSVPStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	id := ev.ID
	if ev.IsOccurrence() {
		id = ev.ParentID
	}

	if !ev.IsExternal() {
		idx := s.indexOf(id)
		if idx < 0 {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		s.doc.Events[idx].RSVP = string(status)
	} else {
		if s.doc.Responses == nil {
			s.doc.Responses = make(map[string]string)
		}
		s.doc.Responses[id] = string(status)
	}

	if err := s.save(); err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	s.log.Info().Str("id", id).Str("rsvp", string(status)).Msg("response recorded")
	return nil
}

// Import adds events that are not in the store yet, keeping their IDs.
// Events without an ID get a new one.
func (s *FileStore) Import(ctx context.Context, events []calendar.Event) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.readOnly {
		return 0, calendar.ErrReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return 0, err
	}

	added := 0
	for _, ev := range events {
		ev = ev.Normalize()
		if ev.ID == "" {
			ev.ID = s.newID()
		}
		if s.indexOf(ev.ID) >= 0 {
			continue
		}
		ev.ExternalID = ""
		s.doc.Events = append(s.doc.Events, s.toRecord(ev))
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.save(); err != nil {
		return 0, fmt.Errorf("save import: %w", err)
	}
	s.log.Info().Int("added", added).Msg("events imported")
	return added, nil
}

// Apply hides dismissed external events and fills in stored responses.
func (s *FileStore) Apply(events []calendar.Event) []calendar.Event {
	s.mu.Lock()
	dismissed := slices.Clone(s.doc.Dismissed)
	responses := make(map[string]string, len(s.doc.Responses))
	for k, v := range s.doc.Responses {
		responses[k] = v
	}
	s.mu.Unlock()

	out := events[:0]
	for _, ev := range events {
		if slices.Contains(dismissed, ev.ID) || (ev.ParentID != "" && slices.Contains(dismissed, ev.ParentID)) {
			continue
		}
		if r, ok := responses[ev.ID]; ok {
			ev.RSVP = calendar.RSVPStatus(r)
		} else if r, ok := responses[ev.ParentID]; ok && ev.ParentID != "" {
			ev.RSVP = calendar.RSVPStatus(r)
		}
		out = append(out, ev)
	}
	return out
}

// Watch reports changes to the event file made by other programs.
func (s *FileStore) Watch() (<-chan ChangeEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.changes != nil {
		return s.changes, nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, err
	}

	changes := make(chan ChangeEvent, 1)
	watcher, err := NewFileWatcher(func(path string) {
		select {
		case changes <- ChangeEvent{Source: s.Name(), Path: path, Timestamp: time.Now()}:
		default:
		}
	}, s.log)
	if err != nil {
		return nil, err
	}
	if err := watcher.AddFile(s.path); err != nil {
		watcher.Close()
		return nil, err
	}

	s.watcher = watcher
	s.changes = changes
	return changes, nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	s.watcher = nil
	s.changes = nil
	return err
}

func (s *FileStore) checkWritable(ctx context.Context, ev calendar.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.readOnly || ev.IsExternal() {
		return calendar.ErrReadOnly
	}
	if strings.TrimSpace(ev.Title) == "" {
		return errors.New("event title is required")
	}
	return nil
}

func (s *FileStore) indexOf(id string) int {
	for i, rec := range s.doc.Events {
		if rec.ID == id {
			return i
		}
	}
	return -1
}

func (s *FileStore) toEvent(rec eventRecord) calendar.Event {
	ev := calendar.Event{
		ID:          rec.ID,
		Title:       rec.Title,
		Start:       rec.Start.In(s.loc),
		End:         rec.End.In(s.loc),
		AllDay:      rec.AllDay,
		Color:       calendar.Color(rec.Color),
		Type:        rec.Type,
		Description: rec.Description,
		Location:    rec.Location,
		MeetingURL:  rec.MeetingURL,
		Organizer:   rec.Organizer,
		EmployeeID:  rec.EmployeeID,
		Guests:      slices.Clone(rec.Guests),
		Reminders:   slices.Clone(rec.Reminders),
		RSVP:        calendar.RSVPStatus(rec.RSVP),
		RRule:       rec.RRule,
		ExDates:     slices.Clone(rec.ExDates),
	}
	if rec.AllDay {
		// Dates are stored without a zone; pin them to the local calendar.
		ev.Start = s.date(rec.Start)
		ev.End = s.date(rec.End)
	}
	return ev.Normalize()
}

func (s *FileStore) toRecord(ev calendar.Event) eventRecord {
	rec := eventRecord{
		ID:          ev.ID,
		Title:       strings.TrimSpace(ev.Title),
		Start:       ev.Start,
		End:         ev.End,
		AllDay:      ev.AllDay,
		Color:       string(ev.Color),
		Type:        ev.Type,
		Description: ev.Description,
		Location:    ev.Location,
		MeetingURL:  ev.MeetingURL,
		Organizer:   ev.Organizer,
		EmployeeID:  ev.EmployeeID,
		Guests:      slices.Clone(ev.Guests),
		Reminders:   slices.Clone(ev.Reminders),
		RSVP:        string(ev.RSVP),
		RRule:       ev.RRule,
		ExDates:     slices.Clone(ev.ExDates),
	}
	if ev.AllDay {
		rec.Start = utcDate(ev.Start)
		rec.End = utcDate(ev.End)
	}
	return rec
}

func (s *FileStore) date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
