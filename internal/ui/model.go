package ui

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/rs/zerolog"

	"github.com/hrcal/hrcal/internal/calendar"
	"github.com/hrcal/hrcal/internal/config"
	"github.com/hrcal/hrcal/internal/parser"
	"github.com/hrcal/hrcal/internal/source"
)

const (
	sidebarWidth   = 24
	messageTimeout = 3 * time.Second
)

type Model struct {
	// Core components
	config   *config.Config
	source   source.EventSource
	store    source.EventStore
	log      zerolog.Logger
	parser   *parser.TimeParser
	now      func() time.Time
	changes  <-chan source.ChangeEvent
	onDialog func(open bool)

	// Calendar state
	state      *calendar.State
	visibility *calendar.Visibility
	drag       calendar.Drag

	// Loaded events cover [loadedFrom, loadedTo)
	events     []calendar.Event
	loaded     bool
	loadedFrom time.Time
	loadedTo   time.Time
	// loadSeq numbers load requests; appliedSeq is the newest one shown.
	loadSeq    int
	appliedSeq int

	// Cursor within the current day
	slot   int // time-grid row, rows_per_hour rows per hour
	topRow int // first visible time-grid row
	focus  int // index into the current day's events, -1 for none

	// Overlays
	dialog      *dialog
	prompt      *input
	helpVisible bool

	// UI state
	width     int
	height    int
	message   string
	messageID int

	styles Styles
}

type Styles struct {
	Normal   lipgloss.Style
	Selected lipgloss.Style
	Cursor   lipgloss.Style
	Today    lipgloss.Style
	Weekend  lipgloss.Style
	Header   lipgloss.Style
	Muted    lipgloss.Style
	Now      lipgloss.Style
	Message  lipgloss.Style
	Warning  lipgloss.Style
	Dialog   lipgloss.Style
	Ghost    lipgloss.Style
}

// NewModel builds the calendar UI. store may be nil, in which case the
// calendar is read-only.
func NewModel(cfg *config.Config, src source.EventSource, store source.EventStore, log zerolog.Logger) *Model {
	now := time.Now()

	m := &Model{
		config:     cfg,
		source:     src,
		store:      store,
		log:        log,
		parser:     parser.NewTimeParser(),
		now:        time.Now,
		state:      calendar.NewState(now, cfg.StartupView),
		visibility: calendar.NewVisibility(cfg.Categories),
		focus:      -1,
		styles:     NewStyles(cfg.Colors),
	}
	m.slot = m.slotFor(now)
	m.topRow = m.slot - m.rowsPerHour()*2
	return m
}

// SetClock overrides the time source and refocuses the calendar on it.
func (m *Model) SetClock(now func() time.Time) {
	m.now = now
	m.state.SetClock(now)
	m.state.GoToToday()
	m.slot = m.slotFor(now())
}

// WatchChanges makes the model reload whenever ch delivers.
func (m *Model) WatchChanges(ch <-chan source.ChangeEvent) {
	m.changes = ch
}

// OnDialogChange registers fn to be told whenever an event dialog opens or
// closes.
func (m *Model) OnDialogChange(fn func(open bool)) {
	m.onDialog = fn
}

func NewStyles(colors map[string]string) Styles {
	c := func(name, fallback string) string {
		if v, ok := colors[name]; ok && v != "" {
			return v
		}
		return fallback
	}

	return Styles{
		Normal: lipgloss.NewStyle().
			Foreground(lipgloss.Color(c("normal", "252"))),
		Selected: lipgloss.NewStyle().
			Foreground(lipgloss.Color("235")).
			Background(lipgloss.Color(c("selected", "220"))).
			Bold(true),
		Cursor: lipgloss.NewStyle().
			Background(lipgloss.Color("238")),
		Today: lipgloss.NewStyle().
			Foreground(lipgloss.Color(c("today", "220"))).
			Bold(true),
		Weekend: lipgloss.NewStyle().
			Foreground(lipgloss.Color(c("weekend", "39"))),
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color(c("header", "220"))).
			Bold(true),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(c("muted", "241"))),
		Now: lipgloss.NewStyle().
			Foreground(lipgloss.Color(c("now", "196"))).
			Bold(true),
		Message: lipgloss.NewStyle().
			Foreground(lipgloss.Color("220")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
		Warning: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true),
		Dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Background(lipgloss.Color("235")).
			Padding(0, 1),
		Ghost: lipgloss.NewStyle().
			Foreground(lipgloss.Color("235")).
			Background(lipgloss.Color("245")),
	}
}

// Messages

type eventsLoadedMsg struct {
	seq        int
	start      time.Time
	end        time.Time
	events     []calendar.Event
	categories []calendar.Category
	err        error
}

// ReloadMsg asks the model to fetch its events again. It is sent by the
// refresh scheduler.
type ReloadMsg struct{}

// NewEventMsg opens the new event form at the cursor, for hosts that offer
// their own "new event" control.
type NewEventMsg struct{}

type changeMsg source.ChangeEvent

type tickMsg time.Time

type messageTimeoutMsg struct{ id int }

func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		m.reload(),
		m.tickCmd(),
		listen(m.changes),
	)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.scrollToSlot()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case eventsLoadedMsg:
		return m.handleEventsLoaded(msg)

	case storeResultMsg:
		return m.handleStoreResult(msg)

	case ReloadMsg:
		return m, m.reload()

	case NewEventMsg:
		if _, dragging := m.drag.Active(); dragging || m.dialog != nil {
			return m, nil
		}
		return m, m.newEvent()

	case changeMsg:
		m.log.Debug().Str("source", msg.Source).Str("path", msg.Path).Msg("source changed")
		return m, tea.Batch(m.reload(), listen(m.changes))

	case tickMsg:
		// Redraw for the current-time indicator
		return m, m.tickCmd()

	case messageTimeoutMsg:
		if msg.id == m.messageID {
			m.message = ""
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	// Filter once per render pass
	events := m.visibility.Filter(m.events)
	mainWidth, bodyHeight := m.mainSize()

	var body string
	switch m.state.View() {
	case calendar.ViewWeek, calendar.ViewDay:
		body = m.renderTimeGrid(events, mainWidth, bodyHeight)
	case calendar.ViewAgenda:
		body = m.renderAgenda(events, mainWidth, bodyHeight)
	default:
		body = m.renderMonth(events, mainWidth, bodyHeight)
	}

	if m.showSidebar() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, " ", m.renderSidebar(events))
	}

	screen := lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderStatusBar())

	switch {
	case m.dialog != nil:
		return m.overlay(screen, m.renderDialog())
	case m.prompt != nil:
		return m.overlay(screen, m.renderPrompt())
	case m.helpVisible:
		return m.overlay(screen, m.viewHelp())
	}
	return screen
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}

	// Overlays take all input
	if m.prompt != nil {
		return m.handlePromptKeys(msg)
	}
	if m.dialog != nil {
		return m.handleDialogKeys(msg)
	}
	if m.helpVisible {
		m.helpVisible = false
		return m, nil
	}

	action := m.config.Action(key)

	if _, dragging := m.drag.Active(); dragging {
		return m.handleDragKeys(action)
	}

	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= 9 {
		return m, m.toggleCategory(n - 1)
	}

	switch action {
	case "quit":
		return m, tea.Quit

	case "help":
		m.helpVisible = true
		return m, nil

	case "refresh":
		return m, tea.Batch(m.reload(), m.showMessage("Refreshing..."))

	case "cycle_view":
		views := calendar.Views
		next := views[0]
		for i, v := range views {
			if v == m.state.View() {
				next = views[(i+1)%len(views)]
			}
		}
		return m, m.setView(next)

	case "view_month":
		return m, m.setView(calendar.ViewMonth)
	case "view_week":
		return m, m.setView(calendar.ViewWeek)
	case "view_day":
		return m, m.setView(calendar.ViewDay)
	case "view_agenda":
		return m, m.setView(calendar.ViewAgenda)

	case "select_date":
		day := calendar.StartOfDay(m.state.CurrentDate())
		m.state.SelectDate(day)
		return m, m.showMessage("Selected " + day.Format(m.config.DateFormat))

	case "goto_date":
		m.prompt = &input{}
		return m, nil

	case "next_event":
		m.cycleFocus(1)
		return m, nil

	case "prev_event":
		m.cycleFocus(-1)
		return m, nil

	case "open_event":
		if ev, ok := m.focusedEvent(); ok {
			m.openEvent(ev)
			return m, nil
		}
		return m, m.newEvent()

	case "new_event":
		return m, m.newEvent()

	case "move_event":
		return m, m.startDrag()

	case "cancel":
		m.focus = -1
		return m, nil
	}

	return m, m.navigate(action)
}

// navigate applies a cursor or period movement. It is shared by normal
// browsing and keyboard dragging.
func (m *Model) navigate(action string) tea.Cmd {
	view := m.state.View()
	grid := view == calendar.ViewWeek || view == calendar.ViewDay

	switch action {
	case "left":
		return m.moveDays(-1)
	case "right":
		return m.moveDays(1)
	case "up":
		if grid {
			m.moveSlot(-1)
			return nil
		}
		if view == calendar.ViewMonth {
			return m.moveDays(-7)
		}
		return m.moveDays(-1)
	case "down":
		if grid {
			m.moveSlot(1)
			return nil
		}
		if view == calendar.ViewMonth {
			return m.moveDays(7)
		}
		return m.moveDays(1)
	case "next_period":
		m.state.GoToNext()
		m.focus = -1
		return m.ensureLoaded()
	case "prev_period":
		m.state.GoToPrevious()
		m.focus = -1
		return m.ensureLoaded()
	case "today":
		m.state.GoToToday()
		m.focus = -1
		m.slot = m.slotFor(m.now())
		m.scrollToSlot()
		return m.ensureLoaded()
	}
	return nil
}

func (m *Model) setView(v calendar.View) tea.Cmd {
	if err := m.state.SetView(v); err != nil {
		return m.showMessage(err.Error())
	}
	m.scrollToSlot()
	return m.ensureLoaded()
}

func (m *Model) moveDays(n int) tea.Cmd {
	m.state.SetCurrentDate(m.state.CurrentDate().AddDate(0, 0, n))
	m.focus = -1
	return m.ensureLoaded()
}

func (m *Model) moveSlot(n int) {
	m.slot += n
	if m.slot < 0 {
		m.slot = 0
	}
	if last := m.totalRows() - 1; m.slot > last {
		m.slot = last
	}
	m.focus = -1
	m.scrollToSlot()
}

func (m *Model) toggleCategory(i int) tea.Cmd {
	cats := m.visibility.Categories()
	if i >= len(cats) {
		return nil
	}
	m.visibility.ToggleColor(cats[i].Color)
	m.focus = -1

	state := "shown"
	if !m.visibility.IsColorVisible(cats[i].Color) {
		state = "hidden"
	}
	return m.showMessage(fmt.Sprintf("%s %s", cats[i].Name, state))
}

// Cursor helpers

func (m *Model) rowsPerHour() int {
	if m.config.RowsPerHour < 1 {
		return 1
	}
	return m.config.RowsPerHour
}

func (m *Model) totalRows() int {
	return 24 * m.rowsPerHour()
}

func (m *Model) slotFor(t time.Time) int {
	r := m.rowsPerHour()
	return t.Hour()*r + t.Minute()*r/60
}

// slotTime is the instant the cursor row starts at on day.
func (m *Model) slotTime(day time.Time) time.Time {
	r := m.rowsPerHour()
	hour := m.slot / r
	minute := (m.slot % r) * (60 / r)
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func (m *Model) gridRows() int {
	_, bodyHeight := m.mainSize()
	rows := bodyHeight - gridHeaderRows
	if rows < 1 {
		rows = 1
	}
	return rows
}

// scrollToSlot keeps the cursor row inside the visible time grid.
func (m *Model) scrollToSlot() {
	visible := m.gridRows()
	if m.slot < m.topRow {
		m.topRow = m.slot
	}
	if m.slot >= m.topRow+visible {
		m.topRow = m.slot - visible + 1
	}
	if last := m.totalRows() - visible; m.topRow > last {
		m.topRow = last
	}
	if m.topRow < 0 {
		m.topRow = 0
	}
}

func (m *Model) showSidebar() bool {
	return m.width >= 80
}

func (m *Model) mainSize() (int, int) {
	width := m.width
	if m.showSidebar() {
		width -= sidebarWidth + 1
	}
	// Header and status bar
	height := m.height - 2
	if height < 1 {
		height = 1
	}
	return width, height
}

// Event helpers

// dayEvents returns the visible events of the cursor day.
func (m *Model) dayEvents() []calendar.Event {
	return calendar.EventsForDay(m.visibility.Filter(m.events), m.state.CurrentDate())
}

// focusedEvent is the event explicitly focused with tab, or in the time grid
// the first timed event under the cursor row.
func (m *Model) focusedEvent() (calendar.Event, bool) {
	events := m.dayEvents()
	if m.focus >= 0 && m.focus < len(events) {
		return events[m.focus], true
	}

	view := m.state.View()
	if view != calendar.ViewWeek && view != calendar.ViewDay {
		return calendar.Event{}, false
	}
	at := m.slotTime(m.state.CurrentDate())
	for _, ev := range events {
		if ev.AllDay {
			continue
		}
		if ev.Start.Equal(at) || (!at.Before(ev.Start) && at.Before(ev.End)) {
			return ev, true
		}
	}
	return calendar.Event{}, false
}

func (m *Model) cycleFocus(dir int) {
	events := m.dayEvents()
	if len(events) == 0 {
		m.focus = -1
		return
	}
	m.focus = (m.focus + dir + len(events)) % len(events)
	if m.focus < 0 {
		m.focus = len(events) - 1
	}

	ev := events[m.focus]
	if !ev.AllDay && calendar.SameDay(ev.Start, m.state.CurrentDate()) {
		m.slot = m.slotFor(ev.Start)
		m.scrollToSlot()
	}
}

func (m *Model) editable() bool {
	return m.store != nil && m.config.Editable()
}

// readOnlyFor is the read-only flag the dialog of ev is opened with.
// Externally owned events are always presented read-only.
func (m *Model) readOnlyFor(ev calendar.Event) bool {
	return !m.editable() || ev.IsExternal()
}

// Loading

// wantedRange covers the month grid around the focus date and the active
// view, so the sidebar and the view share one load.
func (m *Model) wantedRange() (time.Time, time.Time) {
	date := m.state.CurrentDate()
	ws := m.config.WeekStartDay
	start, end := calendar.ViewRange(date, calendar.ViewMonth, ws)
	vs, ve := calendar.ViewRange(date, m.state.View(), ws)
	if vs.Before(start) {
		start = vs
	}
	if ve.After(end) {
		end = ve
	}
	return start, end
}

func (m *Model) ensureLoaded() tea.Cmd {
	start, end := m.wantedRange()
	if m.loaded && !start.Before(m.loadedFrom) && !end.After(m.loadedTo) {
		return nil
	}
	return m.loadCmd(start, end)
}

func (m *Model) reload() tea.Cmd {
	start, end := m.wantedRange()
	return m.loadCmd(start, end)
}

func (m *Model) loadCmd(start, end time.Time) tea.Cmd {
	src := m.source
	if src == nil {
		return nil
	}
	m.loadSeq++
	seq := m.loadSeq
	return func() tea.Msg {
		events, err := src.Events(context.Background(), start, end)
		msg := eventsLoadedMsg{seq: seq, start: start, end: end, events: events, err: err}
		if err == nil {
			// Categories are optional; a failure keeps the configured legend.
			msg.categories, _ = src.Categories()
		}
		return msg
	}
}

func (m *Model) handleEventsLoaded(msg eventsLoadedMsg) (tea.Model, tea.Cmd) {
	// Loads can finish out of order. One older than what is shown, or one
	// that no longer covers the visible range, is dropped.
	from, to := m.wantedRange()
	if msg.seq <= m.appliedSeq || msg.start.After(from) || msg.end.Before(to) {
		m.log.Debug().
			Int("seq", msg.seq).
			Time("from", msg.start).
			Time("to", msg.end).
			Msg("dropping stale load")
		return m, nil
	}
	m.appliedSeq = msg.seq

	if msg.err != nil {
		m.log.Warn().Err(msg.err).Msg("loading events failed")
		return m, m.showMessage("Loading events failed: " + msg.err.Error())
	}

	m.events = calendar.Ingest(msg.events)
	calendar.SortEvents(m.events)
	m.loaded = true
	m.loadedFrom = msg.start
	m.loadedTo = msg.end
	if len(msg.categories) > 0 {
		m.visibility.SetCategories(msg.categories)
	}
	if m.focus >= len(m.dayEvents()) {
		m.focus = -1
	}

	m.log.Debug().
		Int("events", len(m.events)).
		Time("from", msg.start).
		Time("to", msg.end).
		Msg("events loaded")
	return m, nil
}

func listen(ch <-chan source.ChangeEvent) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return changeMsg(ev)
	}
}

// tickCmd fires at the next minute boundary.
func (m *Model) tickCmd() tea.Cmd {
	now := m.now()
	next := now.Truncate(time.Minute).Add(time.Minute)
	return tea.Tick(next.Sub(now), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) showMessage(msg string) tea.Cmd {
	m.message = msg
	m.messageID++
	id := m.messageID
	return tea.Tick(messageTimeout, func(time.Time) tea.Msg {
		return messageTimeoutMsg{id: id}
	})
}

// Prompt

func (m *Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.prompt = nil
		return m, nil

	case tea.KeyEnter:
		text := m.prompt.value
		m.prompt = nil
		return m, m.gotoDate(text)
	}

	m.prompt.handleKey(msg)
	return m, nil
}

// gotoDate focuses and selects the parsed date, as a mini-calendar click
// would.
func (m *Model) gotoDate(text string) tea.Cmd {
	m.parser.SetNow(m.now())
	parsed, err := m.parser.Parse(text)
	if err == nil && parsed.Text != "" {
		err = fmt.Errorf("unrecognized %q", parsed.Text)
	}
	if err != nil {
		return m.showMessage(fmt.Sprintf("Invalid date: %v", err))
	}

	day := parsed.Date
	loc := m.state.CurrentDate().Location()
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, loc)

	m.state.SetCurrentDate(day)
	m.state.SelectDate(day)
	m.focus = -1
	if parsed.HasTime {
		m.slot = m.slotFor(parsed.Time)
		m.scrollToSlot()
	}
	return tea.Batch(m.ensureLoaded(), m.showMessage("Jumped to "+day.Format(m.config.DateFormat)))
}
