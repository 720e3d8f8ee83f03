package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss/v2"
	"github.com/muesli/reflow/wordwrap"

	"github.com/hrcal/hrcal/internal/calendar"
	"github.com/hrcal/hrcal/internal/recurrence"
)

const (
	timedLayout  = "2006-01-02 15:04"
	allDayLayout = "2006-01-02"
)

// dialog is one open event dialog. Routing is decided when it opens and is
// never carried over to another event.
type dialog struct {
	event   calendar.Event
	route   calendar.Route
	isNew   bool
	confirm calendar.DeleteConfirm
	form    *eventForm // only for the event form variant
	busy    bool       // a store call is in flight
}

type formField int

const (
	fieldQuick formField = iota
	fieldTitle
	fieldStart
	fieldEnd
	fieldAllDay
	fieldLocation
	fieldDescription
	fieldType
	fieldColor
	fieldRepeat
	fieldCount
)

var fieldLabels = [fieldCount]string{
	fieldQuick:       "Quick",
	fieldTitle:       "Title",
	fieldStart:       "Start",
	fieldEnd:         "End",
	fieldAllDay:      "All day",
	fieldLocation:    "Location",
	fieldDescription: "Notes",
	fieldType:        "Type",
	fieldColor:       "Color",
	fieldRepeat:      "Repeat",
}

type eventForm struct {
	focus  formField
	text   map[formField]*input
	allDay bool
	color  calendar.Color
	repeat recurrence.Kind
}

func newEventForm(ev calendar.Event) *eventForm {
	f := &eventForm{
		focus:  fieldTitle,
		allDay: ev.AllDay,
		color:  ev.Color,
		repeat: recurrence.KindNone,
		text: map[formField]*input{
			fieldQuick:       newInput(""),
			fieldTitle:       newInput(ev.Title),
			fieldStart:       newInput(formatWhen(ev.Start, ev.AllDay)),
			fieldEnd:         newInput(formatWhen(ev.End, ev.AllDay)),
			fieldLocation:    newInput(ev.Location),
			fieldDescription: newInput(ev.Description),
			fieldType:        newInput(ev.Type),
		},
	}
	if !f.color.Valid() {
		f.color = calendar.ColorForType(ev.Type)
	}
	if ev.RRule != "" {
		f.repeat = recurrence.FromRule(ev.RRule).Kind
	}
	return f
}

func (f *eventForm) value(field formField) string {
	if in, ok := f.text[field]; ok {
		return strings.TrimSpace(in.value)
	}
	return ""
}

func formatWhen(t time.Time, allDay bool) string {
	if allDay {
		return t.Format(allDayLayout)
	}
	return t.Format(timedLayout)
}

// openEvent routes ev to its dialog variant.
func (m *Model) openEvent(ev calendar.Event) {
	route := calendar.RouteEvent(ev, m.readOnlyFor(ev))
	if m.store == nil {
		route.CanDelete = false
		route.CanRSVP = false
	}

	d := &dialog{event: ev.Clone(), route: route}
	if route.Variant == calendar.VariantEventForm {
		d.form = newEventForm(ev)
	}
	m.setDialog(d)

	m.log.Debug().
		Str("event", ev.ID).
		Stringer("variant", route.Variant).
		Bool("editable", route.Editable).
		Msg("dialog opened")
}

// newEvent opens an empty form at the cursor.
func (m *Model) newEvent() tea.Cmd {
	if !m.editable() {
		return m.showMessage("Calendar is read-only")
	}

	day := m.state.CurrentDate()
	start := time.Date(day.Year(), day.Month(), day.Day(), 9, 0, 0, 0, day.Location())
	if v := m.state.View(); v == calendar.ViewWeek || v == calendar.ViewDay {
		start = m.slotTime(day)
	}

	ev := calendar.Event{
		Title: "",
		Start: start,
		End:   start.Add(time.Hour),
		Type:  calendar.TypeEvent,
		Color: calendar.ColorForType(calendar.TypeEvent),
	}
	d := &dialog{event: ev, route: calendar.NewEventRoute(), isNew: true, form: newEventForm(ev)}
	d.form.focus = fieldQuick
	m.setDialog(d)
	return nil
}

func (m *Model) closeDialog() {
	if m.dialog != nil {
		m.dialog.confirm.Reset()
	}
	m.setDialog(nil)
}

// setDialog replaces the open dialog and tells the host when a dialog
// opens or closes.
func (m *Model) setDialog(d *dialog) {
	wasOpen := m.dialog != nil
	m.dialog = d
	if open := d != nil; open != wasOpen && m.onDialog != nil {
		m.onDialog(open)
	}
}

func (m *Model) handleDialogKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.dialog
	key := msg.String()

	if key == "esc" {
		if d.confirm.State() == calendar.ConfirmArmed {
			d.confirm.Cancel()
			return m, nil
		}
		m.closeDialog()
		return m, nil
	}

	if d.busy {
		return m, nil
	}

	if key == "ctrl+d" {
		return m, m.pressDelete()
	}

	if d.form != nil && d.route.Editable {
		return m.handleFormKeys(msg)
	}

	switch key {
	case "d":
		return m, m.pressDelete()

	case "r":
		return m, m.cycleRSVP()

	case "tab", "shift+tab":
		// Step to the neighbouring event; it gets its own routing.
		dir := 1
		if key == "shift+tab" {
			dir = -1
		}
		m.cycleFocus(dir)
		if ev, ok := m.focusedEvent(); ok {
			m.openEvent(ev)
		}
		return m, nil

	case "q", "enter":
		m.closeDialog()
		return m, nil
	}

	if d.confirm.State() == calendar.ConfirmArmed {
		d.confirm.Cancel()
	}
	return m, nil
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.dialog.form

	switch msg.String() {
	case "ctrl+s":
		return m, m.saveForm()

	case "enter":
		if f.focus == fieldQuick {
			return m, m.applyQuickEntry()
		}
		return m, m.saveForm()

	case "tab", "down":
		f.focus = (f.focus + 1) % fieldCount
		return m, nil

	case "shift+tab", "up":
		f.focus = (f.focus + fieldCount - 1) % fieldCount
		return m, nil
	}

	switch f.focus {
	case fieldAllDay:
		switch msg.Type {
		case tea.KeySpace, tea.KeyLeft, tea.KeyRight:
			f.setAllDay(!f.allDay)
		}

	case fieldColor:
		switch msg.Type {
		case tea.KeyLeft:
			f.color = cycleColor(f.color, -1)
		case tea.KeyRight, tea.KeySpace:
			f.color = cycleColor(f.color, 1)
		}

	case fieldRepeat:
		if f.repeat == recurrence.KindCustom {
			// Custom rules are kept as they are
			return m, nil
		}
		switch msg.Type {
		case tea.KeyLeft:
			f.repeat = cycleKind(f.repeat, -1)
		case tea.KeyRight, tea.KeySpace:
			f.repeat = cycleKind(f.repeat, 1)
		}

	default:
		if in, ok := f.text[f.focus]; ok {
			in.handleKey(msg)
		}
	}
	return m, nil
}

// setAllDay toggles the flag and rewrites the start and end fields in the
// matching layout.
func (f *eventForm) setAllDay(allDay bool) {
	for _, field := range []formField{fieldStart, fieldEnd} {
		in := f.text[field]
		if t, err := parseFormTime(in.value, f.allDay, time.Local); err == nil {
			in.set(formatWhen(t, allDay))
		}
	}
	f.allDay = allDay
}

func cycleColor(c calendar.Color, dir int) calendar.Color {
	for i, p := range calendar.Palette {
		if p == c {
			n := len(calendar.Palette)
			return calendar.Palette[(i+dir+n)%n]
		}
	}
	return calendar.Palette[0]
}

func cycleKind(k recurrence.Kind, dir int) recurrence.Kind {
	kinds := recurrence.Kinds
	for i, kind := range kinds {
		if kind == k {
			n := len(kinds)
			return kinds[(i+dir+n)%n]
		}
	}
	return recurrence.KindNone
}

// applyQuickEntry fills the form from a line such as
// "tomorrow 2pm for 90m Interview".
func (m *Model) applyQuickEntry() tea.Cmd {
	f := m.dialog.form
	text := f.value(fieldQuick)
	if text == "" {
		f.focus = fieldTitle
		return nil
	}

	m.parser.SetNow(m.now())
	entry, err := m.parser.ParseEntry(text, time.Hour)
	if err != nil {
		return m.showMessage(fmt.Sprintf("Could not parse entry: %v", err))
	}

	f.text[fieldTitle].set(entry.Title)
	f.allDay = entry.AllDay
	f.text[fieldStart].set(formatWhen(entry.Start, entry.AllDay))
	f.text[fieldEnd].set(formatWhen(entry.End, entry.AllDay))
	if entry.Repeat != recurrence.KindNone || f.repeat != recurrence.KindCustom {
		f.repeat = entry.Repeat
	}
	f.text[fieldQuick].set("")
	f.focus = fieldTitle
	return nil
}

// formEvent builds the event the form describes.
func (m *Model) formEvent() (calendar.Event, error) {
	d := m.dialog
	f := d.form
	loc := m.state.CurrentDate().Location()

	ev := d.event.Clone()
	ev.Title = f.value(fieldTitle)
	if ev.Title == "" {
		return calendar.Event{}, errors.New("title is required")
	}

	start, err := parseFormTime(f.value(fieldStart), f.allDay, loc)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("start: %w", err)
	}
	end, err := parseFormTime(f.value(fieldEnd), f.allDay, loc)
	if err != nil {
		return calendar.Event{}, fmt.Errorf("end: %w", err)
	}
	if end.Before(start) {
		return calendar.Event{}, errors.New("end is before start")
	}

	ev.Start, ev.End, ev.AllDay = start, end, f.allDay
	ev.Location = f.value(fieldLocation)
	ev.Description = f.value(fieldDescription)
	ev.Type = f.value(fieldType)
	if ev.Type == "" {
		ev.Type = calendar.TypeEvent
	}
	ev.Color = f.color

	switch f.repeat {
	case recurrence.KindCustom:
		// Rule string preserved untouched
	case recurrence.KindNone:
		ev.RRule = ""
		ev.Recurrence = nil
		ev.Recurring = false
	default:
		p, _ := recurrence.Preset(f.repeat, start)
		rule, err := recurrence.ToRule(p)
		if err != nil {
			return calendar.Event{}, fmt.Errorf("repeat: %w", err)
		}
		ev.RRule = rule
		ev.Recurrence = &p
		ev.Recurring = true
	}

	return ev.Normalize(), nil
}

func parseFormTime(text string, allDay bool, loc *time.Location) (time.Time, error) {
	text = strings.TrimSpace(text)
	for _, layout := range []string{timedLayout, allDayLayout} {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			if allDay {
				return calendar.StartOfDay(t), nil
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("want %s", strings.ToUpper(timedLayout))
}

func (m *Model) saveForm() tea.Cmd {
	d := m.dialog
	ev, err := m.formEvent()
	if err != nil {
		return m.showMessage("Cannot save: " + err.Error())
	}

	d.busy = true
	store := m.store
	if d.isNew {
		return m.dialogStoreCmd(opAdd, ev, func(ctx context.Context) error {
			_, err := store.AddEvent(ctx, ev)
			return err
		})
	}
	return m.dialogStoreCmd(opUpdate, ev, func(ctx context.Context) error {
		_, err := store.UpdateEvent(ctx, ev)
		return err
	})
}

// pressDelete advances the two-step confirmation and sends the delete on
// the second press, or straight away when confirmation is turned off.
func (m *Model) pressDelete() tea.Cmd {
	d := m.dialog
	if !d.route.CanDelete || d.isNew {
		return nil
	}

	if m.config.ConfirmDelete && !d.confirm.Press() {
		return nil
	}

	d.busy = true
	ev := d.event
	store := m.store
	return m.dialogStoreCmd(opDelete, ev, func(ctx context.Context) error {
		return store.DeleteEvent(ctx, ev)
	})
}

func (m *Model) cycleRSVP() tea.Cmd {
	d := m.dialog
	if !d.route.CanRSVP {
		return nil
	}

	d.busy = true
	ev := d.event
	next := ev.RSVP.Next()
	store := m.store
	return func() tea.Msg {
		err := store.SetRSVP(context.Background(), ev, next)
		return storeResultMsg{op: opRSVP, event: ev, rsvp: next, dialog: d, err: err}
	}
}

// Rendering

func (m *Model) dialogWidth() int {
	w := m.width - 4
	if w > 64 {
		w = 64
	}
	if w < 30 {
		w = 30
	}
	return w
}

func (m *Model) renderDialog() string {
	d := m.dialog
	width := m.dialogWidth()
	inner := width - 4

	var lines []string
	lines = append(lines, m.styles.Header.Render(m.dialogTitle()), "")

	if d.form != nil && d.route.Editable {
		lines = append(lines, m.renderForm(inner)...)
	} else {
		lines = append(lines, m.renderDetails(inner)...)
	}

	lines = append(lines, "")
	switch d.confirm.State() {
	case calendar.ConfirmArmed:
		lines = append(lines,
			m.styles.Warning.Render("Delete this event?"),
			m.styles.Warning.Render(fmt.Sprintf("Press %s again to confirm, esc to keep it.", m.deleteKey())))
	case calendar.ConfirmPending:
		lines = append(lines, m.styles.Muted.Render("Deleting..."))
	default:
		if d.busy {
			lines = append(lines, m.styles.Muted.Render("Saving..."))
		} else {
			lines = append(lines, m.styles.Muted.Render(m.dialogHints()))
		}
	}

	return m.styles.Dialog.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) dialogTitle() string {
	d := m.dialog
	switch d.route.Variant {
	case calendar.VariantLeave:
		return "Leave"
	case calendar.VariantHoliday:
		return "Holiday"
	case calendar.VariantMeeting:
		return "Meeting"
	case calendar.VariantPerformance:
		return "Performance review"
	}
	switch {
	case d.isNew:
		return "New event"
	case d.route.Editable:
		return "Edit event"
	}
	return "Event"
}

// deleteKey is the key that arms and confirms a delete. The edit form
// takes plain letters as text.
func (m *Model) deleteKey() string {
	if d := m.dialog; d != nil && d.form != nil && d.route.Editable {
		return "ctrl+d"
	}
	return "d"
}

func (m *Model) dialogHints() string {
	d := m.dialog
	if d.form != nil && d.route.Editable {
		hints := "tab:next field  enter:save  esc:cancel"
		if d.route.CanDelete && !d.isNew {
			hints += "  ctrl+d:delete"
		}
		return hints
	}

	hints := []string{"tab:next event"}
	if d.route.CanRSVP {
		hints = append(hints, "r:respond")
	}
	if d.route.CanDelete {
		hints = append(hints, "d:delete")
	}
	return strings.Join(append(hints, "esc:close"), "  ")
}

func (m *Model) renderForm(width int) []string {
	f := m.dialog.form
	var lines []string

	for field := formField(0); field < fieldCount; field++ {
		var value string
		switch field {
		case fieldAllDay:
			value = "[ ]"
			if f.allDay {
				value = "[x]"
			}
		case fieldColor:
			value = m.colorSwatch(f.color) + " " + string(f.color)
		case fieldRepeat:
			value = repeatLabel(m.dialog.event, f.repeat)
			if f.focus == field && f.repeat != recurrence.KindCustom {
				value = "< " + value + " >"
			}
		default:
			in := f.text[field]
			value = in.value
			if f.focus == field {
				value = in.render()
			}
		}

		label := fmt.Sprintf("%-9s", fieldLabels[field])
		if f.focus == field {
			label = m.styles.Selected.Render(label)
		} else {
			label = m.styles.Muted.Render(label)
		}
		lines = append(lines, label+" "+truncateTail(value, width-10))

		if field == fieldQuick {
			lines = append(lines, m.styles.Muted.Render(strings.Repeat("─", width)))
		}
	}
	return lines
}

func repeatLabel(ev calendar.Event, kind recurrence.Kind) string {
	if kind == recurrence.KindCustom {
		return recurrence.Describe(recurrence.FromRule(ev.RRule))
	}
	if kind == recurrence.KindNone {
		return "Does not repeat"
	}
	return strings.ToUpper(string(kind[:1])) + string(kind[1:])
}

// renderDetails lists the read-only fields of the dialog's event. Absent
// optional fields are skipped.
func (m *Model) renderDetails(width int) []string {
	d := m.dialog
	ev := d.event
	var lines []string

	field := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		prefix := m.styles.Muted.Render(fmt.Sprintf("%-10s", label))
		wrapped := strings.Split(wordwrap.String(value, width-10), "\n")
		lines = append(lines, prefix+wrapped[0])
		for _, rest := range wrapped[1:] {
			lines = append(lines, strings.Repeat(" ", 10)+rest)
		}
	}

	lines = append(lines, m.colorSwatch(ev.Color)+" "+lipgloss.NewStyle().Bold(true).Render(ev.Title))
	field("When", m.formatSpan(ev))

	switch d.route.Variant {
	case calendar.VariantLeave:
		field("Employee", ev.EmployeeID)
		field("Kind", ev.Type)
	case calendar.VariantHoliday:
		field("Kind", ev.Type)
	case calendar.VariantMeeting:
		field("Where", ev.Location)
		field("Join", ev.MeetingURL)
		field("Organizer", ev.Organizer)
		field("Guests", strings.Join(ev.Guests, ", "))
		field("Response", rsvpLabel(ev.RSVP))
	case calendar.VariantPerformance:
		field("Employee", ev.EmployeeID)
		field("Where", ev.Location)
		field("Guests", strings.Join(ev.Guests, ", "))
	default:
		field("Where", ev.Location)
		field("Type", ev.Type)
	}

	if ev.RRule != "" {
		field("Repeats", recurrence.Describe(recurrence.FromRule(ev.RRule)))
	}
	if len(ev.Reminders) > 0 {
		var rs []string
		for _, r := range ev.Reminders {
			rs = append(rs, fmt.Sprintf("%dm before", r))
		}
		field("Reminders", strings.Join(rs, ", "))
	}
	field("Notes", ev.Description)
	if ev.IsExternal() {
		lines = append(lines, m.styles.Muted.Render("From an external calendar"))
	}
	return lines
}

func rsvpLabel(s calendar.RSVPStatus) string {
	if s == "" {
		return string(calendar.RSVPNeedsAction)
	}
	return string(s)
}

// formatSpan renders an event's time range for display.
func (m *Model) formatSpan(ev calendar.Event) string {
	df, tf := m.config.DateFormat, m.config.TimeFormat
	if ev.AllDay {
		if calendar.SameDay(ev.Start, ev.End) {
			return ev.Start.Format(df) + ", all day"
		}
		return ev.Start.Format(df) + " - " + ev.End.Format(df)
	}
	if calendar.SameDay(ev.Start, ev.End) {
		return fmt.Sprintf("%s, %s - %s", ev.Start.Format(df), ev.Start.Format(tf), ev.End.Format(tf))
	}
	return ev.Start.Format(df+" "+tf) + " - " + ev.End.Format(df+" "+tf)
}

func (m *Model) renderPrompt() string {
	lines := []string{
		m.styles.Header.Render("Go to date"),
		"",
		m.styles.Selected.Render(m.prompt.render()),
		"",
		m.styles.Muted.Render("e.g. 2026-03-01, 3/14, next monday. Enter to jump, esc to cancel"),
	}
	return m.styles.Dialog.Width(m.dialogWidth()).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
