package ui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/hrcal/hrcal/internal/calendar"
)

type storeOp string

const (
	opAdd    storeOp = "add"
	opUpdate storeOp = "update"
	opMove   storeOp = "move"
	opDelete storeOp = "delete"
	opRSVP   storeOp = "respond to"
)

// storeResultMsg carries the outcome of a store call back into Update.
type storeResultMsg struct {
	op    storeOp
	event calendar.Event
	rsvp  calendar.RSVPStatus
	// dialog is the dialog that sent the change, if any.
	dialog *dialog
	err    error
}

// storeCmd runs fn off the update loop. The store owns any retry or
// timeout policy.
func storeCmd(op storeOp, ev calendar.Event, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return storeResultMsg{op: op, event: ev, err: fn(context.Background())}
	}
}

// dialogStoreCmd is storeCmd for a change sent from the open dialog. Only
// that dialog reacts to the result.
func (m *Model) dialogStoreCmd(op storeOp, ev calendar.Event, fn func(ctx context.Context) error) tea.Cmd {
	d := m.dialog
	return func() tea.Msg {
		return storeResultMsg{op: op, event: ev, dialog: d, err: fn(context.Background())}
	}
}

func (m *Model) handleStoreResult(msg storeResultMsg) (tea.Model, tea.Cmd) {
	// The user may have closed the sender and opened another dialog since.
	owner := msg.dialog != nil && m.dialog == msg.dialog

	if msg.err != nil {
		m.log.Warn().
			Err(msg.err).
			Str("op", string(msg.op)).
			Str("event", msg.event.ID).
			Msg("change rejected")

		// The dialog stays open and a pending delete goes back to armed.
		if owner {
			m.dialog.busy = false
			m.dialog.confirm.Failed()
		}
		return m, m.showMessage(fmt.Sprintf("Could not %s event: %v", msg.op, msg.err))
	}

	m.log.Info().
		Str("op", string(msg.op)).
		Str("event", msg.event.ID).
		Msg("change saved")

	var text string
	switch msg.op {
	case opAdd:
		text = "Added " + msg.event.Title
		if owner {
			m.closeDialog()
		}
	case opUpdate:
		text = "Saved " + msg.event.Title
		if owner {
			m.closeDialog()
		}
	case opMove:
		text = "Moved " + msg.event.Title
	case opDelete:
		text = "Deleted " + msg.event.Title
		if owner {
			m.closeDialog()
		}
	case opRSVP:
		text = fmt.Sprintf("Response: %s", msg.rsvp)
		if owner {
			m.dialog.event.RSVP = msg.rsvp
			m.dialog.busy = false
		}
	}

	return m, tea.Batch(m.reload(), m.showMessage(text))
}
