package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// input is a single-line text buffer with a cursor, used by the goto prompt
// and the event form.
type input struct {
	value  string
	cursor int // in runes
}

func newInput(value string) *input {
	return &input{value: value, cursor: len([]rune(value))}
}

func (in *input) set(value string) {
	in.value = value
	in.cursor = len([]rune(value))
}

// handleKey edits the buffer. It reports whether the key was consumed.
func (in *input) handleKey(msg tea.KeyMsg) bool {
	r := []rune(in.value)

	switch msg.Type {
	case tea.KeyBackspace:
		if in.cursor > 0 {
			r = append(r[:in.cursor-1], r[in.cursor:]...)
			in.cursor--
		}

	case tea.KeyDelete:
		if in.cursor < len(r) {
			r = append(r[:in.cursor], r[in.cursor+1:]...)
		}

	case tea.KeyLeft:
		if in.cursor > 0 {
			in.cursor--
		}

	case tea.KeyRight:
		if in.cursor < len(r) {
			in.cursor++
		}

	case tea.KeyHome, tea.KeyCtrlA:
		in.cursor = 0

	case tea.KeyEnd, tea.KeyCtrlE:
		in.cursor = len(r)

	case tea.KeyCtrlU:
		r = r[in.cursor:]
		in.cursor = 0

	case tea.KeySpace:
		r = insertRunes(r, in.cursor, []rune{' '})
		in.cursor++

	case tea.KeyRunes:
		r = insertRunes(r, in.cursor, msg.Runes)
		in.cursor += len(msg.Runes)

	default:
		return false
	}

	in.value = string(r)
	return true
}

// render shows the buffer with a block cursor.
func (in *input) render() string {
	r := []rune(in.value)
	if in.cursor >= len(r) {
		return in.value + "█"
	}
	return string(r[:in.cursor]) + "█" + string(r[in.cursor:])
}

func insertRunes(r []rune, at int, ins []rune) []rune {
	out := make([]rune, 0, len(r)+len(ins))
	out = append(out, r[:at]...)
	out = append(out, ins...)
	return append(out, r[at:]...)
}
