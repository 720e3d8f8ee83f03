package calendar

// Visibility owns the category list and the set of colors currently shown.
// Color is the effective identity: categories sharing a color toggle
// together.
type Visibility struct {
	categories []Category
	visible    map[Color]bool
}

// NewVisibility derives the visible set from the active categories.
func NewVisibility(categories []Category) *Visibility {
	v := &Visibility{
		categories: append([]Category(nil), categories...),
		visible:    make(map[Color]bool),
	}
	for _, c := range v.categories {
		if c.Active {
			v.visible[c.Color] = true
		}
	}
	return v
}

// ToggleColor flips visibility of color and resyncs every category that
// uses it.
func (v *Visibility) ToggleColor(color Color) {
	if v.visible[color] {
		delete(v.visible, color)
	} else {
		v.visible[color] = true
	}
	for i := range v.categories {
		if v.categories[i].Color == color {
			v.categories[i].Active = v.visible[color]
		}
	}
}

// IsColorVisible reports whether events of color should render. Events
// without a color, and calendars without categories, are always shown.
func (v *Visibility) IsColorVisible(color Color) bool {
	if color == "" || len(v.categories) == 0 {
		return true
	}
	if !v.known(color) {
		return true
	}
	return v.visible[color]
}

func (v *Visibility) known(color Color) bool {
	for _, c := range v.categories {
		if c.Color == color {
			return true
		}
	}
	return false
}

// VisibleColors returns the visible set in palette order.
func (v *Visibility) VisibleColors() []Color {
	var out []Color
	for _, c := range Palette {
		if v.visible[c] {
			out = append(out, c)
		}
	}
	return out
}

// Categories returns a copy of the category list.
func (v *Visibility) Categories() []Category {
	return append([]Category(nil), v.categories...)
}

// SetCategories replaces the categories, keeping the visible set of colors
// that are still present.
func (v *Visibility) SetCategories(categories []Category) {
	next := NewVisibility(categories)
	for i := range next.categories {
		c := next.categories[i].Color
		if v.known(c) {
			next.categories[i].Active = v.visible[c]
		}
	}
	next.visible = make(map[Color]bool)
	for _, c := range next.categories {
		if c.Active {
			next.visible[c.Color] = true
		}
	}
	*v = *next
}

// Filter returns the events whose color is visible. Call it once per
// render pass.
func (v *Visibility) Filter(events []Event) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if v.IsColorVisible(ev.Color) {
			out = append(out, ev)
		}
	}
	return out
}
