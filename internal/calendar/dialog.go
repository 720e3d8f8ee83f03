package calendar

import "strings"

// Origin is the system an event came from. It is resolved once at
// ingestion and decides which dialog presents the event.
type Origin int

const (
	OriginGeneric Origin = iota
	OriginLeave
	OriginHoliday
	OriginExternalMeeting
	OriginPerformanceMeeting
)

func (o Origin) String() string {
	switch o {
	case OriginLeave:
		return "leave"
	case OriginHoliday:
		return "holiday"
	case OriginExternalMeeting:
		return "external-meeting"
	case OriginPerformanceMeeting:
		return "performance-meeting"
	default:
		return "generic"
	}
}

// ClassifyOrigin derives an event's origin from its ID prefix and type
// label. The order matters when conventions overlap: a leave ID beats any
// type label, and a holiday type beats the meeting markers.
func ClassifyOrigin(ev Event) Origin {
	switch {
	case strings.HasPrefix(ev.ID, LeavePrefix):
		return OriginLeave
	case ev.Type == TypeHoliday:
		return OriginHoliday
	case ev.Type == TypeInternal:
		return OriginExternalMeeting
	case ev.Type == TypePerformance || strings.HasPrefix(ev.ID, PerformancePrefix):
		return OriginPerformanceMeeting
	default:
		return OriginGeneric
	}
}

// Variant is the dialog used to present an event.
type Variant int

const (
	VariantEventForm Variant = iota
	VariantLeave
	VariantHoliday
	VariantMeeting
	VariantPerformance
)

func (v Variant) String() string {
	switch v {
	case VariantLeave:
		return "leave"
	case VariantHoliday:
		return "holiday"
	case VariantMeeting:
		return "meeting"
	case VariantPerformance:
		return "performance"
	default:
		return "event"
	}
}

// Route is the routing decision for one dialog instance.
type Route struct {
	Variant   Variant
	Editable  bool
	CanDelete bool
	CanRSVP   bool
}

// RouteEvent picks the dialog for ev. readOnly is the host's flag for the
// dialog. External meetings only get the meeting dialog when the host opened
// it read-only; otherwise they fall through to the later rules.
func RouteEvent(ev Event, readOnly bool) Route {
	switch ev.Origin {
	case OriginLeave:
		return Route{Variant: VariantLeave}
	case OriginHoliday:
		return Route{Variant: VariantHoliday}
	case OriginExternalMeeting:
		if readOnly {
			return Route{Variant: VariantMeeting, CanDelete: true, CanRSVP: true}
		}
		if ev.Type == TypePerformance || strings.HasPrefix(ev.ID, PerformancePrefix) {
			return Route{Variant: VariantPerformance, CanDelete: true}
		}
	case OriginPerformanceMeeting:
		return Route{Variant: VariantPerformance, CanDelete: true}
	}
	return Route{Variant: VariantEventForm, Editable: !readOnly && !ev.IsExternal(), CanDelete: !readOnly && !ev.IsExternal()}
}

// NewEventRoute is the route for creating an event from an empty slot.
func NewEventRoute() Route {
	return Route{Variant: VariantEventForm, Editable: true}
}

// ConfirmState is the step of a two-step delete.
type ConfirmState int

const (
	ConfirmIdle ConfirmState = iota
	ConfirmArmed
	ConfirmPending
)

// DeleteConfirm is the local, never-persisted delete confirmation of a
// dialog: the first press arms it, the second confirms.
type DeleteConfirm struct {
	state ConfirmState
}

func (d *DeleteConfirm) State() ConfirmState { return d.state }

// Press advances the confirmation. It returns true when the delete should
// be sent to the host.
func (d *DeleteConfirm) Press() bool {
	switch d.state {
	case ConfirmIdle:
		d.state = ConfirmArmed
	case ConfirmArmed:
		d.state = ConfirmPending
		return true
	}
	return false
}

// Cancel backs out of an armed confirmation.
func (d *DeleteConfirm) Cancel() {
	if d.state == ConfirmArmed {
		d.state = ConfirmIdle
	}
}

// Failed re-arms the confirmation after the host rejected the delete.
func (d *DeleteConfirm) Failed() {
	if d.state == ConfirmPending {
		d.state = ConfirmArmed
	}
}

// Reset clears the confirmation; used when the dialog closes.
func (d *DeleteConfirm) Reset() {
	d.state = ConfirmIdle
}
