// Package source loads calendar events from the local event file and from
// external iCalendar feeds, and persists the changes made in the UI.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/hrcal/hrcal/internal/calendar"
)

// ErrNotFound is returned when an operation names an event the store does
// not hold.
var ErrNotFound = errors.New("event not found")

// EventSource provides events for a time range.
type EventSource interface {
	// Name identifies the source in logs.
	Name() string
	// Events returns events intersecting [start, end), recurring series
	// already expanded.
	Events(ctx context.Context, start, end time.Time) ([]calendar.Event, error)
	// Categories returns the legend the source defines, nil if none.
	Categories() ([]calendar.Category, error)
	// Watch returns a channel signalling that the source changed.
	// Returns nil if watching is not supported.
	Watch() (<-chan ChangeEvent, error)
	// Close stops watching and releases resources.
	Close() error
}

// EventStore receives the changes requested in the UI.
type EventStore interface {
	AddEvent(ctx context.Context, ev calendar.Event) (calendar.Event, error)
	UpdateEvent(ctx context.Context, ev calendar.Event) (calendar.Event, error)
	DeleteEvent(ctx context.Context, ev calendar.Event) error
	SetRSVP(ctx context.Context, ev calendar.Event, status calendar.RSVPStatus) error
}

// Overlay adjusts events loaded from other sources, e.g. hiding dismissed
// meetings or applying stored responses.
type Overlay interface {
	Apply(events []calendar.Event) []calendar.Event
}

// ChangeEvent reports a change to a watched source.
type ChangeEvent struct {
	Source    string
	Path      string
	Timestamp time.Time
}
