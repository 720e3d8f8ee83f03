package calendar

import "errors"

var (
	// ErrInvalidView is returned for view names outside month/week/day/agenda.
	ErrInvalidView = errors.New("invalid calendar view")
	// ErrReadOnly is returned when a mutation is attempted on a read-only event.
	ErrReadOnly = errors.New("event is read-only")
)
