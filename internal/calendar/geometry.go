package calendar

import "time"

// DefaultMinHeight keeps very short events tall enough to click.
const DefaultMinHeight = 20.0

// Geometry converts time ranges into vertical offsets of a day column.
type Geometry struct {
	PixelsPerHour float64
	MinHeight     float64
}

// NewGeometry returns a Geometry with the default minimum height.
func NewGeometry(pixelsPerHour float64) Geometry {
	return Geometry{PixelsPerHour: pixelsPerHour, MinHeight: DefaultMinHeight}
}

// Box is the vertical placement of an event inside a day column.
type Box struct {
	Top    float64
	Height float64
}

// Empty reports a collapsed box; callers skip rendering it.
func (b Box) Empty() bool {
	return b.Height <= 0
}

// Position places ev inside the day that starts at dayStart. The event is
// clipped to [dayStart, dayStart+24h). Events that do not intersect the day
// collapse to a zero box at the top.
func (g Geometry) Position(ev Event, dayStart time.Time) Box {
	dayStart = StartOfDay(dayStart)
	dayEnd := dayStart.AddDate(0, 0, 1)

	if !ev.Start.Before(dayEnd) {
		return Box{}
	}

	start := ev.Start
	if start.Before(dayStart) {
		start = dayStart
	}
	end := ev.End
	if end.After(dayEnd) {
		end = dayEnd
	}

	clipped := end.Sub(start)
	if clipped <= 0 {
		if !ev.End.Equal(ev.Start) || ev.Start.Before(dayStart) {
			return Box{}
		}
	}

	top := start.Sub(dayStart).Hours() * g.PixelsPerHour
	height := clipped.Hours() * g.PixelsPerHour
	if height < g.MinHeight {
		height = g.MinHeight
	}
	return Box{Top: top, Height: height}
}

// CurrentTimeOffset is the indicator position for now within its day.
func CurrentTimeOffset(now time.Time, pixelsPerHour float64) float64 {
	minutes := now.Sub(StartOfDay(now)).Minutes()
	return pixelsPerHour * minutes / 60
}
