// Package grid maps appointments and working-hour windows onto pixel
// geometry and converts pointer gestures back into times. It holds no
// state and performs no I/O; the calendar manager owns what the
// gestures mean.
package grid

import (
	"time"

	"github.com/slotwise/booking-coordinator/internal/schedule"
)

const (
	defaultDayStartMinute = 7 * 60
	defaultDayEndMinute   = 21 * 60
	defaultPixelsPerHour  = 60.0
	defaultGranularity    = 15 * time.Minute
)

// Layout describes the vertical scale of one day column.
type Layout struct {
	DayStartMinute int           // first rendered minute of the day
	DayEndMinute   int           // last rendered minute of the day
	PixelsPerHour  float64       // vertical scale
	Granularity    time.Duration // snap step for drop candidates
}

// DefaultLayout is the 7:00-21:00 business-hours column at 60px/hour
// with 15-minute snapping.
func DefaultLayout() Layout {
	return Layout{
		DayStartMinute: defaultDayStartMinute,
		DayEndMinute:   defaultDayEndMinute,
		PixelsPerHour:  defaultPixelsPerHour,
		Granularity:    defaultGranularity,
	}
}

func (l Layout) withDefaults() Layout {
	if l.DayEndMinute <= l.DayStartMinute {
		l.DayStartMinute = defaultDayStartMinute
		l.DayEndMinute = defaultDayEndMinute
	}
	if l.PixelsPerHour <= 0 {
		l.PixelsPerHour = defaultPixelsPerHour
	}
	if l.Granularity <= 0 {
		l.Granularity = defaultGranularity
	}
	return l
}

// Box is a vertical extent within a day column, in pixels.
type Box struct {
	Top    float64
	Height float64
}

// MinuteToY converts a minute-of-day to a pixel offset from the top of
// the column.
func (l Layout) MinuteToY(minute int) float64 {
	l = l.withDefaults()
	return float64(minute-l.DayStartMinute) * l.PixelsPerHour / 60.0
}

// YToMinute converts a pixel offset to an unsnapped minute-of-day,
// clamped to the rendered window.
func (l Layout) YToMinute(y float64) int {
	l = l.withDefaults()
	minute := l.DayStartMinute + int(y*60.0/l.PixelsPerHour)
	if minute < l.DayStartMinute {
		minute = l.DayStartMinute
	}
	if minute > l.DayEndMinute {
		minute = l.DayEndMinute
	}
	return minute
}

// SnapMinute rounds a minute-of-day to the nearest granularity step.
func (l Layout) SnapMinute(minute int) int {
	l = l.withDefaults()
	step := int(l.Granularity.Minutes())
	if step <= 0 {
		return minute
	}
	snapped := ((minute + step/2) / step) * step
	if snapped < l.DayStartMinute {
		snapped = l.DayStartMinute
	}
	if snapped > l.DayEndMinute {
		snapped = l.DayEndMinute
	}
	return snapped
}

// AppointmentBox returns the pixel extent of an appointment within its
// day column.
func (l Layout) AppointmentBox(appt schedule.Appointment) Box {
	startMin := appt.StartTime.Hour()*60 + appt.StartTime.Minute()
	dur := appt.EndTime.Sub(appt.StartTime).Minutes()
	l = l.withDefaults()
	return Box{
		Top:    l.MinuteToY(startMin),
		Height: dur * l.PixelsPerHour / 60.0,
	}
}

// WorkingBoxes returns the pixel extents of a column's working-hour
// windows, rendered as the droppable background.
func (l Layout) WorkingBoxes(hours []schedule.Interval) []Box {
	l = l.withDefaults()
	boxes := make([]Box, 0, len(hours))
	for _, iv := range hours {
		boxes = append(boxes, Box{
			Top:    l.MinuteToY(iv.StartMinute),
			Height: float64(iv.EndMinute-iv.StartMinute) * l.PixelsPerHour / 60.0,
		})
	}
	return boxes
}

// CandidateStart converts a pointer position over a staff column into a
// snapped candidate start instant. It returns false for columns the
// staff member is not working that day; such gestures are never emitted
// to the calendar manager.
func (l Layout) CandidateStart(day time.Time, col schedule.StaffDay, y float64) (time.Time, bool) {
	if !col.IsWorking {
		return time.Time{}, false
	}
	minute := l.SnapMinute(l.YToMinute(y))
	start := time.Date(day.Year(), day.Month(), day.Day(), minute/60, minute%60, 0, 0, day.Location())
	return start, true
}
