package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrIntervalOrder  = errors.New("working-hour intervals must be ascending and non-overlapping")
	ErrIntervalBounds = errors.New("working-hour interval out of day bounds")
	ErrIntervalEmpty  = errors.New("working-hour interval must end after it starts")
)

const minutesPerDay = 24 * 60

// Interval is a time-of-day window in minutes from midnight, half-open.
type Interval struct {
	StartMinute int
	EndMinute   int
}

func (iv Interval) Validate() error {
	if iv.StartMinute < 0 || iv.EndMinute > minutesPerDay {
		return ErrIntervalBounds
	}
	if iv.EndMinute <= iv.StartMinute {
		return ErrIntervalEmpty
	}
	return nil
}

// DayHours is one weekday's schedule for a staff member.
type DayHours struct {
	Working   bool
	Intervals []Interval
}

// WeeklyHours indexes DayHours by time.Weekday (Sunday = 0).
type WeeklyHours [7]DayHours

// Validate checks every day's intervals for ordering and bounds.
func (w WeeklyHours) Validate() error {
	for d, day := range w {
		prevEnd := -1
		for _, iv := range day.Intervals {
			if err := iv.Validate(); err != nil {
				return fmt.Errorf("weekday %d: %w", d, err)
			}
			if iv.StartMinute < prevEnd {
				return fmt.Errorf("weekday %d: %w", d, ErrIntervalOrder)
			}
			prevEnd = iv.EndMinute
		}
	}
	return nil
}

// On returns the schedule for the weekday of t.
func (w WeeklyHours) On(t time.Time) DayHours {
	return w[int(t.Weekday())]
}

// Covers reports whether the time-of-day window [start, end) of a given
// day falls entirely inside one working interval.
func (d DayHours) Covers(start, end time.Time) bool {
	if !d.Working {
		return false
	}
	sm := start.Hour()*60 + start.Minute()
	em := end.Hour()*60 + end.Minute()
	if em == 0 && end.After(start) {
		em = minutesPerDay
	}
	for _, iv := range d.Intervals {
		if sm >= iv.StartMinute && em <= iv.EndMinute {
			return true
		}
	}
	return false
}
