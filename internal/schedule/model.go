package schedule

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPendingDeposit AppointmentStatus = "pending_deposit"
	StatusConfirmed      AppointmentStatus = "confirmed"
	StatusCheckedIn      AppointmentStatus = "checked_in"
	StatusInProgress     AppointmentStatus = "in_progress"
	StatusCompleted      AppointmentStatus = "completed"
	StatusCancelled      AppointmentStatus = "cancelled"
	StatusNoShow         AppointmentStatus = "no_show"
)

// Draggable reports whether an appointment in this status may be
// rescheduled by dragging. Checked-in and later statuses are locked.
func (s AppointmentStatus) Draggable() bool {
	return s == StatusPendingDeposit || s == StatusConfirmed
}

// Active reports whether the appointment still occupies its interval
// for conflict purposes.
func (s AppointmentStatus) Active() bool {
	return s != StatusCancelled && s != StatusNoShow
}

type Appointment struct {
	ID        uuid.UUID
	ClientID  uuid.UUID
	StaffID   uuid.UUID
	ServiceID uuid.UUID
	StartTime time.Time
	EndTime   time.Time
	Status    AppointmentStatus
	Version   int
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Service struct {
	ID         uuid.UUID
	Name       string
	Duration   time.Duration
	Buffer     time.Duration
	PriceCents int
	Active     bool
}

// EndFor returns the end instant of an appointment for this service
// starting at start: duration plus buffer.
func (s Service) EndFor(start time.Time) time.Time {
	return start.Add(s.Duration + s.Buffer)
}

type Staff struct {
	ID     uuid.UUID
	Name   string
	Color  string // hex color for grid rendering
	Active bool
	Hours  WeeklyHours
}

type Client struct {
	ID    uuid.UUID
	Name  string
	Email string
	Phone string
}

// Slot is a candidate bookable interval returned by an availability
// query. It is a hint, not a reservation.
type Slot struct {
	StaffID   uuid.UUID
	StaffName string
	StartTime time.Time
	EndTime   time.Time
}

// Lock is a time-boxed advisory reservation on a (staff, interval) pair.
type Lock struct {
	ID        uuid.UUID
	ExpiresAt time.Time
}

// Expired reports whether the lock has lapsed at instant now.
func (l Lock) Expired(now time.Time) bool {
	return !now.Before(l.ExpiresAt)
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
