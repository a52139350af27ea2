package stub

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-coordinator/internal/schedule"
)

var (
	ErrStaffNotFound       = errors.New("staff not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrClientNotFound      = errors.New("client not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
)

// EventLog is an append-only record of mutating commands, kept so the
// shell (or a future push channel) can replay what changed.
type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

// Store contains all DB interactions needed by the scheduler.
type Store interface {
	ListStaff(ctx context.Context, ids []uuid.UUID) ([]schedule.Staff, error)
	GetStaffByID(ctx context.Context, id uuid.UUID) (*schedule.Staff, error)
	GetServiceByID(ctx context.Context, id uuid.UUID) (*schedule.Service, error)
	GetClientByID(ctx context.Context, id uuid.UUID) (*schedule.Client, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error)

	// ListAppointments returns appointments starting within [start, end)
	// for the given staff (all staff when ids is empty).
	ListAppointments(ctx context.Context, start, end time.Time, staffIDs []uuid.UUID) ([]schedule.Appointment, error)

	// CountActiveOverlapping is the conflict check: active appointments
	// for one staff member intersecting [start, end), optionally
	// excluding one appointment id (for reschedules).
	CountActiveOverlapping(ctx context.Context, staffID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (int, error)

	CreateAppointment(ctx context.Context, appt schedule.Appointment) (*schedule.Appointment, error)

	// RescheduleAppointment moves an appointment and bumps its version.
	RescheduleAppointment(ctx context.Context, id uuid.UUID, newStaffID uuid.UUID, newStart, newEnd time.Time) (*schedule.Appointment, error)

	// Expiry worker
	FindLapsedPendingDeposits(ctx context.Context, cutoff time.Time) ([]schedule.Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to schedule.AppointmentStatus) (*schedule.Appointment, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
