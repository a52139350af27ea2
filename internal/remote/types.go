package remote

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the wire format for calendar day keys and query dates.
const DateLayout = "2006-01-02"

type errorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type intervalPayload struct {
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

type staffPayload struct {
	ID     uuid.UUID           `json:"id"`
	Name   string              `json:"name"`
	Color  string              `json:"color"`
	Active bool                `json:"active"`
	Hours  [][]intervalPayload `json:"hours"` // 7 entries, Sunday first; empty = not working
}

type appointmentPayload struct {
	ID        uuid.UUID `json:"id"`
	ClientID  uuid.UUID `json:"client_id"`
	StaffID   uuid.UUID `json:"staff_id"`
	ServiceID uuid.UUID `json:"service_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
	Version   int       `json:"version"`
	Notes     string    `json:"notes,omitempty"`
}

type perStaffDayPayload struct {
	StaffID      uuid.UUID            `json:"staff_id"`
	IsWorking    bool                 `json:"is_working"`
	WorkingHours []intervalPayload    `json:"working_hours"`
	Appointments []appointmentPayload `json:"appointments"`
}

type calendarResponse struct {
	Staff []staffPayload                  `json:"staff"`
	Days  map[string][]perStaffDayPayload `json:"days"`
}

type slotPayload struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	StaffID   uuid.UUID `json:"staff_id"`
	StaffName string    `json:"staff_name"`
}

type availabilityResponse struct {
	Slots []slotPayload `json:"slots"`
}

type createAppointmentRequest struct {
	ClientID  uuid.UUID `json:"client_id"`
	StaffID   uuid.UUID `json:"staff_id"`
	ServiceID uuid.UUID `json:"service_id"`
	StartTime time.Time `json:"start_time"`
	Notes     string    `json:"notes,omitempty"`
}

type rescheduleRequest struct {
	NewStartTime time.Time  `json:"new_start_time"`
	NewStaffID   *uuid.UUID `json:"new_staff_id,omitempty"`
}

type lockRequest struct {
	StaffID   uuid.UUID `json:"staff_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type lockResponse struct {
	LockID    uuid.UUID `json:"lock_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
