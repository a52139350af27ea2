package stub

import (
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-coordinator/internal/schedule"
)

type IntervalPayload struct {
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

type StaffPayload struct {
	ID     uuid.UUID           `json:"id"`
	Name   string              `json:"name"`
	Color  string              `json:"color"`
	Active bool                `json:"active"`
	Hours  [][]IntervalPayload `json:"hours"`
}

type AppointmentPayload struct {
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

type PerStaffDayPayload struct {
	StaffID      uuid.UUID            `json:"staff_id"`
	IsWorking    bool                 `json:"is_working"`
	WorkingHours []IntervalPayload    `json:"working_hours"`
	Appointments []AppointmentPayload `json:"appointments"`
}

type CalendarResponse struct {
	Staff []StaffPayload                  `json:"staff"`
	Days  map[string][]PerStaffDayPayload `json:"days"`
}

type SlotPayload struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	StaffID   uuid.UUID `json:"staff_id"`
	StaffName string    `json:"staff_name"`
}

type AvailabilityResponse struct {
	Slots []SlotPayload `json:"slots"`
}

type CreateAppointmentRequest struct {
	ClientID  string    `json:"client_id"`
	StaffID   string    `json:"staff_id"`
	ServiceID string    `json:"service_id"`
	StartTime time.Time `json:"start_time"`
	Notes     string    `json:"notes,omitempty"`
}

type RescheduleRequest struct {
	NewStartTime time.Time `json:"new_start_time"`
	NewStaffID   *string   `json:"new_staff_id,omitempty"`
}

type LockRequest struct {
	StaffID   string    `json:"staff_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type LockResponse struct {
	LockID    uuid.UUID `json:"lock_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toStaffPayload(st schedule.Staff) StaffPayload {
	var hours [][]IntervalPayload
	for _, day := range st.Hours {
		hours = append(hours, toIntervalPayloads(day.Intervals))
	}
	return StaffPayload{ID: st.ID, Name: st.Name, Color: st.Color, Active: st.Active, Hours: hours}
}

func toIntervalPayloads(ivs []schedule.Interval) []IntervalPayload {
	out := make([]IntervalPayload, 0, len(ivs))
	for _, iv := range ivs {
		out = append(out, IntervalPayload{StartMinute: iv.StartMinute, EndMinute: iv.EndMinute})
	}
	return out
}

func toAppointmentPayload(a schedule.Appointment) AppointmentPayload {
	return AppointmentPayload{
		ID:        a.ID,
		ClientID:  a.ClientID,
		StaffID:   a.StaffID,
		ServiceID: a.ServiceID,
		StartTime: a.StartTime,
		EndTime:   a.EndTime,
		Status:    string(a.Status),
		Version:   a.Version,
		Notes:     a.Notes,
	}
}
