package stub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-coordinator/internal/schedule"
	"github.com/slotwise/booking-coordinator/pkg/logging"
)

const (
	EventAppointmentCreated     = "APPOINTMENT_CREATED"
	EventAppointmentRescheduled = "APPOINTMENT_RESCHEDULED"
	EventAppointmentCancelled   = "APPOINTMENT_CANCELLED"
)

var (
	ErrIntervalConflict = errors.New("target interval overlaps an existing appointment")
	ErrStaffNotWorking  = errors.New("staff is not working at the requested time")
	ErrNotReschedulable = errors.New("appointment status does not allow rescheduling")
)

// Scheduler is the dev-stub brain behind the HTTP contract. Its
// availability computation is a naive working-hours-minus-bookings
// scan; the production algorithm lives elsewhere and is consumed as an
// opaque query by the coordinator.
type Scheduler struct {
	store       Store
	granularity time.Duration
	depositTTL  time.Duration
	logger      *logging.Logger
	now         func() time.Time
}

func NewScheduler(store Store, granularity, depositTTL time.Duration, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.Default()
	}
	if granularity <= 0 {
		granularity = 15 * time.Minute
	}
	return &Scheduler{
		store:       store,
		granularity: granularity,
		depositTTL:  depositTTL,
		logger:      logger.Component("stub"),
		now:         time.Now,
	}
}

// CalendarView assembles the staff-by-day grid for [start, end]
// inclusive.
func (s *Scheduler) CalendarView(ctx context.Context, start, end time.Time, staffIDs []uuid.UUID) ([]schedule.Staff, map[string][]schedule.StaffDay, error) {
	staff, err := s.store.ListStaff(ctx, staffIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load staff: %w", err)
	}

	appts, err := s.store.ListAppointments(ctx, start, end.AddDate(0, 0, 1), staffIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("load appointments: %w", err)
	}

	byStaffDay := make(map[string][]schedule.Appointment)
	for _, a := range appts {
		key := a.StaffID.String() + "|" + schedule.DayKey(a.StartTime)
		byStaffDay[key] = append(byStaffDay[key], a)
	}

	days := make(map[string][]schedule.StaffDay)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		cols := make([]schedule.StaffDay, 0, len(staff))
		for _, st := range staff {
			dh := st.Hours.On(day)
			cols = append(cols, schedule.StaffDay{
				StaffID:      st.ID,
				IsWorking:    dh.Working,
				Hours:        dh.Intervals,
				Appointments: byStaffDay[st.ID.String()+"|"+schedule.DayKey(day)],
			})
		}
		days[schedule.DayKey(day)] = cols
	}
	return staff, days, nil
}

// Availability returns bookable slots for (date, service, staff?). A
// slot fits when its full interval (duration plus buffer) sits inside
// one working window, clears every active appointment, and has not
// already passed.
func (s *Scheduler) Availability(ctx context.Context, date time.Time, serviceID uuid.UUID, staffID *uuid.UUID) ([]schedule.Slot, error) {
	svc, err := s.store.GetServiceByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}

	var ids []uuid.UUID
	if staffID != nil {
		ids = []uuid.UUID{*staffID}
	}
	staff, err := s.store.ListStaff(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}

	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	appts, err := s.store.ListAppointments(ctx, dayStart, dayStart.AddDate(0, 0, 1), ids)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	now := s.now()
	slots := []schedule.Slot{}
	for _, st := range staff {
		dh := st.Hours.On(date)
		if !dh.Working {
			continue
		}
		for _, iv := range dh.Intervals {
			for m := iv.StartMinute; m+int((svc.Duration+svc.Buffer).Minutes()) <= iv.EndMinute; m += int(s.granularity.Minutes()) {
				slotStart := dayStart.Add(time.Duration(m) * time.Minute)
				slotEnd := svc.EndFor(slotStart)
				if slotStart.Before(now) {
					continue
				}
				if hasActiveOverlap(appts, st.ID, slotStart, slotEnd) {
					continue
				}
				slots = append(slots, schedule.Slot{
					StaffID:   st.ID,
					StaffName: st.Name,
					StartTime: slotStart,
					EndTime:   slotEnd,
				})
			}
		}
	}
	return slots, nil
}

func hasActiveOverlap(appts []schedule.Appointment, staffID uuid.UUID, start, end time.Time) bool {
	for _, a := range appts {
		if a.StaffID != staffID || !a.Status.Active() {
			continue
		}
		if schedule.Overlaps(start, end, a.StartTime, a.EndTime) {
			return true
		}
	}
	return false
}

// Create books an appointment. The interval must sit inside the staff
// member's working hours and clear every active appointment, otherwise
// the command is rejected with a conflict.
func (s *Scheduler) Create(ctx context.Context, clientID, staffID, serviceID uuid.UUID, start time.Time, notes string) (*schedule.Appointment, error) {
	if _, err := s.store.GetClientByID(ctx, clientID); err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	svc, err := s.store.GetServiceByID(ctx, serviceID)
	if err != nil {
		return nil, fmt.Errorf("load service: %w", err)
	}
	staff, err := s.store.GetStaffByID(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}

	end := svc.EndFor(start)
	if !staff.Hours.On(start).Covers(start, end) {
		return nil, ErrStaffNotWorking
	}

	n, err := s.store.CountActiveOverlapping(ctx, staffID, start, end, nil)
	if err != nil {
		return nil, fmt.Errorf("conflict check: %w", err)
	}
	if n > 0 {
		return nil, ErrIntervalConflict
	}

	appt, err := s.store.CreateAppointment(ctx, schedule.Appointment{
		ID:        uuid.New(),
		ClientID:  clientID,
		StaffID:   staffID,
		ServiceID: serviceID,
		StartTime: start,
		EndTime:   end,
		Status:    schedule.StatusPendingDeposit,
		Notes:     notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.logEvent(ctx, appt.ID, EventAppointmentCreated, map[string]any{
		"staff_id":   staffID.String(),
		"client_id":  clientID.String(),
		"start_time": start,
	})
	return appt, nil
}

// Reschedule moves an appointment, keeping its length, and bumps its
// version. Only pending-deposit and confirmed appointments move.
func (s *Scheduler) Reschedule(ctx context.Context, id uuid.UUID, newStart time.Time, newStaffID *uuid.UUID) (*schedule.Appointment, error) {
	appt, err := s.store.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if !appt.Status.Draggable() {
		return nil, ErrNotReschedulable
	}

	staffID := appt.StaffID
	if newStaffID != nil {
		staffID = *newStaffID
	}
	staff, err := s.store.GetStaffByID(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}

	newEnd := newStart.Add(appt.EndTime.Sub(appt.StartTime))
	if !staff.Hours.On(newStart).Covers(newStart, newEnd) {
		return nil, ErrStaffNotWorking
	}

	n, err := s.store.CountActiveOverlapping(ctx, staffID, newStart, newEnd, &id)
	if err != nil {
		return nil, fmt.Errorf("conflict check: %w", err)
	}
	if n > 0 {
		return nil, ErrIntervalConflict
	}

	moved, err := s.store.RescheduleAppointment(ctx, id, staffID, newStart, newEnd)
	if err != nil {
		return nil, fmt.Errorf("reschedule appointment: %w", err)
	}

	s.logEvent(ctx, moved.ID, EventAppointmentRescheduled, map[string]any{
		"from_staff_id": appt.StaffID.String(),
		"from_start":    appt.StartTime,
		"to_staff_id":   staffID.String(),
		"to_start":      newStart,
	})
	return moved, nil
}

// ExpireLapsedDeposits cancels pending-deposit appointments older than
// the deposit window. Called periodically by the expiry worker.
func (s *Scheduler) ExpireLapsedDeposits(ctx context.Context) error {
	cutoff := s.now().Add(-s.depositTTL)
	lapsed, err := s.store.FindLapsedPendingDeposits(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("find lapsed pending deposits: %w", err)
	}

	for _, appt := range lapsed {
		_, err := s.store.UpdateAppointmentStatus(ctx, appt.ID, schedule.StatusPendingDeposit, schedule.StatusCancelled)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			s.logger.Warn("failed to cancel lapsed appointment", "appointment_id", appt.ID, "error", err)
			continue
		}
		s.logEvent(ctx, appt.ID, EventAppointmentCancelled, map[string]any{
			"reason": "deposit_window_lapsed",
		})
	}
	return nil
}

func (s *Scheduler) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event payload", "event_type", eventType, "error", err)
		data = nil
	}

	apptID := appointmentID
	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     s.now(),
	}
	if err := s.store.InsertEvent(ctx, ev); err != nil {
		s.logger.Warn("failed to insert event log", "event_type", eventType, "appointment_id", appointmentID, "error", err)
	}
}
