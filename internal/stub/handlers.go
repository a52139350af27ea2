package stub

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

func calendarHandler(s *Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, err := time.Parse(dateLayout, r.URL.Query().Get("start"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start", "start must be YYYY-MM-DD")
			return
		}
		end, err := time.Parse(dateLayout, r.URL.Query().Get("end"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end", "end must be YYYY-MM-DD")
			return
		}

		var staffIDs []uuid.UUID
		if raw := r.URL.Query().Get("staff_ids"); raw != "" {
			for _, part := range strings.Split(raw, ",") {
				id, err := uuid.Parse(part)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid_staff_ids", "staff_ids must be comma-separated UUIDs")
					return
				}
				staffIDs = append(staffIDs, id)
			}
		}

		staff, days, err := s.CalendarView(r.Context(), start, end, staffIDs)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}

		resp := CalendarResponse{
			Staff: make([]StaffPayload, 0, len(staff)),
			Days:  make(map[string][]PerStaffDayPayload, len(days)),
		}
		for _, st := range staff {
			resp.Staff = append(resp.Staff, toStaffPayload(st))
		}
		for day, cols := range days {
			mapped := make([]PerStaffDayPayload, 0, len(cols))
			for _, col := range cols {
				appts := make([]AppointmentPayload, 0, len(col.Appointments))
				for _, a := range col.Appointments {
					appts = append(appts, toAppointmentPayload(a))
				}
				mapped = append(mapped, PerStaffDayPayload{
					StaffID:      col.StaffID,
					IsWorking:    col.IsWorking,
					WorkingHours: toIntervalPayloads(col.Hours),
					Appointments: appts,
				})
			}
			resp.Days[day] = mapped
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func availabilityHandler(s *Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, err := time.Parse(dateLayout, r.URL.Query().Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "date must be YYYY-MM-DD")
			return
		}
		serviceID, err := uuid.Parse(r.URL.Query().Get("service_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}
		var staffID *uuid.UUID
		if raw := r.URL.Query().Get("staff_id"); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_staff_id", "staff_id must be a valid UUID")
				return
			}
			staffID = &id
		}

		slots, err := s.Availability(r.Context(), date, serviceID, staffID)
		if err != nil {
			handleQueryError(w, err)
			return
		}

		resp := AvailabilityResponse{Slots: make([]SlotPayload, 0, len(slots))}
		for _, slot := range slots {
			resp.Slots = append(resp.Slots, SlotPayload{
				StartTime: slot.StartTime,
				EndTime:   slot.EndTime,
				StaffID:   slot.StaffID,
				StaffName: slot.StaffName,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createAppointmentHandler(s *Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a valid UUID")
			return
		}
		staffID, err := uuid.Parse(req.StaffID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "staff_id must be a valid UUID")
			return
		}
		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}

		appt, err := s.Create(r.Context(), clientID, staffID, serviceID, req.StartTime, req.Notes)
		if err != nil {
			handleCommandError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toAppointmentPayload(*appt))
	}
}

func rescheduleHandler(s *Scheduler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		var req RescheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var newStaffID *uuid.UUID
		if req.NewStaffID != nil {
			sid, err := uuid.Parse(*req.NewStaffID)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_staff_id", "new_staff_id must be a valid UUID")
				return
			}
			newStaffID = &sid
		}

		appt, err := s.Reschedule(r.Context(), id, req.NewStartTime, newStaffID)
		if err != nil {
			handleCommandError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAppointmentPayload(*appt))
	}
}

func acquireLockHandler(locks *LockStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LockRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		staffID, err := uuid.Parse(req.StaffID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "staff_id must be a valid UUID")
			return
		}
		if !req.EndTime.After(req.StartTime) {
			writeError(w, http.StatusBadRequest, "invalid_interval", "end_time must be after start_time")
			return
		}

		lockID, expiresAt, err := locks.Acquire(r.Context(), staffID, req.StartTime, req.EndTime)
		if err != nil {
			if errors.Is(err, ErrIntervalLocked) {
				writeError(w, http.StatusConflict, "interval_locked", "interval is being booked by another operator")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, LockResponse{LockID: lockID, ExpiresAt: expiresAt})
	}
}

func releaseLockHandler(locks *LockStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_lock_id", "id must be a valid UUID")
			return
		}

		if err := locks.Release(r.Context(), id); err != nil {
			if errors.Is(err, ErrLockNotFound) {
				writeError(w, http.StatusNotFound, "lock_not_found", "lock does not exist or already expired")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleQueryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, ErrStaffNotFound):
		writeError(w, http.StatusNotFound, "staff_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleCommandError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrClientNotFound):
		writeError(w, http.StatusNotFound, "client_not_found", err.Error())
	case errors.Is(err, ErrServiceNotFound):
		writeError(w, http.StatusNotFound, "service_not_found", err.Error())
	case errors.Is(err, ErrStaffNotFound):
		writeError(w, http.StatusNotFound, "staff_not_found", err.Error())
	case errors.Is(err, ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, ErrIntervalConflict):
		writeError(w, http.StatusConflict, "interval_conflict", err.Error())
	case errors.Is(err, ErrStaffNotWorking):
		writeError(w, http.StatusConflict, "staff_not_working", err.Error())
	case errors.Is(err, ErrNotReschedulable):
		writeError(w, http.StatusConflict, "not_reschedulable", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
