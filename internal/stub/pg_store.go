package stub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slotwise/booking-coordinator/internal/schedule"
)

type PgStore struct {
	pool *pgxpool.Pool
}

func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// Helpers

func scanAppointment(row pgx.Row) (*schedule.Appointment, error) {
	var a schedule.Appointment
	var notes *string

	err := row.Scan(
		&a.ID,
		&a.ClientID,
		&a.StaffID,
		&a.ServiceID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.Version,
		&notes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	if notes != nil {
		a.Notes = *notes
	}
	return &a, nil
}

const appointmentColumns = `id, client_id, staff_id, service_id, start_time, end_time, status, version, notes, created_at, updated_at`

func (s *PgStore) ListStaff(ctx context.Context, ids []uuid.UUID) ([]schedule.Staff, error) {
	query := `SELECT id, name, color, active FROM staff WHERE active`
	args := []any{}
	if len(ids) > 0 {
		query += ` AND id = ANY($1)`
		args = append(args, ids)
	}
	query += ` ORDER BY name`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var out []schedule.Staff
	for rows.Next() {
		var st schedule.Staff
		if err := rows.Scan(&st.ID, &st.Name, &st.Color, &st.Active); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		hours, err := s.loadHours(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Hours = hours
	}
	return out, nil
}

func (s *PgStore) loadHours(ctx context.Context, staffID uuid.UUID) (schedule.WeeklyHours, error) {
	var hours schedule.WeeklyHours

	rows, err := s.pool.Query(ctx, `
		SELECT weekday, start_minute, end_minute
		FROM staff_hours
		WHERE staff_id = $1
		ORDER BY weekday, start_minute
	`, staffID)
	if err != nil {
		return hours, fmt.Errorf("load staff hours: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var weekday, startMinute, endMinute int
		if err := rows.Scan(&weekday, &startMinute, &endMinute); err != nil {
			return hours, err
		}
		if weekday < 0 || weekday > 6 {
			continue
		}
		hours[weekday].Working = true
		hours[weekday].Intervals = append(hours[weekday].Intervals, schedule.Interval{
			StartMinute: startMinute,
			EndMinute:   endMinute,
		})
	}
	return hours, rows.Err()
}

func (s *PgStore) GetStaffByID(ctx context.Context, id uuid.UUID) (*schedule.Staff, error) {
	var st schedule.Staff
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, color, active FROM staff WHERE id = $1
	`, id).Scan(&st.ID, &st.Name, &st.Color, &st.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	hours, err := s.loadHours(ctx, st.ID)
	if err != nil {
		return nil, err
	}
	st.Hours = hours
	return &st, nil
}

func (s *PgStore) GetServiceByID(ctx context.Context, id uuid.UUID) (*schedule.Service, error) {
	var svc schedule.Service
	var durationMin, bufferMin int
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, duration_min, buffer_min, price_cents, active
		FROM services WHERE id = $1
	`, id).Scan(&svc.ID, &svc.Name, &durationMin, &bufferMin, &svc.PriceCents, &svc.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, err
	}
	svc.Duration = time.Duration(durationMin) * time.Minute
	svc.Buffer = time.Duration(bufferMin) * time.Minute
	return &svc, nil
}

func (s *PgStore) GetClientByID(ctx context.Context, id uuid.UUID) (*schedule.Client, error) {
	var c schedule.Client
	var email, phone *string
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, email, phone FROM clients WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &email, &phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	if email != nil {
		c.Email = *email
	}
	if phone != nil {
		c.Phone = *phone
	}
	return &c, nil
}

func (s *PgStore) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+` FROM appointments WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (s *PgStore) ListAppointments(ctx context.Context, start, end time.Time, staffIDs []uuid.UUID) ([]schedule.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE start_time >= $1 AND start_time < $2`
	args := []any{start, end}
	if len(staffIDs) > 0 {
		query += ` AND staff_id = ANY($3)`
		args = append(args, staffIDs)
	}
	query += ` ORDER BY start_time`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var out []schedule.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *appt)
	}
	return out, rows.Err()
}

func (s *PgStore) CountActiveOverlapping(ctx context.Context, staffID uuid.UUID, start, end time.Time, exclude *uuid.UUID) (int, error) {
	query := `
		SELECT count(*)
		FROM appointments
		WHERE staff_id = $1
		  AND status NOT IN ('cancelled', 'no_show')
		  AND start_time < $3
		  AND end_time > $2`
	args := []any{staffID, start, end}
	if exclude != nil {
		query += ` AND id <> $4`
		args = append(args, *exclude)
	}

	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count overlapping appointments: %w", err)
	}
	return n, nil
}

func (s *PgStore) CreateAppointment(ctx context.Context, appt schedule.Appointment) (*schedule.Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, client_id, staff_id, service_id, start_time, end_time, status, version, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, now(), now())
		RETURNING `+appointmentColumns+`
	`, appt.ID, appt.ClientID, appt.StaffID, appt.ServiceID, appt.StartTime, appt.EndTime, appt.Status, appt.Notes)
	return scanAppointment(row)
}

func (s *PgStore) RescheduleAppointment(ctx context.Context, id uuid.UUID, newStaffID uuid.UUID, newStart, newEnd time.Time) (*schedule.Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE appointments
		SET staff_id = $2, start_time = $3, end_time = $4, version = version + 1, updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns+`
	`, id, newStaffID, newStart, newEnd)
	return scanAppointment(row)
}

func (s *PgStore) FindLapsedPendingDeposits(ctx context.Context, cutoff time.Time) ([]schedule.Appointment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE status = 'pending_deposit' AND created_at < $1
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("find lapsed pending deposits: %w", err)
	}
	defer rows.Close()

	var out []schedule.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *appt)
	}
	return out, rows.Err()
}

func (s *PgStore) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to schedule.AppointmentStatus) (*schedule.Appointment, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3, version = version + 1, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+appointmentColumns+`
	`, id, from, to)
	return scanAppointment(row)
}

func (s *PgStore) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO schedule_events (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`, ev.EventType, ev.AppointmentID, ev.Payload, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}
