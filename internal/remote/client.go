package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-coordinator/internal/schedule"
	"github.com/slotwise/booking-coordinator/pkg/logging"
)

const defaultTimeout = 10 * time.Second

var (
	// ErrConflict means the server rejected a create/reschedule because
	// the target interval is no longer free, or a lock is already held.
	ErrConflict = errors.New("remote: interval no longer available")
	ErrNotFound = errors.New("remote: not found")
)

// Client talks to the remote scheduling service over HTTP JSON. It is
// the only piece of the coordinator that knows the wire contract.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *logging.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Component("remote"),
	}
}

// Calendar fetches the staff-by-day grid for [start, end] inclusive.
func (c *Client) Calendar(ctx context.Context, start, end time.Time, staffIDs []uuid.UUID) (*schedule.Grid, error) {
	q := url.Values{}
	q.Set("start", start.Format(DateLayout))
	q.Set("end", end.Format(DateLayout))
	if len(staffIDs) > 0 {
		ids := make([]string, 0, len(staffIDs))
		for _, id := range staffIDs {
			ids = append(ids, id.String())
		}
		q.Set("staff_ids", strings.Join(ids, ","))
	}

	var out calendarResponse
	if err := c.do(ctx, http.MethodGet, "/calendar?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}

	grid := &schedule.Grid{
		Staff: make([]schedule.Staff, 0, len(out.Staff)),
		Days:  make(map[string][]schedule.StaffDay, len(out.Days)),
	}
	for _, sp := range out.Staff {
		grid.Staff = append(grid.Staff, toStaff(sp))
	}
	for day, cols := range out.Days {
		mapped := make([]schedule.StaffDay, 0, len(cols))
		for _, col := range cols {
			mapped = append(mapped, schedule.StaffDay{
				StaffID:      col.StaffID,
				IsWorking:    col.IsWorking,
				Hours:        toIntervals(col.WorkingHours),
				Appointments: toAppointments(col.Appointments),
			})
		}
		grid.Days[day] = mapped
	}
	return grid, nil
}

// Availability queries bookable slots for (date, service, staff?).
// An empty slice is a valid outcome, not an error.
func (c *Client) Availability(ctx context.Context, date time.Time, serviceID uuid.UUID, staffID *uuid.UUID) ([]schedule.Slot, error) {
	q := url.Values{}
	q.Set("date", date.Format(DateLayout))
	q.Set("service_id", serviceID.String())
	if staffID != nil {
		q.Set("staff_id", staffID.String())
	}

	var out availabilityResponse
	if err := c.do(ctx, http.MethodGet, "/availability?"+q.Encode(), nil, &out); err != nil {
		return nil, fmt.Errorf("fetch availability: %w", err)
	}

	slots := make([]schedule.Slot, 0, len(out.Slots))
	for _, sp := range out.Slots {
		slots = append(slots, schedule.Slot{
			StaffID:   sp.StaffID,
			StaffName: sp.StaffName,
			StartTime: sp.StartTime,
			EndTime:   sp.EndTime,
		})
	}
	return slots, nil
}

// CreateAppointment submits the final create command. A conflict from
// the server surfaces as ErrConflict.
func (c *Client) CreateAppointment(ctx context.Context, clientID, staffID, serviceID uuid.UUID, startTime time.Time, notes string) (*schedule.Appointment, error) {
	req := createAppointmentRequest{
		ClientID:  clientID,
		StaffID:   staffID,
		ServiceID: serviceID,
		StartTime: startTime,
		Notes:     notes,
	}
	var out appointmentPayload
	if err := c.do(ctx, http.MethodPost, "/appointments", req, &out); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	appt := toAppointment(out)
	return &appt, nil
}

// Reschedule moves an appointment to a new start and optionally a new
// staff member.
func (c *Client) Reschedule(ctx context.Context, appointmentID uuid.UUID, newStart time.Time, newStaffID *uuid.UUID) (*schedule.Appointment, error) {
	req := rescheduleRequest{NewStartTime: newStart, NewStaffID: newStaffID}
	var out appointmentPayload
	if err := c.do(ctx, http.MethodPost, "/appointments/"+appointmentID.String()+"/reschedule", req, &out); err != nil {
		return nil, fmt.Errorf("reschedule appointment: %w", err)
	}
	appt := toAppointment(out)
	return &appt, nil
}

// AcquireLock requests an advisory lock on a (staff, interval) pair.
func (c *Client) AcquireLock(ctx context.Context, staffID uuid.UUID, startTime, endTime time.Time) (*schedule.Lock, error) {
	req := lockRequest{StaffID: staffID, StartTime: startTime, EndTime: endTime}
	var out lockResponse
	if err := c.do(ctx, http.MethodPost, "/locks", req, &out); err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	return &schedule.Lock{ID: out.LockID, ExpiresAt: out.ExpiresAt}, nil
}

// ReleaseLock releases a previously acquired lock by id.
func (c *Client) ReleaseLock(ctx context.Context, lockID uuid.UUID) error {
	if err := c.do(ctx, http.MethodDelete, "/locks/"+lockID.String(), nil, nil); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var env errorEnvelope
		_ = json.Unmarshal(raw, &env)
		switch resp.StatusCode {
		case http.StatusConflict:
			if env.Error != "" {
				return fmt.Errorf("%w (%s)", ErrConflict, env.Error)
			}
			return ErrConflict
		case http.StatusNotFound:
			if env.Error != "" {
				return fmt.Errorf("%w (%s)", ErrNotFound, env.Error)
			}
			return ErrNotFound
		default:
			msg := env.Error
			if msg == "" {
				msg = truncate(string(raw), 300)
			}
			return fmt.Errorf("status %d: %s", resp.StatusCode, msg)
		}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

func toStaff(p staffPayload) schedule.Staff {
	var hours schedule.WeeklyHours
	for d := 0; d < 7 && d < len(p.Hours); d++ {
		ivs := toIntervals(p.Hours[d])
		hours[d] = schedule.DayHours{Working: len(ivs) > 0, Intervals: ivs}
	}
	return schedule.Staff{ID: p.ID, Name: p.Name, Color: p.Color, Active: p.Active, Hours: hours}
}

func toIntervals(ps []intervalPayload) []schedule.Interval {
	if len(ps) == 0 {
		return nil
	}
	out := make([]schedule.Interval, 0, len(ps))
	for _, p := range ps {
		out = append(out, schedule.Interval{StartMinute: p.StartMinute, EndMinute: p.EndMinute})
	}
	return out
}

func toAppointments(ps []appointmentPayload) []schedule.Appointment {
	if len(ps) == 0 {
		return nil
	}
	out := make([]schedule.Appointment, 0, len(ps))
	for _, p := range ps {
		out = append(out, toAppointment(p))
	}
	return out
}

func toAppointment(p appointmentPayload) schedule.Appointment {
	return schedule.Appointment{
		ID:        p.ID,
		ClientID:  p.ClientID,
		StaffID:   p.StaffID,
		ServiceID: p.ServiceID,
		StartTime: p.StartTime,
		EndTime:   p.EndTime,
		Status:    schedule.AppointmentStatus(p.Status),
		Version:   p.Version,
		Notes:     p.Notes,
	}
}
