// Package calendar holds the visible calendar state: view mode, anchor
// date, staff filter, the fetched staff-by-day grid, and the
// drag-and-drop reschedule workflow. Each Manager is an independent
// state container; a multi-window shell creates one per window.
package calendar

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-coordinator/internal/schedule"
	"github.com/slotwise/booking-coordinator/pkg/logging"
)

type ViewMode string

const (
	ViewDay  ViewMode = "day"
	ViewWeek ViewMode = "week"
)

// GridSource fetches the rendered grid; satisfied by remote.Client.
type GridSource interface {
	Calendar(ctx context.Context, start, end time.Time, staffIDs []uuid.UUID) (*schedule.Grid, error)
}

// Rescheduler issues the reschedule command; satisfied by remote.Client.
type Rescheduler interface {
	Reschedule(ctx context.Context, appointmentID uuid.UUID, newStart time.Time, newStaffID *uuid.UUID) (*schedule.Appointment, error)
}

// Snapshot is an immutable view of the manager state for rendering.
type Snapshot struct {
	View      ViewMode
	Anchor    time.Time
	SpanStart time.Time
	SpanEnd   time.Time
	Grid      *schedule.Grid
	Loading   bool
	Err       error
	Drag      DragState
	Pending   *PendingReschedule
}

type Manager struct {
	source      GridSource
	rescheduler Rescheduler
	logger      *logging.Logger

	mu          sync.Mutex
	view        ViewMode
	anchor      time.Time
	staffFilter map[uuid.UUID]struct{}
	grid        *schedule.Grid
	loading     bool
	lastErr     error
	fetchToken  uint64

	drag    DragState
	gesture *dragGesture
	pending *PendingReschedule

	observers []func()
}

func NewManager(source GridSource, rescheduler Rescheduler, anchor time.Time, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{
		source:      source,
		rescheduler: rescheduler,
		logger:      logger.Component("calendar"),
		view:        ViewDay,
		anchor:      dateOnly(anchor),
		staffFilter: make(map[uuid.UUID]struct{}),
	}
}

// OnChange registers a callback invoked after every state change.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	m.observers = append(m.observers, fn)
	m.mu.Unlock()
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	start, end := m.spanLocked()
	snap := Snapshot{
		View:      m.view,
		Anchor:    m.anchor,
		SpanStart: start,
		SpanEnd:   end,
		Grid:      m.grid,
		Loading:   m.loading,
		Err:       m.lastErr,
		Drag:      m.drag,
	}
	if m.pending != nil {
		p := *m.pending
		snap.Pending = &p
	}
	return snap
}

// SetView switches between day and week view and refetches.
func (m *Manager) SetView(ctx context.Context, mode ViewMode) {
	m.mu.Lock()
	if mode != ViewDay && mode != ViewWeek {
		m.mu.Unlock()
		return
	}
	m.view = mode
	m.fetchLocked(ctx)
	m.mu.Unlock()
	m.notify()
}

// SetDate moves the anchor date and refetches.
func (m *Manager) SetDate(ctx context.Context, date time.Time) {
	m.mu.Lock()
	m.anchor = dateOnly(date)
	m.fetchLocked(ctx)
	m.mu.Unlock()
	m.notify()
}

// StepPeriod moves the anchor by delta periods: days in day view, weeks
// in week view.
func (m *Manager) StepPeriod(ctx context.Context, delta int) {
	m.mu.Lock()
	days := delta
	if m.view == ViewWeek {
		days = delta * 7
	}
	m.anchor = m.anchor.AddDate(0, 0, days)
	m.fetchLocked(ctx)
	m.mu.Unlock()
	m.notify()
}

// ToggleStaffFilter adds or removes a staff member from the filter set
// (empty set means all staff) and refetches.
func (m *Manager) ToggleStaffFilter(ctx context.Context, id uuid.UUID) {
	m.mu.Lock()
	if _, ok := m.staffFilter[id]; ok {
		delete(m.staffFilter, id)
	} else {
		m.staffFilter[id] = struct{}{}
	}
	m.fetchLocked(ctx)
	m.mu.Unlock()
	m.notify()
}

// Refresh refetches the grid for the current view parameters.
func (m *Manager) Refresh(ctx context.Context) {
	m.mu.Lock()
	m.fetchLocked(ctx)
	m.mu.Unlock()
	m.notify()
}

// HandleRemoteEvent reacts to a push notification about a changed day.
// The event payload is never trusted; if the day intersects the visible
// span the grid is refetched.
func (m *Manager) HandleRemoteEvent(ctx context.Context, day time.Time) {
	m.mu.Lock()
	start, end := m.spanLocked()
	d := dateOnly(day)
	if d.Before(start) || d.After(end) {
		m.mu.Unlock()
		return
	}
	m.fetchLocked(ctx)
	m.mu.Unlock()
	m.notify()
}

// Span returns the visible date span for the current view: the anchor
// day alone, or the Sunday-aligned week containing it.
func (m *Manager) Span() (start, end time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.spanLocked()
}

func (m *Manager) spanLocked() (time.Time, time.Time) {
	if m.view == ViewWeek {
		start := m.anchor.AddDate(0, 0, -int(m.anchor.Weekday()))
		return start, start.AddDate(0, 0, 6)
	}
	return m.anchor, m.anchor
}

// fetchLocked starts a grid fetch for the current span. Fetches are
// last-write-wins: a response whose token is no longer current is
// discarded, so a stale older response can never overwrite newer state.
func (m *Manager) fetchLocked(ctx context.Context) {
	m.fetchToken++
	token := m.fetchToken
	m.loading = true

	start, end := m.spanLocked()
	var ids []uuid.UUID
	for id := range m.staffFilter {
		ids = append(ids, id)
	}

	go func() {
		grid, err := m.source.Calendar(ctx, start, end, ids)

		m.mu.Lock()
		if token != m.fetchToken {
			m.mu.Unlock()
			return
		}
		m.loading = false
		if err != nil {
			m.lastErr = err
			m.logger.Warn("grid fetch failed",
				"start", start.Format("2006-01-02"), "end", end.Format("2006-01-02"), "error", err)
		} else {
			m.grid = grid
			m.lastErr = nil
		}
		m.mu.Unlock()
		m.notify()
	}()
}

func (m *Manager) notify() {
	m.mu.Lock()
	obs := append([]func(){}, m.observers...)
	m.mu.Unlock()
	for _, fn := range obs {
		fn()
	}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
