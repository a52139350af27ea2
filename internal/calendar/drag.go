package calendar

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-coordinator/internal/schedule"
)

// DragState is the explicit drag lifecycle. Modeling it as a state
// machine makes illegal transitions (confirming with nothing pending)
// unrepresentable rather than merely unlikely.
type DragState int

const (
	DragIdle DragState = iota
	DragActive
	DragPendingConfirm
)

var (
	ErrNotDraggable  = errors.New("appointment status does not allow rescheduling by drag")
	ErrNoDrag        = errors.New("no drag in progress")
	ErrNothingStaged = errors.New("no pending reschedule")
)

// PendingReschedule is a staged, unconfirmed appointment move awaiting
// operator confirmation. It exists only between endDrag and
// confirm/cancel.
type PendingReschedule struct {
	Appointment schedule.Appointment
	FromStaffID uuid.UUID
	FromStart   time.Time
	ToStaffID   uuid.UUID
	ToStart     time.Time
}

type dragGesture struct {
	appointment schedule.Appointment
	fromStaffID uuid.UUID
	fromStart   time.Time
	target      *dropTarget
}

type dropTarget struct {
	staffID uuid.UUID
	start   time.Time
}

// StartDrag begins dragging an appointment out of its origin column.
// Only pending-deposit and confirmed appointments are draggable;
// terminal and in-service statuses must not be rescheduled this way.
func (m *Manager) StartDrag(appt schedule.Appointment, originStaffID uuid.UUID) error {
	m.mu.Lock()
	if m.drag != DragIdle {
		m.mu.Unlock()
		return ErrNoDrag
	}
	if !appt.Status.Draggable() {
		m.mu.Unlock()
		return ErrNotDraggable
	}
	m.drag = DragActive
	m.gesture = &dragGesture{
		appointment: appt,
		fromStaffID: originStaffID,
		fromStart:   appt.StartTime,
	}
	m.mu.Unlock()
	m.notify()
	return nil
}

// UpdateDropTarget records the candidate drop position while the
// pointer moves over a droppable column. Columns the loaded grid does
// not carry, and columns the staff member is not working on that day,
// are ignored; with no grid loaded there is nothing to drop on.
func (m *Manager) UpdateDropTarget(staffID uuid.UUID, candidateStart time.Time) {
	m.mu.Lock()
	if m.drag != DragActive {
		m.mu.Unlock()
		return
	}
	if m.grid == nil {
		m.mu.Unlock()
		return
	}
	col, ok := m.grid.ColumnFor(staffID, candidateStart)
	if !ok || !col.IsWorking {
		m.mu.Unlock()
		return
	}
	m.gesture.target = &dropTarget{staffID: staffID, start: candidateStart}
	m.mu.Unlock()
	m.notify()
}

// EndDrag finishes the gesture. A drop on a target that differs from
// the origin (other staff or other start) stages a pending reschedule;
// anything else is a silent no-op.
func (m *Manager) EndDrag() {
	m.mu.Lock()
	if m.drag != DragActive {
		m.mu.Unlock()
		return
	}
	g := m.gesture
	m.gesture = nil

	if g.target == nil ||
		(g.target.staffID == g.fromStaffID && g.target.start.Equal(g.fromStart)) {
		m.drag = DragIdle
		m.mu.Unlock()
		m.notify()
		return
	}

	m.drag = DragPendingConfirm
	m.pending = &PendingReschedule{
		Appointment: g.appointment,
		FromStaffID: g.fromStaffID,
		FromStart:   g.fromStart,
		ToStaffID:   g.target.staffID,
		ToStart:     g.target.start,
	}
	m.mu.Unlock()
	m.notify()
}

// ConfirmReschedule issues the reschedule command for the staged move
// and refetches the grid. On failure the pending state is preserved so
// the operator can retry or cancel; a conflict surfaces as
// remote.ErrConflict through the returned error.
func (m *Manager) ConfirmReschedule(ctx context.Context) error {
	m.mu.Lock()
	if m.drag != DragPendingConfirm || m.pending == nil {
		m.mu.Unlock()
		return ErrNothingStaged
	}
	p := *m.pending
	m.mu.Unlock()

	var newStaff *uuid.UUID
	if p.ToStaffID != p.FromStaffID {
		id := p.ToStaffID
		newStaff = &id
	}

	_, err := m.rescheduler.Reschedule(ctx, p.Appointment.ID, p.ToStart, newStaff)

	m.mu.Lock()
	if err != nil {
		m.lastErr = err
		m.mu.Unlock()
		m.notify()
		return err
	}
	m.pending = nil
	m.drag = DragIdle
	m.lastErr = nil
	m.fetchLocked(ctx)
	m.mu.Unlock()
	m.notify()
	return nil
}

// CancelReschedule discards the staged move with no network effect.
func (m *Manager) CancelReschedule() {
	m.mu.Lock()
	if m.drag != DragPendingConfirm {
		m.mu.Unlock()
		return
	}
	m.pending = nil
	m.drag = DragIdle
	m.lastErr = nil
	m.mu.Unlock()
	m.notify()
}
