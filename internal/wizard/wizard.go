// Package wizard drives the five-step booking flow: service, staff,
// time, client, confirm. All draft state lives inside the Wizard and is
// discarded when it closes; nothing is persisted until the final create
// command succeeds server-side.
package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-coordinator/internal/schedule"
	"github.com/slotwise/booking-coordinator/pkg/logging"
)

type Step int

const (
	StepService Step = iota
	StepStaff
	StepTime
	StepClient
	StepConfirm
)

func (s Step) String() string {
	switch s {
	case StepService:
		return "service"
	case StepStaff:
		return "staff"
	case StepTime:
		return "time"
	case StepClient:
		return "client"
	case StepConfirm:
		return "confirm"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// ValidationError reports a missing required selection. It never
// reaches the network.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// AvailabilitySource yields bookable slots; satisfied by
// availability.Client.
type AvailabilitySource interface {
	Query(ctx context.Context, date time.Time, serviceID uuid.UUID, staffID *uuid.UUID) ([]schedule.Slot, error)
}

// AppointmentCreator submits the final create command; satisfied by
// remote.Client.
type AppointmentCreator interface {
	CreateAppointment(ctx context.Context, clientID, staffID, serviceID uuid.UUID, startTime time.Time, notes string) (*schedule.Appointment, error)
}

// LockManager softly reserves the selected slot; satisfied by
// slotlock.Manager. May be nil, in which case booking runs without the
// advisory protection.
type LockManager interface {
	Acquire(ctx context.Context, staffID uuid.UUID, startTime, endTime time.Time) *schedule.Lock
	Release(ctx context.Context)
}

// Options pre-seeds the wizard, e.g. when opened from a grid click on a
// specific staff member and day.
type Options struct {
	Service *schedule.Service
	Staff   *schedule.Staff
	Date    *time.Time
}

// Snapshot is an immutable view of the draft for rendering.
type Snapshot struct {
	Step         Step
	Service      *schedule.Service
	Staff        *schedule.Staff // nil with StaffChosen means "any available"
	StaffChosen  bool
	Date         *time.Time
	Slot         *schedule.Slot
	Client       *schedule.Client
	Notes        string
	Slots        []schedule.Slot
	LoadingSlots bool
	Err          error
	Closed       bool
}

type Wizard struct {
	avail   AvailabilitySource
	creator AppointmentCreator
	locks   LockManager
	logger  *logging.Logger

	mu          sync.Mutex
	step        Step
	service     *schedule.Service
	staff       *schedule.Staff
	staffChosen bool
	date        *time.Time
	slot        *schedule.Slot
	client      *schedule.Client
	notes       string
	slots       []schedule.Slot
	loading     bool
	lastErr     error
	availToken  uint64
	closed      bool

	observers []func()
}

// New opens a wizard. Pre-seeded selections skip the corresponding
// steps: a seeded service starts at staff, a seeded service and staff
// start at time.
func New(avail AvailabilitySource, creator AppointmentCreator, locks LockManager, logger *logging.Logger, opts Options) *Wizard {
	if logger == nil {
		logger = logging.Default()
	}
	w := &Wizard{
		avail:   avail,
		creator: creator,
		locks:   locks,
		logger:  logger.Component("wizard"),
		step:    StepService,
	}
	if opts.Service != nil {
		svc := *opts.Service
		w.service = &svc
		w.step = StepStaff
	}
	if opts.Staff != nil && w.service != nil {
		st := *opts.Staff
		w.staff = &st
		w.staffChosen = true
		w.step = StepTime
	}
	if opts.Date != nil {
		d := *opts.Date
		w.date = &d
	}
	return w
}

// OnChange registers a callback invoked after every state change.
func (w *Wizard) OnChange(fn func()) {
	w.mu.Lock()
	w.observers = append(w.observers, fn)
	w.mu.Unlock()
}

// Snapshot returns the current draft state.
func (w *Wizard) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		Step:         w.step,
		Service:      w.service,
		Staff:        w.staff,
		StaffChosen:  w.staffChosen,
		Date:         w.date,
		Slot:         w.slot,
		Client:       w.client,
		Notes:        w.notes,
		Slots:        append([]schedule.Slot(nil), w.slots...),
		LoadingSlots: w.loading,
		Err:          w.lastErr,
		Closed:       w.closed,
	}
}

// SelectService clears all downstream selections and advances to the
// staff step.
func (w *Wizard) SelectService(ctx context.Context, svc schedule.Service) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.service = &svc
	w.staff = nil
	w.staffChosen = false
	w.slot = nil
	w.slots = nil
	w.lastErr = nil
	w.step = StepStaff
	w.maybeLoadSlotsLocked(ctx)
	w.mu.Unlock()
	w.notify()
}

// SelectStaff records the staff choice (nil means "any available"),
// clears the slot selection, and advances to the time step.
func (w *Wizard) SelectStaff(ctx context.Context, staff *schedule.Staff) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.staff = staff
	w.staffChosen = true
	w.slot = nil
	w.lastErr = nil
	w.step = StepTime
	w.maybeLoadSlotsLocked(ctx)
	w.mu.Unlock()
	w.notify()
}

// SelectDate clears the slot selection and re-queries availability.
func (w *Wizard) SelectDate(ctx context.Context, date time.Time) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	d := date
	w.date = &d
	w.slot = nil
	w.lastErr = nil
	w.maybeLoadSlotsLocked(ctx)
	w.mu.Unlock()
	w.notify()
}

// SelectSlot records the chosen slot, softly reserves it, and advances
// to the client step. Lock acquisition failure is non-fatal.
func (w *Wizard) SelectSlot(ctx context.Context, slot schedule.Slot) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.slot = &slot
	w.lastErr = nil
	w.step = StepClient
	w.mu.Unlock()

	if w.locks != nil {
		w.locks.Acquire(ctx, slot.StaffID, slot.StartTime, slot.EndTime)
	}
	w.notify()
}

// SelectClient records the client and advances to the confirm step.
func (w *Wizard) SelectClient(client schedule.Client) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.client = &client
	w.lastErr = nil
	w.step = StepConfirm
	w.mu.Unlock()
	w.notify()
}

// SetNotes updates the free-text notes on the draft.
func (w *Wizard) SetNotes(notes string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.notes = notes
	w.mu.Unlock()
	w.notify()
}

// Next moves forward one step without altering selections.
func (w *Wizard) Next() {
	w.stepBy(1)
}

// Back moves backward one step. Later selections are preserved so the
// operator can correct one choice without redoing the rest.
func (w *Wizard) Back() {
	w.stepBy(-1)
}

func (w *Wizard) stepBy(delta int) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	next := w.step + Step(delta)
	if next < StepService {
		next = StepService
	}
	if next > StepConfirm {
		next = StepConfirm
	}
	w.step = next
	w.mu.Unlock()
	w.notify()
}

// CreateBooking validates the draft and submits the create command.
// Missing selections fail fast with a *ValidationError and no network
// call. On failure the draft is left intact so the operator can retry
// or cancel; on success the held lock is released and the created
// appointment returned. The caller closes the wizard.
func (w *Wizard) CreateBooking(ctx context.Context) (*schedule.Appointment, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, validationErrorf("wizard is closed")
	}
	var verr *ValidationError
	switch {
	case w.service == nil:
		verr = validationErrorf("service is required")
	case w.slot == nil:
		verr = validationErrorf("time slot is required")
	case w.client == nil:
		verr = validationErrorf("client is required")
	}
	if verr != nil {
		w.lastErr = verr
		w.mu.Unlock()
		w.notify()
		return nil, verr
	}
	clientID := w.client.ID
	staffID := w.slot.StaffID
	serviceID := w.service.ID
	start := w.slot.StartTime
	notes := w.notes
	w.mu.Unlock()

	appt, err := w.creator.CreateAppointment(ctx, clientID, staffID, serviceID, start, notes)

	w.mu.Lock()
	if err != nil {
		w.lastErr = err
		w.mu.Unlock()
		w.notify()
		return nil, err
	}
	w.lastErr = nil
	w.mu.Unlock()

	if w.locks != nil {
		w.locks.Release(ctx)
	}
	w.notify()
	return appt, nil
}

// Close discards all draft state unconditionally and releases any held
// lock. In-flight availability responses are ignored from here on.
func (w *Wizard) Close(ctx context.Context) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	w.availToken++ // orphan any in-flight load
	w.service = nil
	w.staff = nil
	w.staffChosen = false
	w.date = nil
	w.slot = nil
	w.client = nil
	w.notes = ""
	w.slots = nil
	w.loading = false
	w.lastErr = nil
	w.mu.Unlock()

	if w.locks != nil {
		w.locks.Release(ctx)
	}
	w.notify()
}

// maybeLoadSlotsLocked starts an availability query when both service
// and date are set. Only the response matching the latest request token
// is ever applied; superseded responses are discarded.
func (w *Wizard) maybeLoadSlotsLocked(ctx context.Context) {
	if w.service == nil || w.date == nil {
		return
	}
	w.availToken++
	token := w.availToken
	w.loading = true
	w.slots = nil

	date := *w.date
	serviceID := w.service.ID
	var staffID *uuid.UUID
	if w.staff != nil {
		id := w.staff.ID
		staffID = &id
	}

	go func() {
		slots, err := w.avail.Query(ctx, date, serviceID, staffID)

		w.mu.Lock()
		if token != w.availToken {
			w.mu.Unlock()
			return
		}
		w.loading = false
		if err != nil {
			w.lastErr = err
			w.logger.Warn("availability query failed", "date", date.Format("2006-01-02"), "error", err)
		} else {
			w.slots = slots
			w.lastErr = nil
		}
		w.mu.Unlock()
		w.notify()
	}()
}

func (w *Wizard) notify() {
	w.mu.Lock()
	obs := append([]func(){}, w.observers...)
	w.mu.Unlock()
	for _, fn := range obs {
		fn()
	}
}
