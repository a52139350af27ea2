package wizard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-coordinator/internal/schedule"
)

type stubAvail struct {
	mu    sync.Mutex
	slots []schedule.Slot
	err   error
	calls int
}

func (s *stubAvail) Query(context.Context, time.Time, uuid.UUID, *uuid.UUID) ([]schedule.Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.slots, s.err
}

type fakeCreator struct {
	mu      sync.Mutex
	calls   int
	err     error
	created *schedule.Appointment
}

func (f *fakeCreator) CreateAppointment(_ context.Context, clientID, staffID, serviceID uuid.UUID, start time.Time, notes string) (*schedule.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.created != nil {
		return f.created, nil
	}
	return &schedule.Appointment{
		ID:        uuid.New(),
		ClientID:  clientID,
		StaffID:   staffID,
		ServiceID: serviceID,
		StartTime: start,
		Status:    schedule.StatusPendingDeposit,
		Version:   1,
		Notes:     notes,
	}, nil
}

func (f *fakeCreator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLocks struct {
	mu       sync.Mutex
	fail     bool
	acquires []uuid.UUID // staff ids
	releases int
}

func (f *fakeLocks) Acquire(_ context.Context, staffID uuid.UUID, _, _ time.Time) *schedule.Lock {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires = append(f.acquires, staffID)
	if f.fail {
		return nil
	}
	return &schedule.Lock{ID: uuid.New(), ExpiresAt: time.Now().Add(2 * time.Minute)}
}

func (f *fakeLocks) Release(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releases++
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func testService() schedule.Service {
	return schedule.Service{ID: uuid.New(), Name: "Haircut", Duration: 30 * time.Minute, Buffer: 15 * time.Minute}
}

func testSlot(staffID uuid.UUID) schedule.Slot {
	start := time.Date(2024, 6, 4, 9, 0, 0, 0, time.UTC)
	return schedule.Slot{StaffID: staffID, StaffName: "Dana", StartTime: start, EndTime: start.Add(45 * time.Minute)}
}

func TestPreseededServiceStartsAtStaffStep(t *testing.T) {
	svc := testService()
	date := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	w := New(&stubAvail{}, &fakeCreator{}, nil, nil, Options{Service: &svc, Date: &date})

	snap := w.Snapshot()
	if snap.Step != StepStaff {
		t.Fatalf("step = %s, want staff", snap.Step)
	}
	if snap.Service == nil || snap.Service.ID != svc.ID {
		t.Fatalf("service not pre-seeded")
	}
	if snap.Date == nil || !snap.Date.Equal(date) {
		t.Fatalf("date not pre-seeded")
	}
}

func TestPreseededServiceAndStaffStartsAtTimeStep(t *testing.T) {
	svc := testService()
	staff := schedule.Staff{ID: uuid.New(), Name: "Dana"}

	w := New(&stubAvail{}, &fakeCreator{}, nil, nil, Options{Service: &svc, Staff: &staff})

	if step := w.Snapshot().Step; step != StepTime {
		t.Fatalf("step = %s, want time", step)
	}
}

func TestSelectServiceClearsDownstreamSelections(t *testing.T) {
	avail := &stubAvail{slots: []schedule.Slot{testSlot(uuid.New())}}
	w := New(avail, &fakeCreator{}, nil, nil, Options{})
	ctx := context.Background()

	w.SelectService(ctx, testService())
	staff := schedule.Staff{ID: uuid.New(), Name: "Dana"}
	w.SelectStaff(ctx, &staff)
	w.SelectSlot(ctx, testSlot(staff.ID))

	w.SelectService(ctx, testService())

	snap := w.Snapshot()
	if snap.Step != StepStaff {
		t.Errorf("step = %s, want staff", snap.Step)
	}
	if snap.Staff != nil || snap.StaffChosen {
		t.Errorf("staff selection must be cleared")
	}
	if snap.Slot != nil {
		t.Errorf("slot selection must be cleared")
	}
	if len(snap.Slots) != 0 {
		t.Errorf("slot cache must be cleared")
	}
}

func TestSelectStaffClearsSlotOnly(t *testing.T) {
	w := New(&stubAvail{}, &fakeCreator{}, nil, nil, Options{})
	ctx := context.Background()

	w.SelectService(ctx, testService())
	staff := schedule.Staff{ID: uuid.New()}
	w.SelectStaff(ctx, &staff)
	w.SelectSlot(ctx, testSlot(staff.ID))

	w.SelectStaff(ctx, nil) // any available

	snap := w.Snapshot()
	if snap.Step != StepTime {
		t.Errorf("step = %s, want time", snap.Step)
	}
	if snap.Slot != nil {
		t.Errorf("slot must be cleared on staff change")
	}
	if !snap.StaffChosen || snap.Staff != nil {
		t.Errorf("expected explicit any-available choice, got %+v", snap)
	}
	if snap.Service == nil {
		t.Errorf("service must survive staff change")
	}
}

func TestBackNavigationPreservesSelections(t *testing.T) {
	w := New(&stubAvail{}, &fakeCreator{}, nil, nil, Options{})
	ctx := context.Background()

	staff := schedule.Staff{ID: uuid.New()}
	w.SelectService(ctx, testService())
	w.SelectStaff(ctx, &staff)
	w.SelectSlot(ctx, testSlot(staff.ID))
	w.SelectClient(schedule.Client{ID: uuid.New(), Name: "Pat"})

	w.Back()
	w.Back()

	snap := w.Snapshot()
	if snap.Step != StepTime {
		t.Fatalf("step = %s, want time", snap.Step)
	}
	if snap.Slot == nil || snap.Client == nil {
		t.Fatalf("back navigation must not clear later selections")
	}

	w.Next()
	if step := w.Snapshot().Step; step != StepClient {
		t.Fatalf("step = %s, want client", step)
	}
}

func TestCreateBookingValidation(t *testing.T) {
	ctx := context.Background()
	staff := schedule.Staff{ID: uuid.New()}

	tests := []struct {
		name  string
		setup func(w *Wizard)
	}{
		{"missing service", func(w *Wizard) {}},
		{"missing slot", func(w *Wizard) {
			w.SelectService(ctx, testService())
		}},
		{"missing client", func(w *Wizard) {
			w.SelectService(ctx, testService())
			w.SelectStaff(ctx, &staff)
			w.SelectSlot(ctx, testSlot(staff.ID))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creator := &fakeCreator{}
			w := New(&stubAvail{}, creator, nil, nil, Options{})
			tt.setup(w)

			_, err := w.CreateBooking(ctx)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if creator.callCount() != 0 {
				t.Fatalf("validation failures must never reach the network")
			}
		})
	}
}

func TestCreateBookingSuccessReleasesLock(t *testing.T) {
	ctx := context.Background()
	locks := &fakeLocks{}
	creator := &fakeCreator{}
	w := New(&stubAvail{}, creator, locks, nil, Options{})

	staff := schedule.Staff{ID: uuid.New()}
	w.SelectService(ctx, testService())
	w.SelectStaff(ctx, &staff)
	w.SelectSlot(ctx, testSlot(staff.ID))
	w.SelectClient(schedule.Client{ID: uuid.New()})

	appt, err := w.CreateBooking(ctx)
	if err != nil {
		t.Fatalf("CreateBooking() error: %v", err)
	}
	if appt == nil || appt.StaffID != staff.ID {
		t.Fatalf("appt = %+v", appt)
	}
	if len(locks.acquires) != 1 || locks.acquires[0] != staff.ID {
		t.Fatalf("expected slot selection to acquire a lock, got %v", locks.acquires)
	}
	if locks.releases != 1 {
		t.Fatalf("releases = %d, want 1", locks.releases)
	}
}

func TestCreateBookingFailureKeepsDraft(t *testing.T) {
	ctx := context.Background()
	creator := &fakeCreator{err: errors.New("http 500")}
	w := New(&stubAvail{}, creator, nil, nil, Options{})

	staff := schedule.Staff{ID: uuid.New()}
	w.SelectService(ctx, testService())
	w.SelectStaff(ctx, &staff)
	w.SelectSlot(ctx, testSlot(staff.ID))
	w.SelectClient(schedule.Client{ID: uuid.New()})

	if _, err := w.CreateBooking(ctx); err == nil {
		t.Fatalf("expected failure")
	}

	snap := w.Snapshot()
	if snap.Slot == nil || snap.Client == nil || snap.Service == nil {
		t.Fatalf("failed booking must leave selections intact: %+v", snap)
	}
	if snap.Err == nil {
		t.Fatalf("failure must be surfaced")
	}

	// The user retries without re-entering anything.
	creator.mu.Lock()
	creator.err = nil
	creator.mu.Unlock()
	if _, err := w.CreateBooking(ctx); err != nil {
		t.Fatalf("retry failed: %v", err)
	}
}

func TestLockFailureDoesNotBlockBooking(t *testing.T) {
	ctx := context.Background()
	locks := &fakeLocks{fail: true}
	w := New(&stubAvail{}, &fakeCreator{}, locks, nil, Options{})

	staff := schedule.Staff{ID: uuid.New()}
	w.SelectService(ctx, testService())
	w.SelectStaff(ctx, &staff)
	w.SelectSlot(ctx, testSlot(staff.ID))
	w.SelectClient(schedule.Client{ID: uuid.New()})

	if _, err := w.CreateBooking(ctx); err != nil {
		t.Fatalf("booking must succeed without the advisory lock: %v", err)
	}
}

// blockingAvail parks every query until the test releases it, so
// response arrival order can be forced.
type blockingAvail struct {
	mu    sync.Mutex
	calls []*availCall
}

type availCall struct {
	date    time.Time
	release chan []schedule.Slot
}

func (b *blockingAvail) Query(_ context.Context, date time.Time, _ uuid.UUID, _ *uuid.UUID) ([]schedule.Slot, error) {
	c := &availCall{date: date, release: make(chan []schedule.Slot)}
	b.mu.Lock()
	b.calls = append(b.calls, c)
	b.mu.Unlock()
	return <-c.release, nil
}

func (b *blockingAvail) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func (b *blockingAvail) call(i int) *availCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[i]
}

func TestOnlyLatestAvailabilityResponseApplies(t *testing.T) {
	ctx := context.Background()
	avail := &blockingAvail{}
	svc := testService()
	w := New(avail, &fakeCreator{}, nil, nil, Options{Service: &svc})

	staffA := uuid.New()
	day1 := time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	w.SelectDate(ctx, day1)
	waitFor(t, func() bool { return avail.callCount() == 1 })
	w.SelectDate(ctx, day2)
	waitFor(t, func() bool { return avail.callCount() == 2 })

	// Newer request resolves first.
	newer := []schedule.Slot{{StaffID: staffA, StartTime: day2.Add(9 * time.Hour)}}
	avail.call(1).release <- newer
	waitFor(t, func() bool { return len(w.Snapshot().Slots) == 1 })

	// Stale response for day1 arrives late and must be discarded.
	avail.call(0).release <- []schedule.Slot{
		{StaffID: staffA, StartTime: day1.Add(9 * time.Hour)},
		{StaffID: staffA, StartTime: day1.Add(10 * time.Hour)},
	}
	time.Sleep(20 * time.Millisecond)

	snap := w.Snapshot()
	if len(snap.Slots) != 1 || !snap.Slots[0].StartTime.Equal(day2.Add(9*time.Hour)) {
		t.Fatalf("stale response overwrote newer state: %+v", snap.Slots)
	}
	if snap.LoadingSlots {
		t.Fatalf("loading flag must be cleared by the winning response")
	}
}

func TestCloseDiscardsDraftAndReleasesLock(t *testing.T) {
	ctx := context.Background()
	locks := &fakeLocks{}
	avail := &blockingAvail{}
	svc := testService()
	w := New(avail, &fakeCreator{}, locks, nil, Options{Service: &svc})

	staff := schedule.Staff{ID: uuid.New()}
	w.SelectStaff(ctx, &staff)
	w.SelectSlot(ctx, testSlot(staff.ID))
	w.SelectDate(ctx, time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC))
	waitFor(t, func() bool { return avail.callCount() >= 1 })

	w.Close(ctx)

	if locks.releases == 0 {
		t.Fatalf("close must release the held lock")
	}
	snap := w.Snapshot()
	if !snap.Closed || snap.Service != nil || snap.Slot != nil {
		t.Fatalf("close must discard all draft state: %+v", snap)
	}

	// An in-flight availability response lands after close and must be
	// ignored.
	avail.call(avail.callCount() - 1).release <- []schedule.Slot{testSlot(staff.ID)}
	time.Sleep(20 * time.Millisecond)
	if len(w.Snapshot().Slots) != 0 {
		t.Fatalf("response applied after close")
	}

	// Operations on a closed wizard are no-ops.
	w.SelectClient(schedule.Client{ID: uuid.New()})
	if w.Snapshot().Client != nil {
		t.Fatalf("closed wizard accepted a selection")
	}
	w.SetNotes("late note")
	if w.Snapshot().Notes != "" {
		t.Fatalf("closed wizard accepted notes")
	}
}
