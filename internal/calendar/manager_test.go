package calendar

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-coordinator/internal/schedule"
)

type gridCall struct {
	start, end time.Time
	staffIDs   []uuid.UUID
	release    chan *schedule.Grid
}

// fakeGridSource parks each fetch until the test releases it, so
// response arrival order can be forced. Releasing immediately makes it
// behave like a plain fake.
type fakeGridSource struct {
	mu    sync.Mutex
	calls []*gridCall
	auto  *schedule.Grid // when set, respond immediately
}

func (f *fakeGridSource) Calendar(_ context.Context, start, end time.Time, staffIDs []uuid.UUID) (*schedule.Grid, error) {
	c := &gridCall{start: start, end: end, staffIDs: staffIDs, release: make(chan *schedule.Grid, 1)}
	f.mu.Lock()
	if f.auto != nil {
		c.release <- f.auto
	}
	f.calls = append(f.calls, c)
	f.mu.Unlock()
	return <-c.release, nil
}

func (f *fakeGridSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeGridSource) call(i int) *gridCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[i]
}

type fakeRescheduler struct {
	mu       sync.Mutex
	err      error
	calls    int
	apptID   uuid.UUID
	newStart time.Time
	newStaff *uuid.UUID
}

func (f *fakeRescheduler) Reschedule(_ context.Context, appointmentID uuid.UUID, newStart time.Time, newStaffID *uuid.UUID) (*schedule.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.apptID = appointmentID
	f.newStart = newStart
	f.newStaff = newStaffID
	if f.err != nil {
		return nil, f.err
	}
	return &schedule.Appointment{ID: appointmentID, StartTime: newStart, Status: schedule.StatusConfirmed, Version: 2}, nil
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

func gridWithColumn(staffID uuid.UUID, day time.Time, working bool) *schedule.Grid {
	return &schedule.Grid{
		Staff: []schedule.Staff{{ID: staffID, Name: "Dana", Active: true}},
		Days: map[string][]schedule.StaffDay{
			schedule.DayKey(day): {{StaffID: staffID, IsWorking: working}},
		},
	}
}

func TestDayViewSpanIsAnchorDay(t *testing.T) {
	anchor := time.Date(2024, 6, 5, 14, 30, 0, 0, time.UTC) // time-of-day must be dropped
	m := NewManager(&fakeGridSource{}, &fakeRescheduler{}, anchor, nil)

	start, end := m.Span()
	want := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	if !start.Equal(want) || !end.Equal(want) {
		t.Fatalf("span = %s..%s, want %s alone", start, end, want)
	}
}

func TestWeekViewSpanIsSundayAligned(t *testing.T) {
	anchor := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC) // a Wednesday
	src := &fakeGridSource{auto: &schedule.Grid{}}
	m := NewManager(src, &fakeRescheduler{}, anchor, nil)

	m.SetView(context.Background(), ViewWeek)

	start, end := m.Span()
	if start.Weekday() != time.Sunday {
		t.Errorf("span starts on %s, want Sunday", start.Weekday())
	}
	if !start.Equal(time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("span start = %s", start)
	}
	if !end.Equal(time.Date(2024, 6, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("span end = %s", end)
	}
}

func TestStepPeriodRoundTrip(t *testing.T) {
	anchor := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	src := &fakeGridSource{auto: &schedule.Grid{}}
	m := NewManager(src, &fakeRescheduler{}, anchor, nil)
	ctx := context.Background()

	m.StepPeriod(ctx, 1)
	if got := m.Snapshot().Anchor; !got.Equal(anchor.AddDate(0, 0, 1)) {
		t.Fatalf("day step: anchor = %s", got)
	}
	m.StepPeriod(ctx, -1)
	if got := m.Snapshot().Anchor; !got.Equal(anchor) {
		t.Fatalf("round trip: anchor = %s", got)
	}

	m.SetView(ctx, ViewWeek)
	m.StepPeriod(ctx, 1)
	if got := m.Snapshot().Anchor; !got.Equal(anchor.AddDate(0, 0, 7)) {
		t.Fatalf("week step: anchor = %s", got)
	}
}

func TestStaleGridFetchDiscarded(t *testing.T) {
	anchor := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	src := &fakeGridSource{}
	m := NewManager(src, &fakeRescheduler{}, anchor, nil)
	ctx := context.Background()

	m.Refresh(ctx)
	waitFor(t, func() bool { return src.callCount() == 1 })
	m.Refresh(ctx)
	waitFor(t, func() bool { return src.callCount() == 2 })

	staffID := uuid.New()
	newer := gridWithColumn(staffID, anchor, true)
	src.call(1).release <- newer
	waitFor(t, func() bool { return m.Snapshot().Grid == newer })

	// The superseded first response resolves late; it must not win.
	src.call(0).release <- &schedule.Grid{}
	time.Sleep(20 * time.Millisecond)

	snap := m.Snapshot()
	if snap.Grid != newer {
		t.Fatalf("stale fetch overwrote newer grid")
	}
	if snap.Loading {
		t.Fatalf("loading must be cleared by the winning fetch")
	}
}

func TestHandleRemoteEventOutsideSpanIgnored(t *testing.T) {
	anchor := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	src := &fakeGridSource{auto: &schedule.Grid{}}
	m := NewManager(src, &fakeRescheduler{}, anchor, nil)
	ctx := context.Background()

	m.Refresh(ctx)
	waitFor(t, func() bool { return src.callCount() == 1 })

	m.HandleRemoteEvent(ctx, anchor.AddDate(0, 0, 3))
	time.Sleep(10 * time.Millisecond)
	if src.callCount() != 1 {
		t.Fatalf("event outside span triggered a fetch")
	}

	m.HandleRemoteEvent(ctx, anchor.Add(16*time.Hour)) // same day, later hour
	waitFor(t, func() bool { return src.callCount() == 2 })
}

func TestToggleStaffFilterForwardsIDs(t *testing.T) {
	anchor := time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)
	src := &fakeGridSource{auto: &schedule.Grid{}}
	m := NewManager(src, &fakeRescheduler{}, anchor, nil)
	ctx := context.Background()

	id := uuid.New()
	m.ToggleStaffFilter(ctx, id)
	waitFor(t, func() bool { return src.callCount() == 1 })
	if got := src.call(0).staffIDs; len(got) != 1 || got[0] != id {
		t.Fatalf("filter ids = %v, want [%s]", got, id)
	}

	// Toggling again empties the set, meaning all staff.
	m.ToggleStaffFilter(ctx, id)
	waitFor(t, func() bool { return src.callCount() == 2 })
	if got := src.call(1).staffIDs; len(got) != 0 {
		t.Fatalf("filter ids = %v, want none", got)
	}
}
