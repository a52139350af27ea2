package grid

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-coordinator/internal/schedule"
)

func TestMinuteYRoundTrip(t *testing.T) {
	l := DefaultLayout()

	for _, minute := range []int{7 * 60, 9 * 60, 9*60 + 30, 14*60 + 45, 21 * 60} {
		y := l.MinuteToY(minute)
		if got := l.YToMinute(y); got != minute {
			t.Errorf("round trip for minute %d: got %d", minute, got)
		}
	}
}

func TestYToMinuteClamps(t *testing.T) {
	l := DefaultLayout()

	if got := l.YToMinute(-50); got != l.DayStartMinute {
		t.Errorf("below column: got %d, want %d", got, l.DayStartMinute)
	}
	if got := l.YToMinute(1e6); got != l.DayEndMinute {
		t.Errorf("past column: got %d, want %d", got, l.DayEndMinute)
	}
}

func TestSnapMinute(t *testing.T) {
	l := DefaultLayout() // 15-minute granularity

	tests := []struct {
		in, want int
	}{
		{9 * 60, 9 * 60},
		{9*60 + 7, 9 * 60},
		{9*60 + 8, 9*60 + 15},
		{9*60 + 22, 9*60 + 15},
		{9*60 + 23, 9*60 + 30},
	}
	for _, tt := range tests {
		if got := l.SnapMinute(tt.in); got != tt.want {
			t.Errorf("SnapMinute(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAppointmentBox(t *testing.T) {
	l := DefaultLayout() // 60 px/hour, column starts 7:00

	appt := schedule.Appointment{
		StartTime: time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 6, 3, 10, 15, 0, 0, time.UTC),
	}
	box := l.AppointmentBox(appt)
	if box.Top != 150 {
		t.Errorf("Top = %v, want 150", box.Top)
	}
	if box.Height != 45 {
		t.Errorf("Height = %v, want 45", box.Height)
	}
}

func TestWorkingBoxes(t *testing.T) {
	l := DefaultLayout()
	boxes := l.WorkingBoxes([]schedule.Interval{{StartMinute: 540, EndMinute: 780}, {StartMinute: 840, EndMinute: 1080}})
	if len(boxes) != 2 {
		t.Fatalf("got %d boxes, want 2", len(boxes))
	}
	if boxes[0].Top != 120 || boxes[0].Height != 240 {
		t.Errorf("first box = %+v, want Top=120 Height=240", boxes[0])
	}
}

func TestCandidateStart(t *testing.T) {
	l := DefaultLayout()
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	working := schedule.StaffDay{StaffID: uuid.New(), IsWorking: true}
	// y=127 is 9:07 at 60px/hour from a 7:00 start; snaps down to 9:00.
	start, ok := l.CandidateStart(day, working, 127)
	if !ok {
		t.Fatalf("expected candidate for working column")
	}
	want := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	if !start.Equal(want) {
		t.Errorf("start = %s, want %s", start, want)
	}

	off := schedule.StaffDay{StaffID: uuid.New(), IsWorking: false}
	if _, ok := l.CandidateStart(day, off, 127); ok {
		t.Errorf("non-working column must never produce a candidate")
	}
}
