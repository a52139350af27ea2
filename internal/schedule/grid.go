package schedule

import (
	"time"

	"github.com/google/uuid"
)

// StaffDay is one staff member's column for one calendar day.
type StaffDay struct {
	StaffID      uuid.UUID
	IsWorking    bool
	Hours        []Interval
	Appointments []Appointment
}

// Grid is the rendered staff-by-day payload for a fetched date span,
// keyed by day in "2006-01-02" form.
type Grid struct {
	Staff []Staff
	Days  map[string][]StaffDay
}

// DayKey formats t as a Grid day key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// StaffByID returns the staff entry carried by the grid, if present.
func (g *Grid) StaffByID(id uuid.UUID) (Staff, bool) {
	for _, s := range g.Staff {
		if s.ID == id {
			return s, true
		}
	}
	return Staff{}, false
}

// ColumnFor returns the StaffDay column for a staff member on a day.
func (g *Grid) ColumnFor(id uuid.UUID, day time.Time) (StaffDay, bool) {
	for _, col := range g.Days[DayKey(day)] {
		if col.StaffID == id {
			return col, true
		}
	}
	return StaffDay{}, false
}
