// Package availability wraps the remote availability query. It keeps
// no cache: every (date, service, staff) triple re-queries, and an
// empty result is a valid outcome, not an error.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-coordinator/internal/schedule"
)

// SlotSource is the remote availability endpoint.
type SlotSource interface {
	Availability(ctx context.Context, date time.Time, serviceID uuid.UUID, staffID *uuid.UUID) ([]schedule.Slot, error)
}

type Client struct {
	src SlotSource
}

func NewClient(src SlotSource) *Client {
	return &Client{src: src}
}

// Query fetches bookable slots for the given date and service,
// optionally restricted to one staff member. The returned slice is
// never nil.
func (c *Client) Query(ctx context.Context, date time.Time, serviceID uuid.UUID, staffID *uuid.UUID) ([]schedule.Slot, error) {
	slots, err := c.src.Availability(ctx, date, serviceID, staffID)
	if err != nil {
		return nil, fmt.Errorf("query availability: %w", err)
	}
	if slots == nil {
		slots = []schedule.Slot{}
	}
	return slots, nil
}
