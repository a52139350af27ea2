// Package slotlock holds at most one advisory slot lock per manager,
// softly reserving a (staff, interval) pair while a booking is being
// assembled. Locks reduce collision probability between concurrent
// operators; the server's conflict check at create time is still the
// final arbiter.
package slotlock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/slotwise/booking-coordinator/internal/schedule"
	"github.com/slotwise/booking-coordinator/pkg/logging"
)

// LockService is the remote lock endpoint pair the manager drives.
type LockService interface {
	AcquireLock(ctx context.Context, staffID uuid.UUID, startTime, endTime time.Time) (*schedule.Lock, error)
	ReleaseLock(ctx context.Context, lockID uuid.UUID) error
}

type Manager struct {
	svc    LockService
	logger *logging.Logger

	mu   sync.Mutex
	held *schedule.Lock
}

func NewManager(svc LockService, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Default()
	}
	return &Manager{svc: svc, logger: logger.Component("slotlock")}
}

// Acquire releases any lock this manager currently holds, then requests
// a new one. A nil return means acquisition failed; the caller may
// proceed without the advisory protection.
func (m *Manager) Acquire(ctx context.Context, staffID uuid.UUID, startTime, endTime time.Time) *schedule.Lock {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.releaseLocked(ctx)

	lock, err := m.svc.AcquireLock(ctx, staffID, startTime, endTime)
	if err != nil {
		m.logger.Warn("slot lock not acquired, booking proceeds unprotected",
			"staff_id", staffID, "start", startTime, "error", err)
		return nil
	}

	m.held = lock
	copied := *lock
	return &copied
}

// Release drops the held lock, if any. Failures are swallowed: the
// server expires locks on its own.
func (m *Manager) Release(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked(ctx)
}

// Held returns a copy of the current lock, or nil.
func (m *Manager) Held() *schedule.Lock {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held == nil {
		return nil
	}
	copied := *m.held
	return &copied
}

func (m *Manager) releaseLocked(ctx context.Context) {
	if m.held == nil {
		return
	}
	id := m.held.ID
	m.held = nil
	if err := m.svc.ReleaseLock(ctx, id); err != nil {
		m.logger.Debug("best-effort lock release failed", "lock_id", id, "error", err)
	}
}
