package stub

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func newTestLockStore(t *testing.T, ttl time.Duration) (*LockStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLockStore(client, ttl), mr
}

func TestAcquireThenConflictThenRelease(t *testing.T) {
	store, _ := newTestLockStore(t, 2*time.Minute)
	ctx := context.Background()

	staffID := uuid.New()
	start := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)

	lockID, expiresAt, err := store.Acquire(ctx, staffID, start, end)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if lockID == uuid.Nil || expiresAt.Before(time.Now()) {
		t.Fatalf("lock = (%s, %s)", lockID, expiresAt)
	}

	// Second operator contends for the same pair.
	if _, _, err := store.Acquire(ctx, staffID, start, end); !errors.Is(err, ErrIntervalLocked) {
		t.Fatalf("error = %v, want ErrIntervalLocked", err)
	}

	// A different interval on the same staff is independent.
	if _, _, err := store.Acquire(ctx, staffID, end, end.Add(45*time.Minute)); err != nil {
		t.Fatalf("adjacent interval blocked: %v", err)
	}

	if err := store.Release(ctx, lockID); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if _, _, err := store.Acquire(ctx, staffID, start, end); err != nil {
		t.Fatalf("released interval still locked: %v", err)
	}
}

func TestReleaseUnknownLock(t *testing.T) {
	store, _ := newTestLockStore(t, 2*time.Minute)

	if err := store.Release(context.Background(), uuid.New()); !errors.Is(err, ErrLockNotFound) {
		t.Fatalf("error = %v, want ErrLockNotFound", err)
	}
}

func TestLockExpiresAfterTTL(t *testing.T) {
	store, mr := newTestLockStore(t, time.Minute)
	ctx := context.Background()

	staffID := uuid.New()
	start := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)

	lockID, _, err := store.Acquire(ctx, staffID, start, end)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	mr.FastForward(time.Minute + time.Second)

	// The pair is free again and the old id no longer resolves.
	if _, _, err := store.Acquire(ctx, staffID, start, end); err != nil {
		t.Fatalf("expired interval still locked: %v", err)
	}
	if err := store.Release(ctx, lockID); !errors.Is(err, ErrLockNotFound) {
		t.Fatalf("error = %v, want ErrLockNotFound", err)
	}
}

func TestReleaseNeverDeletesSuccessorLock(t *testing.T) {
	store, mr := newTestLockStore(t, time.Minute)
	ctx := context.Background()

	staffID := uuid.New()
	start := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)
	end := start.Add(45 * time.Minute)

	firstID, _, err := store.Acquire(ctx, staffID, start, end)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}

	// First lock expires but its holder still remembers the id. Keep the
	// id mapping alive artificially to simulate the race where only the
	// interval key lapsed and was re-acquired.
	mr.FastForward(time.Minute + time.Second)
	mr.Set(idKey(firstID), intervalKey(staffID, start, end))

	if _, _, err := store.Acquire(ctx, staffID, start, end); err != nil {
		t.Fatalf("re-acquire after expiry: %v", err)
	}

	// The stale holder releases; the compare-and-delete script must not
	// touch the successor's lock.
	_ = store.Release(ctx, firstID)

	if _, _, err := store.Acquire(ctx, staffID, start, end); !errors.Is(err, ErrIntervalLocked) {
		t.Fatalf("stale release freed the successor's lock: %v", err)
	}
}
