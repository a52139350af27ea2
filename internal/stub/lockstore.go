package stub

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrIntervalLocked = errors.New("interval already locked")
	ErrLockNotFound   = errors.New("lock not found")
)

// LockStore issues time-boxed advisory locks on (staff, interval)
// pairs, backed by a per-interval Redis key. The lock id doubles as the
// holder token so release cannot delete a lock acquired by someone else
// after expiry.
type LockStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLockStore(client *redis.Client, ttl time.Duration) *LockStore {
	return &LockStore{client: client, ttl: ttl}
}

func intervalKey(staffID uuid.UUID, start, end time.Time) string {
	return fmt.Sprintf("lock:staff:%s:%d-%d", staffID, start.Unix(), end.Unix())
}

func idKey(lockID uuid.UUID) string {
	return "lock:id:" + lockID.String()
}

// Acquire locks a (staff, interval) pair for the configured TTL. It
// fails with ErrIntervalLocked when another operator holds the pair.
func (s *LockStore) Acquire(ctx context.Context, staffID uuid.UUID, start, end time.Time) (uuid.UUID, time.Time, error) {
	lockID := uuid.New()
	key := intervalKey(staffID, start, end)

	ok, err := s.client.SetNX(ctx, key, lockID.String(), s.ttl).Result()
	if err != nil {
		return uuid.Nil, time.Time{}, fmt.Errorf("acquire slot lock: %w", err)
	}
	if !ok {
		return uuid.Nil, time.Time{}, ErrIntervalLocked
	}

	// Reverse mapping so DELETE /locks/{id} can find the interval key.
	if err := s.client.Set(ctx, idKey(lockID), key, s.ttl).Err(); err != nil {
		_, _ = unlockScript.Run(ctx, s.client, []string{key}, lockID.String()).Result()
		return uuid.Nil, time.Time{}, fmt.Errorf("store lock id mapping: %w", err)
	}

	return lockID, time.Now().Add(s.ttl), nil
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

// Release drops a lock by id. Releasing an expired or unknown lock is
// reported as ErrLockNotFound; the interval key is only deleted when it
// still carries this lock's token.
func (s *LockStore) Release(ctx context.Context, lockID uuid.UUID) error {
	key, err := s.client.Get(ctx, idKey(lockID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrLockNotFound
		}
		return fmt.Errorf("resolve lock id: %w", err)
	}

	if _, err := unlockScript.Run(ctx, s.client, []string{key}, lockID.String()).Result(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	_ = s.client.Del(ctx, idKey(lockID)).Err()
	return nil
}
