package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const sweepLockKey = "feed:sweep_leader"

// renewScript extends the lock TTL only while this instance still owns it.
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end
`)

// releaseScript deletes the lock only while this instance still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end
`)

// SweepLock elects a single sweeping instance via a Redis key with a TTL.
// If the holder crashes, the key expires and another instance takes over.
// Expiry deletes are idempotent, so a brief double-hold is harmless.
type SweepLock struct {
	client     *redis.Client
	instanceID string
	ttl        time.Duration
}

// NewSweepLock creates a lock owned by instanceID. ttl must comfortably
// exceed one sweep; holders re-acquire every sweep, refreshing the TTL.
func NewSweepLock(client *redis.Client, instanceID string, ttl time.Duration) *SweepLock {
	return &SweepLock{client: client, instanceID: instanceID, ttl: ttl}
}

// TryAcquire takes or refreshes the lock. It returns true when this
// instance holds the lock after the call.
func (l *SweepLock) TryAcquire(ctx context.Context) (bool, error) {
	acquired, err := l.client.SetNX(ctx, sweepLockKey, l.instanceID, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire sweep lock: %w", err)
	}
	if acquired {
		return true, nil
	}

	renewed, err := renewScript.Run(ctx, l.client, []string{sweepLockKey}, l.instanceID, l.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to renew sweep lock: %w", err)
	}
	return renewed == 1, nil
}

// Release gives up the lock. Releasing a lock held by another instance is
// a no-op.
func (l *SweepLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{sweepLockKey}, l.instanceID).Err(); err != nil {
		return fmt.Errorf("failed to release sweep lock: %w", err)
	}
	return nil
}
