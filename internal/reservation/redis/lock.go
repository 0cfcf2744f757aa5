package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// bucketSize is the granularity of slot locks. Every 15-minute bucket a
// reservation window touches gets its own key, so two overlapping windows
// always contend on at least one bucket.
const bucketSize = 15 * time.Minute

// SlotLock guards the read-then-decide gap in table booking: the caller
// locks all buckets of the proposed window, runs the conflict check, writes
// the assignment and releases. The TTL is a crash backstop, not a hold.
type SlotLock struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewSlotLock(client *redis.Client, ttl time.Duration) *SlotLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SlotLock{Client: client, TTL: ttl}
}

func slotKey(tableID string, bucket time.Time) string {
	return fmt.Sprintf("table_slot:%s:%d", tableID, bucket.Unix())
}

// buckets returns the bucket boundaries covered by [start, end).
func buckets(start, end time.Time) []time.Time {
	out := []time.Time{}
	for b := start.Truncate(bucketSize); b.Before(end); b = b.Add(bucketSize) {
		out = append(out, b)
	}
	return out
}

// LockTableSlot acquires every bucket of the window for ownerID. On partial
// acquisition all previously taken buckets are released and false is
// returned.
func (l *SlotLock) LockTableSlot(ctx context.Context, tableID string, start, end time.Time, ownerID string) (bool, error) {
	locked := []time.Time{}
	for _, bucket := range buckets(start, end) {
		ok, err := l.Client.SetNX(ctx, slotKey(tableID, bucket), ownerID, l.TTL).Result()
		if err != nil {
			l.release(ctx, tableID, locked, ownerID)
			return false, err
		}
		if !ok {
			l.release(ctx, tableID, locked, ownerID)
			return false, nil
		}
		locked = append(locked, bucket)
	}
	return true, nil
}

// UnlockTableSlot releases the window's buckets. Buckets held by a different
// owner are left alone.
func (l *SlotLock) UnlockTableSlot(ctx context.Context, tableID string, start, end time.Time, ownerID string) error {
	var firstErr error
	for _, bucket := range buckets(start, end) {
		if err := l.unlockBucket(ctx, tableID, bucket, ownerID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (l *SlotLock) unlockBucket(ctx context.Context, tableID string, bucket time.Time, ownerID string) error {
	key := slotKey(tableID, bucket)
	val, err := l.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == ownerID {
		_, err := l.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

func (l *SlotLock) release(ctx context.Context, tableID string, taken []time.Time, ownerID string) {
	for _, bucket := range taken {
		_ = l.unlockBucket(ctx, tableID, bucket, ownerID)
	}
}
