// Package cache provides best-effort cache invalidation for derived
// read models such as the reputation leaderboard.
package cache

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

// DefaultLeaderboardKey is the cached leaderboard entry cleared after a
// reputation recompute.
const DefaultLeaderboardKey = "leaderboard:top20"

// Invalidator removes a cached entry. Failures are expected to be
// non-fatal for callers; a stale cache self-heals on the next cycle.
type Invalidator interface {
	Invalidate(ctx context.Context, key string) error
}

// RedisInvalidator invalidates cache entries in Redis.
type RedisInvalidator struct {
	client *redis.Client
}

// NewRedisInvalidator creates a new Redis-backed invalidator.
func NewRedisInvalidator(client *redis.Client) *RedisInvalidator {
	return &RedisInvalidator{client: client}
}

// Invalidate deletes the key. A missing key is not an error.
func (r *RedisInvalidator) Invalidate(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// NoopInvalidator ignores all invalidations. Used when no cache is
// configured.
type NoopInvalidator struct{}

// Invalidate does nothing.
func (NoopInvalidator) Invalidate(ctx context.Context, key string) error {
	return nil
}

// RecordingInvalidator records invalidated keys for tests and can be
// configured to fail.
type RecordingInvalidator struct {
	mu   sync.Mutex
	keys []string
	err  error
}

// NewRecordingInvalidator creates a new recording invalidator.
func NewRecordingInvalidator() *RecordingInvalidator {
	return &RecordingInvalidator{}
}

// FailWith makes subsequent invalidations return err.
func (r *RecordingInvalidator) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Invalidate records the key, or fails if configured to.
func (r *RecordingInvalidator) Invalidate(ctx context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.keys = append(r.keys, key)
	return nil
}

// Keys returns a copy of the recorded keys.
func (r *RecordingInvalidator) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, len(r.keys))
	copy(keys, r.keys)
	return keys
}
