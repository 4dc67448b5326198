package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces rate-limit keys in the shared store.
const DefaultKeyPrefix = "rate_limit:"

// reserveScript runs the whole admission sequence server-side so that
// purge, count, insert, and expiry refresh are one atomic unit per key:
// concurrent checks for the same identity serialize inside Redis and
// can never both observe a pre-quota count.
//
// KEYS[1] = rate-limit key
// ARGV[1] = window start (unix milliseconds, exclusive cutoff)
// ARGV[2] = limit
// ARGV[3] = now (unix milliseconds, member score)
// ARGV[4] = member value (unique per admission)
// ARGV[5] = key TTL (milliseconds)
//
// Returns {allowed(0|1), count, retryAfterMillis}.
var reserveScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, ARGV[1])
local count = redis.call('ZCARD', KEYS[1])
if count >= tonumber(ARGV[2]) then
  local ttl = redis.call('PTTL', KEYS[1])
  if ttl < 0 then
    ttl = tonumber(ARGV[5])
  end
  return {0, count, ttl}
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[5])
return {1, count + 1, 0}
`)

// RedisStore is a Store backed by Redis sorted sets, shared by all
// service instances. One timestamped member per admitted call lives
// under <prefix><identity>; the whole key expires with the window so
// idle identities cost nothing.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed store. An empty prefix falls
// back to DefaultKeyPrefix.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// Reserve implements Store via the atomic server-side script.
func (s *RedisStore) Reserve(ctx context.Context, key string, now, cutoff time.Time, limit int, window time.Duration) (bool, int, time.Duration, error) {
	nowMillis := now.UnixMilli()
	member := fmt.Sprintf("%d-%s", now.UnixNano(), key)

	res, err := reserveScript.Run(ctx, s.client,
		[]string{s.prefix + key},
		cutoff.UnixMilli(),
		limit,
		nowMillis,
		member,
		window.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, 0, 0, fmt.Errorf("redis reserve failed: %w", err)
	}
	if len(res) != 3 {
		return false, 0, 0, fmt.Errorf("redis reserve returned %d values, want 3", len(res))
	}

	allowed := res[0] == 1
	count := int(res[1])
	retryAfter := time.Duration(res[2]) * time.Millisecond
	return allowed, count, retryAfter, nil
}

// Cleanup is a no-op: Redis expires rate-limit keys natively and the
// reserve script trims stale members on every check.
func (s *RedisStore) Cleanup(context.Context, time.Time) error {
	return nil
}

// KeyCount returns the number of live rate-limit keys. It scans the
// prefix rather than using KEYS, so it stays safe on shared instances.
func (s *RedisStore) KeyCount(ctx context.Context) (int, error) {
	var count int
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("redis key scan failed: %w", err)
	}
	return count, nil
}
