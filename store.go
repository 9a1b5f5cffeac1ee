package redislock

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lua script for atomic release: delete the key only if its value matches
// the caller's token. Running this server-side is what keeps the
// check-then-delete from racing with a concurrent acquisition; doing it as
// two round trips from the client would release a lock the caller no longer
// owns.
var delIfEqualScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// Store is the narrow view of the key-value store the lock protocol needs:
// an atomic not-exists conditional write with TTL, and an ownership-checked
// delete. Both operations are evaluated atomically on the server.
type Store interface {
	// SetIfAbsent writes value under key with the given TTL only if key does
	// not currently exist. Returns true if the write happened.
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	// DelIfEqual deletes key only if its stored value equals value.
	// Returns true if the key was deleted.
	DelIfEqual(ctx context.Context, key, value string) (bool, error)
}

// redisStore adapts a go-redis client to the Store interface. One instance
// exists per underlying client; the Registry handles deduplication.
//
// The release script handle is shared across all adapters: go-redis invokes
// it by SHA1 and falls back to EVAL once per server on a cache miss, so the
// script is registered at most once per connection without any I/O at
// construction time.
type redisStore struct {
	client  *redis.Client
	release *redis.Script
}

func newRedisStore(client *redis.Client) *redisStore {
	return &redisStore{client: client, release: delIfEqualScript}
}

// SetIfAbsent issues SET key value PX ttl NX.
func (s *redisStore) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return s.client.SetNX(ctx, key, value, ttl).Result()
}

// DelIfEqual runs the delifequal script. The script reports 1 when it
// deleted the key and 0 when the stored value belonged to someone else.
func (s *redisStore) DelIfEqual(ctx context.Context, key, value string) (bool, error) {
	result, err := s.release.Run(ctx, s.client, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return result == 1, nil
}
