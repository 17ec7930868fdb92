package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	casStatusMissing  int64 = 0
	casStatusMismatch int64 = 1
	casStatusSwapped  int64 = 2
)

// KEYS[1] slot key; ARGV[1] expected; ARGV[2] next; ARGV[3] ttl in ms.
const compareAndSwapScript = `
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  return 1
end
local ttl = tonumber(ARGV[3])
if ttl and ttl > 0 then
  redis.call("SET", KEYS[1], ARGV[2], "PX", ttl)
else
  redis.call("SET", KEYS[1], ARGV[2])
end
return 2
`

var compareAndSwapLua = redis.NewScript(compareAndSwapScript)

// RedisStore keeps the refresh slot at "<prefix>:<userID>". The key expires
// with the refresh token, so an expired slot reads as empty.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a store under prefix. A zero ttl keeps keys until Clear.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "rt"
	}
	return &RedisStore{redis: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(userID string) string {
	return s.prefix + ":" + userID
}

func (s *RedisStore) Replace(ctx context.Context, userID, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	if err := s.redis.Set(ctx, s.key(userID), token, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, userID string) error {
	if err := s.redis.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Current(ctx context.Context, userID string) (string, bool, error) {
	token, err := s.redis.Get(ctx, s.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return token, true, nil
}

// CompareAndSwap atomically replaces expected with next and refreshes the TTL.
func (s *RedisStore) CompareAndSwap(ctx context.Context, userID, expected, next string) (bool, error) {
	if next == "" {
		return false, ErrEmptyToken
	}
	status, err := compareAndSwapLua.Run(ctx, s.redis,
		[]string{s.key(userID)},
		expected, next, s.ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	switch status {
	case casStatusSwapped:
		return true, nil
	case casStatusMissing, casStatusMismatch:
		return false, nil
	default:
		return false, fmt.Errorf("%w: unexpected cas status %d", ErrRedisUnavailable, status)
	}
}
