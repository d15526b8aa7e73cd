package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	redisLockPrefix  = "lock:"
	redisRetryMin    = 5 * time.Millisecond
	redisRetryMax    = 100 * time.Millisecond
	DefaultLockLease = 30 * time.Second
)

// releaseScript deletes the key only if it still carries our token, so an
// expired lease taken over by another instance is never released by us.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ErrLockLost is returned by Unlock when the lease expired before release.
var ErrLockLost = errors.New("lock lease expired before release")

// RedisLocker is a lease lock shared by every instance using the same redis.
// The lease must exceed the longest critical section.
type RedisLocker struct {
	client *redis.Client
	lease  time.Duration
}

func NewRedisLocker(client *redis.Client, lease time.Duration) *RedisLocker {
	if lease <= 0 {
		lease = DefaultLockLease
	}
	return &RedisLocker{client: client, lease: lease}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, wait time.Duration) (Unlocker, error) {
	token := uuid.NewString()
	redisKey := redisLockPrefix + key
	deadline := time.Now().Add(wait)
	backoff := redisRetryMin

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.lease).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
		}
		if ok {
			return &redisUnlocker{client: l.client, key: redisKey, token: token}, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, ErrLockNotAcquired
		}
		sleep := backoff
		if sleep > remaining {
			sleep = remaining
		}
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrLockNotAcquired, ctx.Err())
		}
		if backoff *= 2; backoff > redisRetryMax {
			backoff = redisRetryMax
		}
	}
}

type redisUnlocker struct {
	client *redis.Client
	key    string
	token  string
}

func (u *redisUnlocker) Unlock(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, u.client, []string{u.key}, u.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", u.key, err)
	}
	if n == 0 {
		return ErrLockLost
	}
	return nil
}
