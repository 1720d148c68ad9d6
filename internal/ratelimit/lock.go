package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

var (
	ErrLockNotConfigured = errors.New("lock client not configured")
	ErrLockKeyEmpty      = errors.New("lock key is empty")
	ErrLockTTLInvalid    = errors.New("lock ttl must be positive")
	// ErrLockLost means the lock expired or changed owner before release.
	ErrLockLost = errors.New("lock lost before release")
)

// compare-and-delete so a holder never frees a lock it no longer owns
const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// Locker is a single-key redis lock with an owner token.
type Locker struct {
	client *redis.Client
	script *redis.Script
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client, script: redis.NewScript(lockReleaseScript)}
}

// TryLock returns the owner token and true when the key was free.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	switch {
	case l == nil || l.client == nil:
		return "", false, ErrLockNotConfigured
	case key == "":
		return "", false, ErrLockKeyEmpty
	case ttl <= 0:
		return "", false, ErrLockTTLInvalid
	}

	token := uuid.NewString()
	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !acquired {
		return "", false, nil
	}
	return token, true, nil
}

func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	deleted, err := l.script.Run(ctx, l.client, []string{key}, token).Int64()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrLockLost
	}
	return nil
}
