package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/gridsign/internal/config"
)

const keySigningLock = "esign:signing:lock:%s"

// SigningGuard holds a short-lived lock per contract while an envelope is
// being created, so concurrent starts do not create duplicate envelopes.
// With rate limiting disabled every lock attempt succeeds and the database
// guard alone decides.
type SigningGuard struct {
	enabled bool

	locker *Locker
	ttl    time.Duration
}

func NewSigningGuard(cfg config.Config, client *redis.Client) *SigningGuard {
	if !cfg.RateLimit.Enabled || client == nil {
		return &SigningGuard{}
	}
	ttl := time.Duration(cfg.ESign.SigningLockTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SigningGuard{
		enabled: true,
		locker:  NewLocker(client),
		ttl:     ttl,
	}
}

func (g *SigningGuard) Enabled() bool {
	return g != nil && g.enabled
}

func (g *SigningGuard) TryLockContract(ctx context.Context, contractID string) (string, bool, error) {
	if !g.Enabled() {
		return "", true, nil
	}
	return g.locker.TryLock(ctx, signingLockKey(contractID), g.ttl)
}

func (g *SigningGuard) ReleaseContract(ctx context.Context, contractID, token string) error {
	if !g.Enabled() {
		return nil
	}
	return g.locker.Release(ctx, signingLockKey(contractID), token)
}

func signingLockKey(contractID string) string {
	return fmt.Sprintf(keySigningLock, strings.TrimSpace(contractID))
}
