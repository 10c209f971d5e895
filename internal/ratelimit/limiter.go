package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/royalty/internal/config"
)

const (
	keyExportCreator   = "royalty:export:creator:%s"
	keyWithdrawalLock  = "royalty:withdrawal:lock:%s"
	defaultLockTTL     = 30 * time.Second
	defaultExportRate  = 0.2
	defaultExportBurst = 5
)

// EarningsLimiter throttles exports and serializes withdrawal requests per
// creator. Without redis every call is allowed.
type EarningsLimiter struct {
	bucket *TokenBucket
	lock   *CreatorLock

	exportRate  float64
	exportBurst int
	lockTTL     time.Duration
}

func NewEarningsLimiter(cfg config.Config, client *redis.Client) *EarningsLimiter {
	limitCfg := cfg.RateLimit
	l := &EarningsLimiter{
		exportRate:  limitCfg.ExportRate,
		exportBurst: limitCfg.ExportBurst,
		lockTTL:     time.Duration(limitCfg.WithdrawalLockTTLSeconds) * time.Second,
	}
	if l.exportRate <= 0 {
		l.exportRate = defaultExportRate
	}
	if l.exportBurst <= 0 {
		l.exportBurst = defaultExportBurst
	}
	if l.lockTTL <= 0 {
		l.lockTTL = defaultLockTTL
	}
	l.bucket = NewTokenBucket(client, l.exportRate, l.exportBurst)
	l.lock = NewCreatorLock(client, keyWithdrawalLock, l.lockTTL)
	return l
}

func (l *EarningsLimiter) Enabled() bool {
	return l != nil && l.bucket != nil && l.lock != nil
}

func (l *EarningsLimiter) AllowExport(ctx context.Context, creatorID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Take(ctx, fmt.Sprintf(keyExportCreator, strings.TrimSpace(creatorID)))
}

func (l *EarningsLimiter) TryLockWithdrawal(ctx context.Context, creatorID string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.lock.Acquire(ctx, creatorID)
}

func (l *EarningsLimiter) ReleaseWithdrawal(ctx context.Context, creatorID, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.lock.Release(ctx, creatorID, token)
}
