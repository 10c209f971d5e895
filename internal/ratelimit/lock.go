package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// Compare-and-delete so a lease that expired and was re-acquired by another
// request is never released by the previous holder.
const releaseLeaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

var (
	ErrLockUnavailable = errors.New("creator_lock_unavailable")
	ErrEmptyCreator    = errors.New("creator_lock_empty_creator")
)

// CreatorLock hands out short-lived per-creator leases in redis.
type CreatorLock struct {
	client  *redis.Client
	release *redis.Script
	keyFmt  string
	ttl     time.Duration
}

func NewCreatorLock(client *redis.Client, keyFmt string, ttl time.Duration) *CreatorLock {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &CreatorLock{
		client:  client,
		release: redis.NewScript(releaseLeaseScript),
		keyFmt:  keyFmt,
		ttl:     ttl,
	}
}

func (l *CreatorLock) key(creatorID string) (string, error) {
	creatorID = strings.TrimSpace(creatorID)
	if creatorID == "" {
		return "", ErrEmptyCreator
	}
	return fmt.Sprintf(l.keyFmt, creatorID), nil
}

// Acquire returns the lease token and whether the lease was granted.
func (l *CreatorLock) Acquire(ctx context.Context, creatorID string) (string, bool, error) {
	if l == nil || l.client == nil {
		return "", false, ErrLockUnavailable
	}
	key, err := l.key(creatorID)
	if err != nil {
		return "", false, err
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire %s: %w", key, err)
	}
	return token, ok, nil
}

func (l *CreatorLock) Release(ctx context.Context, creatorID, token string) error {
	if l == nil || l.client == nil || token == "" {
		return nil
	}
	key, err := l.key(creatorID)
	if err != nil {
		return err
	}
	return l.release.Run(ctx, l.client, []string{key}, token).Err()
}
