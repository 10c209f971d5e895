package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Refill happens lazily on every take using the redis server clock. Tokens
// are returned as a string so fractional balances survive the Lua-to-RESP
// integer truncation.
const takeTokenScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local t = redis.call("TIME")
local now = (t[1] * 1000) + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now

local elapsed = math.max(0, now - ts)
tokens = math.min(burst, tokens + (elapsed / 1000) * rate)

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {allowed, tostring(tokens), now}
`

var (
	ErrBucketUnavailable = errors.New("token_bucket_unavailable")
	ErrBucketKeyEmpty    = errors.New("token_bucket_key_empty")
	ErrBucketPolicy      = errors.New("token_bucket_invalid_policy")
)

// TokenBucket meters one action at a fixed rate per second with a burst
// allowance. Each key owns an independent bucket.
type TokenBucket struct {
	client *redis.Client
	script *redis.Script
	rate   float64
	burst  int
	ttl    time.Duration
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// NewTokenBucket returns nil when redis is not configured; callers treat a
// nil bucket as unlimited.
func NewTokenBucket(client *redis.Client, rate float64, burst int) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{
		client: client,
		script: redis.NewScript(takeTokenScript),
		rate:   rate,
		burst:  burst,
		ttl:    bucketTTL(rate, burst),
	}
}

// Take consumes one token from key's bucket.
func (b *TokenBucket) Take(ctx context.Context, key string) (*RateLimitResult, error) {
	denied := &RateLimitResult{Allowed: false}
	if b == nil || b.client == nil {
		return denied, ErrBucketUnavailable
	}
	if key == "" {
		return denied, ErrBucketKeyEmpty
	}
	if b.rate <= 0 || b.burst <= 0 {
		return denied, fmt.Errorf("%w: rate=%v burst=%d", ErrBucketPolicy, b.rate, b.burst)
	}

	res, err := b.script.Run(ctx, b.client, []string{key}, b.rate, b.burst, b.ttl.Milliseconds()).Slice()
	if err != nil {
		return denied, fmt.Errorf("take %s: %w", key, err)
	}
	if len(res) < 3 {
		return denied, fmt.Errorf("take %s: unexpected reply %v", key, res)
	}

	allowed := asInt64(res[0]) == 1
	remaining := asFloat64(res[1])
	now := time.UnixMilli(asInt64(res[2]))

	var retryAfter time.Duration
	if !allowed {
		retryAfter = time.Duration((1 - remaining) / b.rate * float64(time.Second))
	}
	return &RateLimitResult{
		Allowed:    allowed,
		Limit:      b.burst,
		Remaining:  int(math.Floor(remaining)),
		ResetTime:  now.Add(retryAfter),
		RetryAfter: retryAfter,
	}, nil
}

// bucketTTL keeps idle buckets for twice the time a full refill takes.
func bucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(burst)/rate*2))
	return time.Duration(seconds) * time.Second
}

func asInt64(v interface{}) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	default:
		return 0
	}
}

func asFloat64(v interface{}) float64 {
	switch val := v.(type) {
	case int64:
		return float64(val)
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
