package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// Bucket parameters. A full bucket holds maxTokens and refills at refillRate
// tokens per window.
const (
	maxTokens  = 100
	refillRate = 100
	windowMs   = 60_000
)

// Result reports the outcome of a bucket operation.
type Result struct {
	Allowed   bool
	Remaining int
	// ResetAt is lastRefill + window, in milliseconds since epoch.
	ResetAt int64
}

// RetryAfter returns whole seconds until the bucket refills, at least 1.
func (r Result) RetryAfter(now time.Time) int {
	secs := int(math.Ceil(float64(r.ResetAt-now.UnixMilli()) / 1000))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// bucketScript refreshes and optionally consumes in one atomic step, which
// makes operations on a single identity linearizable: redis executes scripts
// for one key serially, so concurrent consumes cannot lose decrements.
var bucketScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local maxTokens = tonumber(ARGV[2])
local refillRate = tonumber(ARGV[3])
local windowMs = tonumber(ARGV[4])
local cost = tonumber(ARGV[5])

local bucket = redis.call("HMGET", key, "tokens", "lastRefill")
local tokens = tonumber(bucket[1])
local lastRefill = tonumber(bucket[2])
if tokens == nil or lastRefill == nil then
  tokens = maxTokens
  lastRefill = now
end

local elapsed = now - lastRefill
if elapsed > 0 then
  tokens = math.min(maxTokens, tokens + (elapsed / windowMs) * refillRate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  if cost > 0 then
    tokens = tokens - cost
  end
end

redis.call("HMSET", key, "tokens", tostring(tokens), "lastRefill", tostring(now))
return {allowed, tostring(math.floor(tokens)), tostring(now + windowMs)}
`)

// Limiter is a strongly consistent token-bucket limiter over redis. Buckets
// are created lazily and persist until an explicit reset.
type Limiter struct {
	rdb *redis.Client
	now func() time.Time
}

func NewLimiter(rdb *redis.Client) *Limiter {
	return &Limiter{rdb: rdb, now: time.Now}
}

func bucketKey(identity string) string {
	return "bucket:" + identity
}

// Check refreshes the bucket and reports whether a request would be allowed,
// without consuming a token.
func (l *Limiter) Check(ctx context.Context, identity string) (Result, error) {
	return l.run(ctx, identity, 0)
}

// Consume refreshes the bucket and takes one token when available.
func (l *Limiter) Consume(ctx context.Context, identity string) (Result, error) {
	return l.run(ctx, identity, 1)
}

// Reset removes the bucket entirely; the next access starts full.
func (l *Limiter) Reset(ctx context.Context, identity string) error {
	if err := l.rdb.Del(ctx, bucketKey(identity)).Err(); err != nil {
		return fmt.Errorf("resetting bucket for %s: %w", identity, err)
	}
	return nil
}

func (l *Limiter) run(ctx context.Context, identity string, cost int) (Result, error) {
	raw, err := bucketScript.Run(ctx, l.rdb,
		[]string{bucketKey(identity)},
		l.now().UnixMilli(), maxTokens, refillRate, windowMs, cost,
	).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script for %s: %w", identity, err)
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 3 {
		return Result{}, fmt.Errorf("rate limit script for %s: unexpected reply %T", identity, raw)
	}

	allowed, err := toInt64(values[0])
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script for %s: %w", identity, err)
	}
	remaining, err := toInt64(values[1])
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script for %s: %w", identity, err)
	}
	resetAt, err := toInt64(values[2])
	if err != nil {
		return Result{}, fmt.Errorf("rate limit script for %s: %w", identity, err)
	}

	res := Result{Allowed: allowed == 1, Remaining: int(remaining), ResetAt: resetAt}
	if !res.Allowed {
		res.Remaining = 0
	}
	return res, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case string:
		var parsed int64
		if _, err := fmt.Sscan(n, &parsed); err != nil {
			return 0, fmt.Errorf("unexpected script value %q", n)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("unexpected script value type %T", v)
	}
}
