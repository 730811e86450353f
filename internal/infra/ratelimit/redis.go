package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and consumes atomically.
// KEYS[1] bucket key; ARGV rate/sec, capacity, now (seconds).
// Returns {allowed, tokens}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local state = redis.call("HMGET", key, "tokens", "last_refill")
local tokens = tonumber(state[1])
local last_refill = tonumber(state[2])

if not tokens or not last_refill then
    tokens = capacity
    last_refill = now
end

local elapsed = now - last_refill
if elapsed > 0 then
    tokens = math.min(capacity, tokens + elapsed * rate)
    last_refill = now
end

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "last_refill", last_refill)
redis.call("EXPIRE", key, 600)

return {allowed, tostring(tokens)}
`)

// Redis shares buckets across instances.
type Redis struct {
	client *redis.Client
	policy Policy
	now    func() time.Time
}

// NewRedis creates a limiter backed by client.
func NewRedis(client *redis.Client, policy Policy) *Redis {
	return &Redis{client: client, policy: policy.normalized(), now: time.Now}
}

// Allow consumes one token for key.
func (r *Redis) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	perSecond := float64(r.policy.PerMinute) / 60.0
	now := float64(r.now().UnixMicro()) / 1e6

	res, err := tokenBucketScript.Run(ctx, r.client, []string{"coach_limit:" + key}, perSecond, r.policy.Burst, now).Result()
	if err != nil {
		return false, 0, fmt.Errorf("redis limiter: %w", err)
	}

	values, ok := res.([]any)
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("redis limiter: unexpected reply %v", res)
	}
	if allowed, _ := values[0].(int64); allowed == 1 {
		return true, 0, nil
	}

	var tokens float64
	if s, ok := values[1].(string); ok {
		_, _ = fmt.Sscan(s, &tokens)
	}
	wait := (1 - tokens) / perSecond
	return false, time.Duration(math.Ceil(wait)) * time.Second, nil
}
