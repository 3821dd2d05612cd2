package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "storeline:rl:"

// The bucket lives in one hash per key. Tokens are returned as a string so
// the fractional part survives the Lua to Redis integer conversion.
var takeToken = redis.NewScript(`
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = clock[1] * 1000 + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1])
local ts = tonumber(state[2])

if tokens == nil then
  tokens = burst
else
  local elapsed = math.max(0, now - ts)
  tokens = math.min(burst, tokens + (elapsed / 1000) * rate)
end

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(tokens), now}
`)

var (
	errBucketNotConfigured = errors.New("ratelimit: token bucket not configured")
	errBucketArgs          = errors.New("ratelimit: key, rate and burst are required")
	errBucketReply         = errors.New("ratelimit: unexpected script reply")
)

// TokenBucket is a Redis-backed token bucket shared by every API replica.
type TokenBucket struct {
	client redis.Scripter
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

func NewTokenBucket(client redis.Scripter) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{client: client}
}

// Allow takes one token from the bucket at key, refilled at rate tokens per
// second up to burst.
func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	if t == nil || t.client == nil {
		return &RateLimitResult{}, errBucketNotConfigured
	}
	if key == "" || rate <= 0 || burst <= 0 {
		return &RateLimitResult{}, errBucketArgs
	}

	ttl := defaultBucketTTL(rate, burst)
	reply, err := takeToken.Run(ctx, t.client, []string{keyPrefix + key}, rate, burst, ttl.Milliseconds()).Slice()
	if err != nil {
		return &RateLimitResult{}, err
	}
	return parseBucketReply(reply, rate, burst)
}

func parseBucketReply(reply []any, rate float64, burst int) (*RateLimitResult, error) {
	if len(reply) != 3 {
		return &RateLimitResult{}, errBucketReply
	}
	allowed, ok := reply[0].(int64)
	if !ok {
		return &RateLimitResult{}, errBucketReply
	}
	raw, ok := reply[1].(string)
	if !ok {
		return &RateLimitResult{}, errBucketReply
	}
	remaining, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return &RateLimitResult{}, errBucketReply
	}
	now, ok := reply[2].(int64)
	if !ok {
		return &RateLimitResult{}, errBucketReply
	}

	res := &RateLimitResult{
		Allowed:   allowed == 1,
		Limit:     burst,
		Remaining: int(remaining),
		ResetTime: time.UnixMilli(now),
	}
	if !res.Allowed {
		res.RetryAfter = time.Duration((1 - remaining) / rate * float64(time.Second))
		res.ResetTime = res.ResetTime.Add(res.RetryAfter)
	}
	return res, nil
}

// defaultBucketTTL keeps an idle bucket for twice the time it takes to refill.
func defaultBucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(burst)/rate*2))
	return time.Duration(seconds) * time.Second
}
