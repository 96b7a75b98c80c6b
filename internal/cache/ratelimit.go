package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
	Prefix  string
}

// RateLimiter is a fixed-window request counter shared by every API instance
type RateLimiter struct {
	client *redis.Client
	cfg    RateLimitConfig
}

func NewRateLimiter(client *redis.Client, cfg RateLimitConfig) *RateLimiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "ratelimit"
	}
	return &RateLimiter{client: client, cfg: cfg}
}

// Decision is the outcome of one Allow call
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// windowScript increments the counter and makes sure it carries a TTL.
// A counter left without one (a crash between writes, a manual SET) gets
// the window re-applied instead of blocking the key forever.
var windowScript = redis.NewScript(`
	local key = KEYS[1]
	local window_ms = tonumber(ARGV[1])

	local count = redis.call('INCR', key)
	if count == 1 or redis.call('PTTL', key) < 0 then
		redis.call('PEXPIRE', key, window_ms)
	end

	return { count, redis.call('PTTL', key) }
`)

// Allow counts one request for key. Without a client every request is allowed.
func (l *RateLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l == nil || l.client == nil || !l.cfg.Enabled || l.cfg.Limit <= 0 {
		return Decision{Allowed: true}, nil
	}

	fullKey := l.cfg.Prefix + ":" + key

	vals, err := windowScript.Run(ctx, l.client, []string{fullKey}, l.cfg.Window.Milliseconds()).Int64Slice()
	if err != nil {
		return Decision{Allowed: true}, err
	}
	if len(vals) != 2 {
		return Decision{Allowed: true}, fmt.Errorf("unexpected rate limit script result %v", vals)
	}
	count, ttl := vals[0], time.Duration(vals[1])*time.Millisecond

	d := Decision{
		Allowed: count <= int64(l.cfg.Limit),
		Limit:   l.cfg.Limit,
	}
	if remaining := int64(l.cfg.Limit) - count; remaining > 0 {
		d.Remaining = int(remaining)
	}
	if !d.Allowed {
		if ttl <= 0 {
			ttl = l.cfg.Window
		}
		d.RetryAfter = ttl
	}
	return d, nil
}
