package http

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/config"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

var tokenBucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])

    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    if interval_ms > 0 and refill_tokens > 0 then
        local elapsed = math.max(0, now_ms - last_refill)
        local intervals = math.floor(elapsed / interval_ms)
        if intervals > 0 then
            tokens = math.min(capacity, tokens + (intervals * refill_tokens))
            last_refill = last_refill + (intervals * interval_ms)
        end
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
    end

    redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

// NewRateLimiter returns a per-IP, per-route token bucket backed by Redis.
// Redis failures let the request through.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client, logger *zap.Logger) fiber.Handler {
	if !cfg.Enabled || rdb == nil || cfg.Capacity <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}

	return func(c *fiber.Ctx) error {
		key := strings.Join([]string{cfg.Prefix, c.IP(), c.Method(), c.Path()}, ":")
		args := []interface{}{
			time.Now().UnixMilli(),
			cfg.Capacity,
			cfg.RefillTokens,
			cfg.RefillInterval.Milliseconds(),
			int64(cfg.TTL / time.Second),
		}

		vals, err := tokenBucketScript.Run(c.UserContext(), rdb, []string{key}, args...).Int64Slice()
		if err != nil || len(vals) != 3 {
			logger.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(vals[1], 10))

		if vals[0] != 1 {
			secs := int(math.Ceil(float64(vals[2]) / 1000.0))
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(secs))
			return apperrors.NewTooManyRequests("too many requests, try again later", map[string]any{"retry_after": secs})
		}
		return c.Next()
	}
}
