package middleware

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"user-crud-service/pkg/logger"
)

// tokenBucket refills at ARGV[1] tokens per second up to ARGV[2] tokens.
// The bucket state is {last_refill, tokens}; returns 1 when a token was taken.
var tokenBucket = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local bucket = redis.call('HMGET', key, 'last_refill', 'tokens')
local last_refill = tonumber(bucket[1]) or now
local tokens = tonumber(bucket[2]) or capacity

local elapsed = math.max(0, now - last_refill)
tokens = math.min(capacity, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', key, 'last_refill', tostring(now), 'tokens', tostring(tokens))
redis.call('EXPIRE', key, ttl)
return allowed
`)

// RateLimiterConfig configures the per-client token bucket.
type RateLimiterConfig struct {
	RequestsPerSecond float64
	BurstCapacity     int
}

// RateLimiter limits requests per client IP and route with a token bucket kept
// in Redis, so every replica shares one budget. Redis errors fail open.
type RateLimiter struct {
	client redis.Scripter
	cfg    RateLimiterConfig
	log    *zap.Logger
	now    func() time.Time
}

// NewRateLimiter creates a RateLimiter.
func NewRateLimiter(client redis.Scripter, cfg RateLimiterConfig, log *zap.Logger) *RateLimiter {
	return &RateLimiter{
		client: client,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

func (rl *RateLimiter) key(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = unmatchedRoute
	}
	return fmt.Sprintf("ratelimit:tb:%s:%s:%s", c.Request.Method, route, c.ClientIP())
}

// ttlSeconds is how long an idle bucket takes to refill completely; after that
// a missing key is equivalent to a full bucket.
func (rl *RateLimiter) ttlSeconds() int {
	return int(math.Ceil(float64(rl.cfg.BurstCapacity)/rl.cfg.RequestsPerSecond)) + 1
}

// Middleware returns the gin handler enforcing the limit.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		now := float64(rl.now().UnixMicro()) / 1e6

		allowed, err := tokenBucket.Run(ctx, rl.client, []string{rl.key(c)},
			rl.cfg.RequestsPerSecond,
			rl.cfg.BurstCapacity,
			strconv.FormatFloat(now, 'f', 6, 64),
			rl.ttlSeconds(),
		).Int64()
		if err != nil {
			logger.WithContext(ctx, rl.log).Warn("rate limiter redis error, allowing request",
				zap.String("client_ip", c.ClientIP()),
				zap.Error(err),
			)
			c.Next()
			return
		}

		if allowed == 0 {
			retryAfter := int(math.Ceil(1 / rl.cfg.RequestsPerSecond))
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate_limit_exceeded",
				"message": fmt.Sprintf("rate limit exceeded: %.2f requests/second (burst capacity: %d)",
					rl.cfg.RequestsPerSecond, rl.cfg.BurstCapacity),
			})
			return
		}

		c.Next()
	}
}
