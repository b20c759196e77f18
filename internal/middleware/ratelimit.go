package middleware

import (
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/prisoner-profile-details/internal/config"
)

// tokenBucketScript refills and takes one token atomically.
// KEYS[1] bucket key; ARGV now_ms, capacity, refill_tokens, interval_ms, ttl_s.
// Returns {allowed, remaining, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
local now, cap, refill, interval, ttl = tonumber(ARGV[1]), tonumber(ARGV[2]), tonumber(ARGV[3]), tonumber(ARGV[4]), tonumber(ARGV[5])
local s = redis.call('HMGET', KEYS[1], 'tokens', 'ts')
local tokens, ts = tonumber(s[1]), tonumber(s[2])
if tokens == nil or ts == nil then tokens, ts = cap, now end
if interval > 0 and refill > 0 then
  local n = math.floor(math.max(0, now - ts) / interval)
  if n > 0 then
    tokens = math.min(cap, tokens + n * refill)
    ts = ts + n * interval
  end
end
local allowed, retry = 0, 0
if tokens > 0 then
  allowed, tokens = 1, tokens - 1
else
  retry = math.max(0, interval - (now - ts))
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'ts', ts)
redis.call('EXPIRE', KEYS[1], ttl)
return {allowed, tokens, retry}
`)

// NewTokenBucket limits callers with a Redis token bucket.  It is a
// pass-through when disabled or when rdb is nil, and fails open on Redis errors.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, logger *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    logger = logger.Named("ratelimit")
    ttlSeconds := int64(cfg.TTL / time.Second)
    if ttlSeconds < 1 {
        ttlSeconds = 1
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg, c)
            res, err := tokenBucketScript.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens, cfg.RefillInterval.Milliseconds(), ttlSeconds,
            ).Int64Slice()
            if err != nil || len(res) != 3 {
                logger.Warn("rate limit check skipped", zap.String("key", key), zap.Error(err))
                return next(c)
            }
            allowed, remaining, retryMs := res[0] == 1, res[1], res[2]

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if allowed {
                return next(c)
            }

            secs := int(math.Ceil(float64(retryMs) / 1000.0))
            h.Set("Retry-After", strconv.Itoa(secs))
            logger.Debug("rate limited", zap.String("key", key), zap.Int64("retry_ms", retryMs))
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too_many_requests",
                "retry_after": secs,
            })
        }
    }
}

// rateKey builds the bucket key.  Strategies: "ip", "user", "route",
// "user_route" (default) and "ip_user_route".
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
    uid, _ := CallerID(c)
    route := c.Request().Method + " " + c.Path()
    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", c.RealIP())
    case "user":
        parts = append(parts, "user", uid)
    case "route":
        parts = append(parts, "route", route)
    case "ip_user_route":
        parts = append(parts, "ip", c.RealIP(), "user", uid, "route", route)
    default:
        parts = append(parts, "user", uid, "route", route)
    }
    return strings.Join(parts, ":")
}
