package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/hex"
    "encoding/json"
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/prisoner-profile-details/internal/config"
)

// cachedResponse is what NewRedisCache stores per key.
type cachedResponse struct {
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// bodyRecorder tees the response body into a bounded buffer.
type bodyRecorder struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    limit  int
    over   bool
}

func (r *bodyRecorder) WriteHeader(code int) {
    r.status = code
    r.ResponseWriter.WriteHeader(code)
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
    if r.limit > 0 && r.buf.Len()+len(b) > r.limit {
        r.over = true
    } else if !r.over {
        r.buf.Write(b)
    }
    return r.ResponseWriter.Write(b)
}

// NewRedisCache serves repeat requests for reference data from Redis.  Only
// 200 responses that fit in MaxBodyBytes are stored.  Mount it on
// reference-data routes only: profile-details reads must always see fresh
// booking state.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client, logger *zap.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    logger = logger.Named("response-cache")
    ttl := cfg.TTL
    if ttl <= 0 {
        ttl = 5 * time.Minute
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            key := responseKey(cfg, c)

            raw, err := rdb.Get(c.Request().Context(), key).Bytes()
            switch {
            case err == nil:
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(http.StatusOK, hit.ContentType, hit.Body)
                }
            case !errors.Is(err, redis.Nil):
                logger.Warn("response cache read failed", zap.String("key", key), zap.Error(err))
            }

            rec := &bodyRecorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = rec
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if rec.status != http.StatusOK || rec.over {
                return nil
            }
            payload, err := json.Marshal(cachedResponse{
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        rec.buf.Bytes(),
            })
            if err != nil {
                return nil
            }
            // the request context may already be done once the body is written
            if err := rdb.Set(context.Background(), key, payload, ttl).Err(); err != nil {
                logger.Warn("response cache write failed", zap.String("key", key), zap.Error(err))
            }
            return nil
        }
    }
}

// responseKey hashes the route (and query, for the *_query strategies)
// under cfg.Prefix.
func responseKey(cfg config.CacheConfig, c echo.Context) string {
    parts := []string{"route", c.Path()}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "route":
    case "method_route":
        parts = append([]string{"method", c.Request().Method}, parts...)
    case "method_route_query":
        parts = append([]string{"method", c.Request().Method}, append(parts, "q", c.Request().URL.RawQuery)...)
    default:
        parts = append(parts, "q", c.Request().URL.RawQuery)
    }
    sum := sha1.Sum([]byte(strings.Join(parts, ":")))
    return cfg.Prefix + ":" + hex.EncodeToString(sum[:])
}
