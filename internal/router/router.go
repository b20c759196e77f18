package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                                     // Echo web framework
	"github.com/prometheus/client_golang/prometheus"                  // registry gatherer for /metrics
	"github.com/prometheus/client_golang/prometheus/promhttp"         // exposition handler
	"github.com/redis/go-redis/v9"                                    // shared client for rate limiting and response caching
	"go.uber.org/zap"                                                 // middleware logging

	"github.com/iliyamo/prisoner-profile-details/internal/config"     // rate limit and cache settings
	"github.com/iliyamo/prisoner-profile-details/internal/handler"    // handlers implementing the endpoints
	"github.com/iliyamo/prisoner-profile-details/internal/middleware" // JWT, role, rate limit and cache middleware
)

// Deps carries everything RegisterRoutes wires into the route table.
// Redis may be nil, in which case rate limiting and response caching are
// pass-throughs.  Logger must not be nil.
type Deps struct {
	Health      *handler.HealthHandler
	Profiles    *handler.ProfileDetailsHandler
	Reference   *handler.ReferenceHandler
	Gatherer    prometheus.Gatherer
	JWTSecret   string
	ProfileRole string
	RateLimit   config.RateLimitConfig
	Cache       config.CacheConfig
	Redis       *redis.Client
	Logger      *zap.Logger
}

// RegisterRoutes registers every route of the service on e.
//
// Public:
//   GET /healthz
//   GET /metrics
// Bearer token holding the profile role:
//   GET /prisoners/:offenderNo/profile-details
//   PUT /prisoners/:offenderNo/profile-details
//   GET /reference/profile-types   (response-cached)
func RegisterRoutes(e *echo.Echo, d Deps) {
	// Liveness for load balancers; pings the database when one is wired.
	e.GET("/healthz", d.Health.Health)
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Everything else requires a valid token carrying the profile role.
	// The limiter runs after authentication so it can key on the caller.
	// Middleware is attached per route rather than on a root group so that
	// unknown paths still answer 404 instead of 401.
	protected := []echo.MiddlewareFunc{
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(d.ProfileRole),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger),
	}

	// Profile details are never cached: a new reception changes the answer.
	e.GET("/prisoners/:offenderNo/profile-details", d.Profiles.GetProfileDetails, protected...)
	e.PUT("/prisoners/:offenderNo/profile-details", d.Profiles.PutProfileDetails, protected...)

	reference := append(protected[:len(protected):len(protected)], middleware.NewRedisCache(d.Cache, d.Redis, d.Logger))
	e.GET("/reference/profile-types", d.Reference.ListProfileTypes, reference...)
}
