package router // package router defines how HTTP routes are registered for the API

import (
    "net/http"

    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "github.com/redis/go-redis/v9"

    "github.com/vitatrack/health-sync/internal/config"
    "github.com/vitatrack/health-sync/internal/handler"
    "github.com/vitatrack/health-sync/internal/middleware"
)

// RegisterRoutes installs the global middleware and unauthenticated routes.
// CORS is wide open by design: the web app is served from a different origin
// and the companion app's custom signature headers must survive preflight.
func RegisterRoutes(e *echo.Echo) {
    e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
        AllowOrigins: []string{"*"},
        AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
        AllowHeaders: []string{
            echo.HeaderAuthorization,
            echo.HeaderContentType,
            handler.HeaderSignature,
            handler.HeaderIdempotencyKey,
        },
    }))
    // Health check for load balancers and monitoring.
    e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the account endpoints.  Unauthenticated operations
// live under /v1/auth; /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
    g := e.Group("/v1/auth")
    g.POST("/register", a.Register)
    g.POST("/login", a.Login)
    g.POST("/refresh", a.Refresh)
    g.POST("/logout", a.Logout)

    auth := e.Group("/v1")
    auth.Use(middleware.JWTAuth(jwtSecret))
    auth.GET("/me", a.Me)
}

// RegisterHealthSync registers the device registrar and sync ingress
// endpoints.  Everything here requires a bearer token; the sync ingress is
// additionally rate limited and the metric read path cached.  The rdb client
// may be nil, in which case rate limiting and caching are transparently
// disabled.
func RegisterHealthSync(e *echo.Echo, d *handler.DeviceHandler, s *handler.SyncHandler, jwtSecret string, rdb *redis.Client) {
    g := e.Group("/v1")
    g.Use(middleware.JWTAuth(jwtSecret))

    g.POST("/devices/register", d.Register)
    g.GET("/devices/status", d.Status)
    g.POST("/devices/revoke", d.Revoke)

    rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
    g.POST("/health/sync", s.Sync, rl)

    cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
    g.GET("/health/data", s.Data, cache)
    g.GET("/health/sync/history", s.History)
}
