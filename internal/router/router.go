package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"                         // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus"      // Prometheus registry type for the metrics endpoint
	"github.com/prometheus/client_golang/prometheus/promhttp" // HTTP exposition handler for Prometheus metrics
	"github.com/redis/go-redis/v9"                        // Redis client handed to rate-limit and cache middleware

	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/config"     // middleware configuration loaders
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/handler"    // import the handlers that implement business logic
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/middleware" // middleware for JWT authentication, roles, rate limiting and caching
	"github.com/varudhamalabinaya/EV-ChargingSpot/internal/model"      // role constants used by the admin group
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: the health check used by load balancers and the
// Prometheus metrics endpoint scraped by the monitoring stack.
func RegisterRoutes(e *echo.Echo, reg *prometheus.Registry) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
	// Expose the Prometheus metrics collected by the application under
	// /metrics.  The promhttp handler is wrapped so it satisfies Echo's
	// handler signature.
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under the same prefix behind JWTAuth.  When
// a Redis client is available the credential endpoints are rate limited so a
// single client cannot brute-force logins or hammer the rotation endpoint.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rdb *redis.Client) {
	// Create a route group under the /v1/auth prefix for operations that do
	// not require an existing session (register, login, refresh, logout).
	g := e.Group("/v1/auth")
	// Attach the Redis token-bucket limiter when Redis is reachable.  The
	// limiter keys on client IP + route so each credential endpoint gets an
	// independent bucket per caller.
	if rdb != nil {
		g.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	}
	// Register a POST endpoint to handle user registration at /v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to handle user login at /v1/auth/login.
	g.POST("/login", a.Login)
	// Register a POST endpoint to rotate the token pair at /v1/auth/refresh.
	// The presented refresh token is consumed and a new pair is issued.
	g.POST("/refresh", a.Refresh)
	// Register a POST endpoint to log out.  Logout does not require JWT
	// authentication: the handler accepts a JSON body containing a
	// `refresh_token` and revokes it.  The call is idempotent and answers
	// 204 even when the token was already revoked or never issued.
	g.POST("/logout", a.Logout)

	// Create another group for routes that require a valid access token.  All
	// handlers registered on this group will execute the JWTAuth middleware
	// before being invoked.
	auth := e.Group("/v1/auth")
	// Apply the JWTAuth middleware to the protected group using the provided secret.
	auth.Use(middleware.JWTAuth(jwtSecret))
	// Register a GET endpoint at /v1/auth/me that returns the authenticated
	// user's identity as carried in the access token claims.
	auth.GET("/me", a.Me)
}

// RegisterStations registers the station directory routes.  Reads are public
// so guests can browse the map before signing in; every mutation requires a
// valid access token carrying the admin role.  When Redis is available the
// list endpoint is served through the response cache so repeated map loads
// do not hit MySQL.
func RegisterStations(e *echo.Echo, s *handler.StationHandler, jwtSecret string, rdb *redis.Client) {
	// Public browse endpoints.  The collection route optionally goes through
	// the Redis response cache; the cache middleware skips non-GET verbs on
	// its own so attaching it at the route level is safe.
	if rdb != nil {
		e.GET("/v1/stations", s.List, middleware.NewRedisCache(config.LoadCacheConfig(), rdb))
	} else {
		e.GET("/v1/stations", s.List)
	}
	// Fetch a single station by its identifier.
	e.GET("/v1/stations/:id", s.Get)

	// Mutations live behind JWT authentication plus the admin role check.
	// A standard user with a perfectly valid token still gets a 403 here.
	admin := e.Group("/v1/stations")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole(model.RoleAdmin))
	// Create a new station.
	admin.POST("", s.Create)
	// Partially update an existing station.  Successful updates are fanned
	// out to websocket watchers of that station.
	admin.PATCH("/:id", s.Update)
	// Remove a station from the directory.
	admin.DELETE("/:id", s.Delete)
}

// RegisterRealtime registers the websocket endpoint that streams live
// status updates for a single station.  The route is public like the rest
// of the browse surface: watching a charger's availability does not require
// an account.
func RegisterRealtime(e *echo.Echo, r *handler.RealtimeHandler) {
	e.GET("/realtime/ws/station/:id", r.Watch)
}
