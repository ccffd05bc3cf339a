// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/train-seat-booking/internal/analytics"
	"github.com/iliyamo/train-seat-booking/internal/config"
	"github.com/iliyamo/train-seat-booking/internal/handler"
	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/metrics"
	"github.com/iliyamo/train-seat-booking/internal/middleware"
)

// Deps is everything the HTTP layer needs.  Redis and the readiness
// pingers are optional.
type Deps struct {
	Cfg       config.Config
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       *logger.Logger
	Redis     *redis.Client
	Ready     map[string]handler.Pinger

	Auth      *handler.AuthHandler
	Bookings  *handler.BookingHandler
	Trains    *handler.TrainHandler
	Search    *handler.SearchHandler
	Analytics *handler.AnalyticsHandler
	SearchLog analytics.Recorder
}

// NewServer builds the Echo instance with the global middleware chain and
// every route registered.
func NewServer(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	e.Use(echomw.Recover())
	e.Use(middleware.RequestID(d.Log))
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(metrics.Middleware())

	RegisterRoutes(e, d.Ready)
	RegisterAuth(e, d)
	RegisterBookings(e, d)
	RegisterAdmin(e, d)
	RegisterPublic(e, d)
	return e
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, ready map[string]handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(ready))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers the session endpoints.  Register, login and
// refresh are throttled per client like the public search.
func RegisterAuth(e *echo.Echo, d Deps) {
	limiter := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	g := e.Group("/v1/auth")
	g.POST("/register", d.Auth.Register, limiter)
	g.POST("/login", d.Auth.Login, limiter)
	g.POST("/refresh", d.Auth.Refresh, limiter)
	g.POST("/logout", d.Auth.Logout)

	e.GET("/v1/me", d.Auth.Me, middleware.JWTAuth(d.Cfg.JWTSecret, d.Log))
}
