package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-booking/internal/middleware"
)

// RegisterPublic registers the anonymous train search.  The search log
// wraps the cache so cached responses are counted too.
func RegisterPublic(e *echo.Echo, d Deps) {
	e.GET("/v1/trains/search", d.Search.Search,
		middleware.OptionalJWT(d.Cfg.JWTSecret, d.Log),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log),
		middleware.SearchLogger(d.SearchLog),
		middleware.NewRedisCache(d.Cache, d.Redis, d.Log),
	)
}
