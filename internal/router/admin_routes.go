package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-booking/internal/middleware"
	"github.com/iliyamo/train-seat-booking/internal/model"
)

// RegisterAdmin registers ADMIN-only train management and analytics.
func RegisterAdmin(e *echo.Echo, d Deps) {
	admin := []echo.MiddlewareFunc{
		middleware.JWTAuth(d.Cfg.JWTSecret, d.Log),
		middleware.RequireRole(model.RoleAdmin),
	}

	trains := e.Group("/v1/trains", admin...)
	trains.POST("", d.Trains.Create)
	trains.GET("/:id", d.Trains.Get)
	trains.PUT("/:id", d.Trains.Replace)
	trains.PATCH("/:id", d.Trains.Patch)

	e.GET("/v1/analytics/top-routes", d.Analytics.TopRoutes, admin...)
}
