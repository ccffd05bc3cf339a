package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-booking/internal/middleware"
	"github.com/iliyamo/train-seat-booking/internal/model"
)

// RegisterBookings registers the passenger endpoints.  Admins may book
// too.
func RegisterBookings(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1/bookings",
		middleware.JWTAuth(d.Cfg.JWTSecret, d.Log),
		middleware.RequireRole(model.RoleUser, model.RoleAdmin),
	)
	g.POST("", d.Bookings.Create)
	g.GET("/my", d.Bookings.ListMine)
}
