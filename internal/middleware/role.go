package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-booking/internal/apperror"
)

// RequireRole enforces that the authenticated user has one of roles.  It
// must run after JWTAuth, which stores the role under CtxRole.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !allowed[Role(c)] {
				return abort(c, apperror.CodeForbidden, "")
			}
			return next(c)
		}
	}
}
