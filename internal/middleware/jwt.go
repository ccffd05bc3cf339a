package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-booking/internal/apperror"
	"github.com/iliyamo/train-seat-booking/internal/logger"
	"github.com/iliyamo/train-seat-booking/internal/utils"
)

// JWTAuth validates a Bearer access token and stores the caller's id and
// role under CtxUserID and CtxRole.  Requests without a valid token are
// rejected with 401.
func JWTAuth(secret string, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return abort(c, apperror.CodeUnauthorized, "missing bearer token")
			}
			if !authenticate(c, secret, raw, log) {
				return abort(c, apperror.CodeUnauthorized, "invalid token")
			}
			return next(c)
		}
	}
}

// OptionalJWT behaves like JWTAuth when a token is presented but lets
// anonymous requests through.  An invalid token is treated as anonymous.
func OptionalJWT(secret string, log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearerToken(c); ok {
				authenticate(c, secret, raw, log)
			}
			return next(c)
		}
	}
}

func bearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

func authenticate(c echo.Context, secret, raw string, log *logger.Logger) bool {
	claims, err := utils.ParseAccessToken(secret, raw)
	if err != nil {
		return false
	}
	uid, err := claims.UserID()
	if err != nil {
		return false
	}
	c.Set(CtxUserID, uid)
	c.Set(CtxRole, claims.Role)
	req := c.Request()
	c.SetRequest(req.WithContext(log.WithUserID(req.Context(), uid)))
	return true
}
