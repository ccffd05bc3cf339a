package middleware

// identity.go holds the context keys JWTAuth fills in and the helpers
// handlers and other middleware use to read them back.

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/train-seat-booking/internal/apperror"
)

// Context keys set by JWTAuth and OptionalJWT.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated user's role, or "" for anonymous callers.
func Role(c echo.Context) string {
	role, _ := c.Get(CtxRole).(string)
	return role
}

// currentUserID renders the caller for rate limit keys.
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

// abort writes the standard error body for code and stops the chain.
func abort(c echo.Context, code apperror.Code, message string) error {
	meta := apperror.MetadataFor(code)
	status := meta.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if message == "" {
		message = meta.PublicMessage
	}
	return c.JSON(status, echo.Map{"error": code, "message": message})
}
